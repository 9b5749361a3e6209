package vendorhttp

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Form builds bracket-notation form bodies: metadata[k]=v and items[0][k]=v.
type Form struct {
	values url.Values
}

func NewForm() *Form {
	return &Form{values: url.Values{}}
}

// Set adds key=value, skipping empty values.
func (f *Form) Set(key string, value string) *Form {
	if value != "" {
		f.values.Set(key, value)
	}
	return f
}

func (f *Form) SetInt(key string, value int64) *Form {
	f.values.Set(key, strconv.FormatInt(value, 10))
	return f
}

func (f *Form) SetBool(key string, value bool) *Form {
	f.values.Set(key, strconv.FormatBool(value))
	return f
}

func (f *Form) SetList(key string, items []string) *Form {
	for i, item := range items {
		f.values.Set(fmt.Sprintf("%s[%d]", key, i), item)
	}
	return f
}

// SetMap flattens nested maps and slices under key.
func (f *Form) SetMap(key string, value map[string]any) *Form {
	flatten(f.values, key, value)
	return f
}

func (f *Form) Values() url.Values {
	return f.values
}

func flatten(values url.Values, prefix string, value any) {
	switch typed := value.(type) {
	case nil:
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			flatten(values, prefix+"["+key+"]", typed[key])
		}
	case map[string]string:
		for key, item := range typed {
			values.Set(prefix+"["+key+"]", item)
		}
	case []any:
		for i, item := range typed {
			flatten(values, fmt.Sprintf("%s[%d]", prefix, i), item)
		}
	case []string:
		for i, item := range typed {
			values.Set(fmt.Sprintf("%s[%d]", prefix, i), item)
		}
	case string:
		values.Set(prefix, typed)
	case bool:
		values.Set(prefix, strconv.FormatBool(typed))
	case float64:
		values.Set(prefix, strconv.FormatFloat(typed, 'f', -1, 64))
	case int:
		values.Set(prefix, strconv.Itoa(typed))
	case int64:
		values.Set(prefix, strconv.FormatInt(typed, 10))
	default:
		values.Set(prefix, fmt.Sprint(typed))
	}
}

// TimestampKey builds an idempotency key of the form PREFIX-<unix seconds>,
// with optional suffix parts joined by "-".
func TimestampKey(prefix string, now time.Time, parts ...string) string {
	segments := []string{prefix, strconv.FormatInt(now.Unix(), 10)}
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			segments = append(segments, part)
		}
	}
	return strings.Join(segments, "-")
}

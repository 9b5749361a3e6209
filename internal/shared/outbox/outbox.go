package outbox

import "time"

// Cursor tracks how far a relay consumer has read the append-only
// transaction record log. LastRecordID is the store-assigned record id.
type Cursor struct {
	Consumer     string
	LastRecordID int64
	UpdatedAt    time.Time
}

package db

import (
	"path/filepath"
	"testing"
)

func TestOpenSQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payments.db")
	database, err := Open(Options{Driver: DriverSQLite, DSN: path, Quiet: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if database.Driver != "sqlite" {
		t.Fatalf("expected sqlite, got %s", database.Driver)
	}
	if err := database.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(Options{Driver: "oracle", DSN: "x"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(Options{Driver: DriverSQLite}); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestSQLiteDSN(t *testing.T) {
	if got := sqliteDSN("payments.db"); got != "file:payments.db?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on" {
		t.Fatalf("unexpected dsn %s", got)
	}
	if got := sqliteDSN("file::memory:?cache=shared"); got != "file::memory:?cache=shared" {
		t.Fatalf("expected explicit dsn untouched, got %s", got)
	}
}

func TestMySQLDSN(t *testing.T) {
	if got := mysqlDSN("user:pass@tcp(localhost:3306)/payments"); got != "user:pass@tcp(localhost:3306)/payments?parseTime=true&loc=UTC" {
		t.Fatalf("unexpected dsn %s", got)
	}
	if got := mysqlDSN("user:pass@tcp(localhost:3306)/payments?charset=utf8mb4"); got != "user:pass@tcp(localhost:3306)/payments?charset=utf8mb4&parseTime=true&loc=UTC" {
		t.Fatalf("unexpected dsn %s", got)
	}
	if got := mysqlDSN("u@/payments?parseTime=false"); got != "u@/payments?parseTime=false" {
		t.Fatalf("expected explicit parseTime untouched, got %s", got)
	}
}

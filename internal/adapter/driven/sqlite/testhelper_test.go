package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"testing"
)

// setupTestDB creates a named shared in-memory SQLite database with the
// documents schema applied. The name is derived from t.Name() so parallel
// tests never see each other's rows.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	safeName := url.PathEscape(t.Name())
	// WAL mode is not applicable to in-memory databases; omit journal_mode pragma.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", safeName)

	open := func(maxConns int) *sql.DB {
		conn, err := sql.Open("sqlite", dsn)
		if err != nil {
			t.Fatalf("open test db: %v", err)
		}
		conn.SetMaxOpenConns(maxConns)
		if err := conn.PingContext(context.Background()); err != nil {
			_ = conn.Close()
			t.Fatalf("ping test db: %v", err)
		}
		return conn
	}

	writer := open(1)
	reader := open(4)
	db := &DB{Writer: writer, Reader: reader, path: dsn}

	if err := RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}

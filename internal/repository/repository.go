package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the service decides
// which statements share a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dates are bound as YYYY-MM-DD text, which Postgres casts to DATE and
// SQLite compares lexically in the right order.
func dateArg(d civil.Date) string { return d.String() }

func nullDateArg(d *civil.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

// nullDate scans DATE columns from either driver: lib/pq yields time.Time,
// SQLite may yield text.
type nullDate struct {
	Date  civil.Date
	Valid bool
}

func (n *nullDate) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		n.Date, n.Valid = civil.Date{}, false
		return nil
	case time.Time:
		n.Date, n.Valid = civil.DateOf(v), true
		return nil
	case string:
		return n.parse(v)
	case []byte:
		return n.parse(string(v))
	default:
		return fmt.Errorf("scan date: unsupported type %T", src)
	}
}

func (n *nullDate) parse(s string) error {
	if len(s) > 10 {
		s = s[:10]
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return fmt.Errorf("scan date: %w", err)
	}
	n.Date, n.Valid = d, true
	return nil
}

func (n nullDate) ptr() *civil.Date {
	if !n.Valid {
		return nil
	}
	d := n.Date
	return &d
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
}

// timestamp scans TIMESTAMP columns stored natively or as text.
type timestamp struct {
	Time time.Time
}

func (ts *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		ts.Time = v.UTC()
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	default:
		return fmt.Errorf("scan timestamp: unsupported type %T", src)
	}
}

func (ts *timestamp) parse(s string) error {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("scan timestamp: unrecognised value %q", s)
}

func timeArg(t time.Time) time.Time { return t.UTC() }

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

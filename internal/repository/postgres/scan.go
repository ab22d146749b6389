package postgres

import (
	"database/sql"
	"time"

	jsoniter "github.com/json-iterator/go"

	"rental-modification-backend/internal/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// dateOnly re-anchors a DATE column (returned by lib/pq at UTC midnight) to
// the local calendar day the engine works in.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func dateArg(t time.Time) string {
	return utils.FormatDate(t)
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func timePtrArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// jsonArg marshals v for a JSONB column, storing NULL for nil pointers.
func jsonArg[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func jsonScan[T any](raw []byte) (*T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func stringsOf[S ~string](values []S) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

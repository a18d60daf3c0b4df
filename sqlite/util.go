package sqlite

import (
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

type scannable interface {
	Scan(dest ...any) error
}

// generateParameters returns a placeholder group such as "(?, ?, ?)".
func generateParameters(n int) string {
	if n <= 0 {
		return "()"
	}
	return "(" + strings.TrimSuffix(strings.Repeat("?, ", n), ", ") + ")"
}

func toUnixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

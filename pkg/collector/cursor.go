package collector

import (
	"context"
	"strings"
	"time"
)

// PointerStore is the durable home of the collection pointer. GetPointer
// reports found=false when no pointer has ever been stored, which is not an
// error: it triggers cold start resolution.
type PointerStore interface {
	GetPointer(ctx context.Context) (value string, found bool, err error)
	SetPointer(ctx context.Context, value string) error
}

// Resolve turns a loaded pointer into its native form for querying.
//
// A pointer that is absent, blank, or fails to parse under the configured
// format resolves to the default look-back window (cold start). A pointer
// that parses resolves to its parsed value (warm start); its stored form is
// re-serialized canonically for Microseconds and preserved verbatim for
// Timestamp. Values that parse but are semantically stale are accepted as-is.
func Resolve(stored string, found bool, format TimeFormat, now time.Time) (Pointer, bool) {
	if !found || strings.TrimSpace(stored) == "" {
		return format.DefaultWindow(now), true
	}
	p, err := format.ParsePointer(stored)
	if err != nil {
		return format.DefaultWindow(now), true
	}
	return p, false
}

package collector

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// TimeFormat selects how the stored pointer is encoded: an integer count of
// epoch microseconds, or a UTC timestamp string. The format is fixed once at
// configuration validation time and threaded through cursor resolution and
// query building.
type TimeFormat int

const (
	Microseconds TimeFormat = iota
	Timestamp
)

// bqTimestampLayout is the timestamp shape BigQuery expects in TIMESTAMP()
// literals, with the short "+00" offset rather than "+00:00".
const bqTimestampLayout = "2006-01-02 15:04:05+00"

const defaultLookback = 7 * 24 * time.Hour

// ParseTimeFormat maps the configured time_format string onto a TimeFormat.
// The empty string selects Microseconds, the historical default.
func ParseTimeFormat(s string) (TimeFormat, error) {
	switch s {
	case "", "microseconds":
		return Microseconds, nil
	case "timestamp":
		return Timestamp, nil
	default:
		return 0, invalidField("time_format", "must be either 'microseconds' or 'timestamp'")
	}
}

func (f TimeFormat) String() string {
	switch f {
	case Timestamp:
		return "timestamp"
	default:
		return "microseconds"
	}
}

// Pointer is the native form of a resolved cursor position under one
// TimeFormat. For Microseconds the canonical stored form is the re-serialized
// integer; for Timestamp the original stored string is preserved verbatim.
type Pointer struct {
	format TimeFormat
	usec   uint64
	ts     time.Time
	raw    string
}

// ParsePointer parses a stored pointer string into its native form.
//
// Microseconds pointers must be non-negative integers. Timestamp pointers
// must resolve to a date-time; a trailing "+00" offset shorthand is accepted
// as equivalent to "+00:00", and offset-less strings are interpreted as UTC.
func (f TimeFormat) ParsePointer(stored string) (Pointer, error) {
	switch f {
	case Microseconds:
		usec, err := strconv.ParseUint(stored, 10, 64)
		if err != nil {
			return Pointer{}, fmt.Errorf("pointer %q is not a valid microseconds value: %w", stored, err)
		}
		return Pointer{format: f, usec: usec}, nil
	case Timestamp:
		// dateparse reads bare digit strings as epoch timestamps, which
		// belong to the Microseconds variant.
		if _, err := strconv.ParseInt(stored, 10, 64); err == nil {
			return Pointer{}, fmt.Errorf("pointer %q is not a valid timestamp", stored)
		}
		normalized := stored
		if strings.HasSuffix(normalized, "+00") && !strings.HasSuffix(normalized, ":00") {
			normalized += ":00"
		}
		ts, err := dateparse.ParseIn(normalized, time.UTC)
		if err != nil {
			return Pointer{}, fmt.Errorf("pointer %q is not a valid timestamp: %w", stored, err)
		}
		return Pointer{format: f, ts: ts.UTC(), raw: stored}, nil
	default:
		return Pointer{}, fmt.Errorf("unknown time format %d", f)
	}
}

// DefaultWindow returns the cold start pointer, one look-back window before
// now.
func (f TimeFormat) DefaultWindow(now time.Time) Pointer {
	weekAgo := now.UTC().Add(-defaultLookback)
	switch f {
	case Timestamp:
		return Pointer{format: f, ts: weekAgo, raw: weekAgo.Format(bqTimestampLayout)}
	default:
		return Pointer{format: f, usec: uint64(weekAgo.UnixMicro())}
	}
}

// String returns the stored form of the pointer, the value written back to
// the pointer store on flush.
func (p Pointer) String() string {
	switch p.format {
	case Timestamp:
		return p.raw
	default:
		return strconv.FormatUint(p.usec, 10)
	}
}

// QueryLiteral returns the pointer rendered as a query bound: a bare integer
// for Microseconds, a TIMESTAMP() literal for Timestamp.
func (p Pointer) QueryLiteral() string {
	switch p.format {
	case Timestamp:
		return fmt.Sprintf("TIMESTAMP('%s')", p.raw)
	default:
		return strconv.FormatUint(p.usec, 10)
	}
}

// Time returns the pointer as a time.Time, regardless of format.
func (p Pointer) Time() time.Time {
	switch p.format {
	case Timestamp:
		return p.ts
	default:
		return time.UnixMicro(int64(p.usec)).UTC()
	}
}

// Compare orders two pointers by the instant they represent.
func (p Pointer) Compare(other Pointer) int {
	return p.Time().Compare(other.Time())
}

// Format returns the TimeFormat the pointer was parsed under.
func (p Pointer) Format() TimeFormat {
	return p.format
}

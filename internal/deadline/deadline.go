// Package deadline implements the absolute point-in-time timeout used to
// bound a logical call and every attempt nested inside it.
package deadline

import (
	"fmt"
	"strconv"
	"time"

	"github.com/resiliate/resiliate/internal/rlerr"
)

// floor is the minimum value Remaining ever returns. A just-expired
// deadline still reports a small positive remaining so callers can tell
// "zero budget" apart from "no deadline at all".
const floor = time.Millisecond

// initialTimestamp guards against constructing a Deadline from an
// implausible absolute time (e.g. a confused unix-seconds/unix-nanos value).
var initialTimestamp = time.Now().Add(-24 * time.Hour)

// Deadline is an absolute point in time. Zero value is not valid; use
// FromTimeout or Parse.
type Deadline struct {
	at time.Time
}

// FromTimeout builds a Deadline relative to now.
func FromTimeout(timeout time.Duration) Deadline {
	return Deadline{at: time.Now().Add(timeout)}
}

// FromTime builds a Deadline from an absolute time, failing fast if the
// value looks implausible.
func FromTime(at time.Time) (Deadline, error) {
	if at.Before(initialTimestamp) {
		return Deadline{}, fmt.Errorf("deadline: invalid absolute time %s: should be >= %s: %w", at, initialTimestamp, rlerr.ErrInvalidDeadline)
	}
	return Deadline{at: at}, nil
}

// Parse reconstructs a Deadline from its serialized decimal-seconds form.
func Parse(s string) (Deadline, error) {
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Deadline{}, fmt.Errorf("deadline: invalid serialized deadline %q: %w", s, err)
	}
	return FromTime(time.Unix(0, int64(seconds*float64(time.Second))))
}

// TryParse is the non-erroring variant used where a missing/garbled
// deadline should simply fall back to "no deadline observed".
func TryParse(s string) (Deadline, bool) {
	d, err := Parse(s)
	if err != nil {
		return Deadline{}, false
	}
	return d, true
}

// Remaining returns the time left until the deadline, floored so it never
// reports zero or negative.
func (d Deadline) Remaining() time.Duration {
	remaining := time.Until(d.at)
	if remaining < floor {
		return floor
	}
	return remaining
}

// Expired reports whether the deadline has passed. Note this is evaluated
// against the unfloored remaining time, so Expired can be true even though
// Remaining() still reports the 1ms floor.
func (d Deadline) Expired() bool {
	return !d.at.After(time.Now())
}

// Div returns a new Deadline whose remaining time is the receiver's
// remaining time divided by factor.
func (d Deadline) Div(factor int) Deadline {
	return FromTimeout(d.Remaining() / time.Duration(factor))
}

// Equal compares deadlines by absolute time.
func (d Deadline) Equal(other Deadline) bool {
	return d.at.Equal(other.at)
}

// String serializes the deadline as a decimal absolute timestamp in
// seconds, the wire format used for the X-Request-Deadline-At header.
func (d Deadline) String() string {
	return strconv.FormatFloat(float64(d.at.UnixNano())/float64(time.Second), 'f', -1, 64)
}

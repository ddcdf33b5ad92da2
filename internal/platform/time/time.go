// Package time contains time related helpers
package time

import "time"

// Ptr returns a pointer to t or nil if t is zero
func Ptr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Bucket returns the unix second of t truncated down to a d-sized window.
// Used for fixed-window accounting keys; d must be positive
func Bucket(t time.Time, d time.Duration) int64 {
	step := int64(d / time.Second)
	if step <= 0 {
		step = 1
	}
	u := t.Unix()
	return u - (u % step)
}

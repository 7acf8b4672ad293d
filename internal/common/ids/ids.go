// Package ids builds the short, time-prefixed identifiers used for events,
// programs and anonymous sessions.
package ids

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// Base36 returns n random lower-case base36 characters.
func Base36(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(base36[rand.IntN(len(base36))])
	}
	return b.String()
}

// Millis formats t as Unix milliseconds.
func Millis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// Event returns "event:<ms>:<9 base36>".
func Event(t time.Time) string {
	return "event:" + Millis(t) + ":" + Base36(9)
}

// Program returns "PROG-<ms>-<9 BASE36>".
func Program(t time.Time) string {
	return "PROG-" + Millis(t) + "-" + strings.ToUpper(Base36(9))
}

// AnonymousSession returns "anon_<ms>_<9 base36>".
func AnonymousSession(t time.Time) string {
	return "anon_" + Millis(t) + "_" + Base36(9)
}

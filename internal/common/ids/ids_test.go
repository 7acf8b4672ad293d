package ids

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIdentifierFormats(t *testing.T) {
	now := time.UnixMilli(1732700000123)

	tests := []struct {
		name    string
		got     string
		pattern string
	}{
		{"event", Event(now), `^event:1732700000123:[0-9a-z]{9}$`},
		{"program", Program(now), `^PROG-1732700000123-[0-9A-Z]{9}$`},
		{"anonymous session", AnonymousSession(now), `^anon_1732700000123_[0-9a-z]{9}$`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Regexp(t, regexp.MustCompile(tt.pattern), tt.got)
		})
	}
}

func TestBase36_Length(t *testing.T) {
	assert.Len(t, Base36(0), 0)
	assert.Len(t, Base36(12), 12)
	assert.NotEqual(t, Base36(16), Base36(16))
}

package textx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"strips nul and del", "he\x00llo\nwo\x7frld\t!", "hello\nworld\t!"},
		{"keeps newlines and tabs", "a\n\tb\r\nc", "a\n\tb\r\nc"},
		{"trims surrounding space", "  resume text  ", "resume text"},
		{"empty", "", ""},
		{"only control chars", "\x00\x01\x02", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SanitizeText(tc.in))
		})
	}
}

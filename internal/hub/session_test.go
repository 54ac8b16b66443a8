package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateNickname(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantName  string
		rejection registerRejection
	}{
		{"plain name", "Neo", "Neo", registerOK},
		{"surrounding whitespace trimmed", "  Trinity  ", "Trinity", registerOK},
		{"markup stripped before length check", `<Neo>`, "Neo", registerOK},
		{"too short", "A", "", registerInvalid},
		{"empty", "", "", registerInvalid},
		{"only stripped characters", `<>"'`, "", registerInvalid},
		{"denylisted exact", "admin", "", registerDenylisted},
		{"denylisted substring", "xXadminXx", "", registerDenylisted},
		{"denylisted mixed case", "MODERATOR", "", registerDenylisted},
		{"denylisted cyrillic", "суперАдмин", "", registerDenylisted},
		{"long name truncated to limit", "abcdefghijklmnopqrstuvwxyz", "abcdefghijklmnopqrstuvwx", registerOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, rejection := validateNickname(tt.raw)
			assert.Equal(t, tt.rejection, rejection)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

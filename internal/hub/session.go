package hub

import (
	"strings"

	"github.com/oblom298-png/mellcazik/internal/sanitize"
)

// session is the server-side state for one live connection. Owned
// exclusively by the hub actor; nothing outside the run loop touches it.
type session struct {
	id         string
	nickname   string
	registered bool
	remoteAddr string
	alive      bool
	writer     *clientWriter
}

// nicknameDenylist rejects reserved and impersonation-prone names by
// substring match. Deliberately simple; the goal is basic impersonation
// prevention, not a profanity filter.
var nicknameDenylist = []string{
	"admin",
	"moderator",
	"system",
	"root",
	"server",
	"админ",
	"модер",
	"система",
}

type registerRejection int

const (
	registerOK registerRejection = iota
	registerInvalid
	registerDenylisted
)

// validateNickname sanitizes a raw nickname and screens it against the
// denylist. Uniqueness is checked separately against the live registry.
func validateNickname(raw string) (string, registerRejection) {
	name := sanitize.Nickname(raw)
	if name == "" {
		return "", registerInvalid
	}

	lower := strings.ToLower(name)
	for _, denied := range nicknameDenylist {
		if strings.Contains(lower, denied) {
			return "", registerDenylisted
		}
	}
	return name, registerOK
}

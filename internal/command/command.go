// Package command parses inbound message text into typed commands. The
// rate-limit class of a request is derived from the parsed kind, never
// from substring matching against secret material.
package command

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Kind identifies a parsed command.
type Kind int

const (
	KindUnknown Kind = iota
	KindStart
	KindHelp
	// KindVPNGet is a bare /vpn request for the active code. It is the
	// only kind counted against the stricter vpn rate-limit window.
	KindVPNGet
	// KindVPNSet is /vpn <password> <code>.
	KindVPNSet
	// KindAdmin is /admin <password> <json-array-of-@handles>.
	KindAdmin
)

// Command is a parsed inbound command. Password and Arg are raw tokens;
// validation happens at the handler.
type Command struct {
	Kind     Kind
	Password string
	Arg      string
}

// argPattern splits "<password> <rest>" the way the admin commands expect.
var argPattern = regexp.MustCompile(`^(\S+)\s+(.+)$`)

// Parse classifies message text. It is total: malformed privileged
// commands come back with empty Password/Arg for the handler to reject.
func Parse(text string) Command {
	name, rest := splitCommand(text)
	switch name {
	case "/start":
		return Command{Kind: KindStart}
	case "/help":
		return Command{Kind: KindHelp}
	case "/vpn":
		if rest == "" {
			return Command{Kind: KindVPNGet}
		}
		c := Command{Kind: KindVPNSet}
		if m := argPattern.FindStringSubmatch(rest); m != nil {
			c.Password = m[1]
			c.Arg = strings.TrimSpace(m[2])
		}
		return c
	case "/admin":
		c := Command{Kind: KindAdmin}
		if m := argPattern.FindStringSubmatch(rest); m != nil {
			c.Password = m[1]
			c.Arg = strings.TrimSpace(m[2])
		}
		return c
	}
	return Command{Kind: KindUnknown}
}

func splitCommand(text string) (name, rest string) {
	text = strings.TrimSpace(text)
	name, rest, _ = strings.Cut(text, " ")
	return name, strings.TrimSpace(rest)
}

// handlePattern matches a public Telegram channel handle.
var handlePattern = regexp.MustCompile(`^@[A-Za-z0-9_]{5,32}$`)

// ValidHandle reports whether s is a syntactically valid public @handle.
func ValidHandle(s string) bool {
	return handlePattern.MatchString(s)
}

// ParseChannels decodes the /admin channel argument, a JSON array of
// @handles, and rejects any element that is not a valid handle.
func ParseChannels(arg string) ([]string, error) {
	var channels []string
	if err := json.Unmarshal([]byte(arg), &channels); err != nil {
		return nil, errors.Wrap(err, "parse channel list")
	}
	for _, ch := range channels {
		if !ValidHandle(ch) {
			return nil, errors.Errorf("invalid channel handle %q", ch)
		}
	}
	return channels, nil
}

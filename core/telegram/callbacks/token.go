// Package callbacks encodes and decodes inline button callback data.
//
// Tokens are colon-delimited: "domain:arg1:arg2". Telegram caps callback
// data at 64 bytes, which Encode enforces.
package callbacks

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxDataLen is the Bot API limit for callback_data.
const MaxDataLen = 64

const sep = ":"

var (
	// ErrEmpty is returned when callback data carries no domain.
	ErrEmpty = errors.New("callbacks: empty token")
	// ErrTooLong is returned when an encoded token exceeds MaxDataLen.
	ErrTooLong = errors.New("callbacks: token exceeds 64 bytes")
	// ErrBadArg is returned by typed accessors for missing or malformed args.
	ErrBadArg = errors.New("callbacks: bad argument")
)

// Token is a parsed callback: a domain followed by positional arguments.
type Token struct {
	Domain string
	Args   []string
}

// New builds a token from a domain and args.
func New(domain string, args ...string) Token {
	return Token{Domain: domain, Args: args}
}

// Parse splits raw callback data. Telebot's "\f<unique>|payload" prefix is
// tolerated so buttons created with markup.Data still decode.
func Parse(data string) (Token, error) {
	raw := strings.TrimPrefix(data, "\f")
	raw = strings.TrimSpace(strings.Replace(raw, "|", sep, 1))
	if raw == "" {
		return Token{}, ErrEmpty
	}
	parts := strings.Split(raw, sep)
	if parts[0] == "" {
		return Token{}, ErrEmpty
	}
	t := Token{Domain: parts[0]}
	if len(parts) > 1 {
		t.Args = parts[1:]
	}
	return t, nil
}

// Encode renders the token, failing when it would not fit a button.
func (t Token) Encode() (string, error) {
	if t.Domain == "" {
		return "", ErrEmpty
	}
	for _, a := range t.Args {
		if strings.Contains(a, sep) {
			return "", fmt.Errorf("%w: %q contains %q", ErrBadArg, a, sep)
		}
	}
	s := t.String()
	if len(s) > MaxDataLen {
		return "", ErrTooLong
	}
	return s, nil
}

// String renders the token without validation.
func (t Token) String() string {
	if len(t.Args) == 0 {
		return t.Domain
	}
	return t.Domain + sep + strings.Join(t.Args, sep)
}

// Key returns domain and first arg, e.g. "admin:addep", for logging and routing.
func (t Token) Key() string {
	if len(t.Args) == 0 {
		return t.Domain
	}
	return t.Domain + sep + t.Args[0]
}

// Arg returns argument i or "".
func (t Token) Arg(i int) string {
	if i < 0 || i >= len(t.Args) {
		return ""
	}
	return t.Args[i]
}

// Int parses argument i as a positive integer.
func (t Token) Int(i int) (int, error) {
	s := t.Arg(i)
	if s == "" {
		return 0, fmt.Errorf("%w: missing arg %d", ErrBadArg, i)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: arg %d=%q", ErrBadArg, i, s)
	}
	return n, nil
}

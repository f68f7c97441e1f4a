// Package episode parses the episode numbers users type when asking for a story part.
package episode

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidInput is returned for text that is neither "N" nor "A-B".
var ErrInvalidInput = errors.New("episode: invalid input")

var (
	singleRe = regexp.MustCompile(`^\s*(\d+)\s*$`)
	rangeRe  = regexp.MustCompile(`^\s*(\d+)\s*-\s*(\d+)\s*$`)
	taggedRe = regexp.MustCompile(`^\s*Ep(\d+)(?:-(\d+))?\s*$`)
)

// Range is an inclusive episode interval. Start <= End always holds. Parsed
// ranges may start at zero; stored episodes are 1-based.
type Range struct {
	Start int
	End   int
}

// Single reports whether the range names exactly one episode.
func (r Range) Single() bool { return r.Start == r.End }

// Contains reports whether r fully covers other.
func (r Range) Contains(other Range) bool {
	return r.Start <= other.Start && r.End >= other.End
}

// Span is the number of episodes in r.
func (r Range) Span() int { return r.End - r.Start + 1 }

func (r Range) String() string {
	if r.Single() {
		return fmt.Sprintf("Ep%d", r.Start)
	}
	return fmt.Sprintf("Ep%d-Ep%d", r.Start, r.End)
}

// Parse accepts "12" or "3-7" (operands in either order, spaces allowed).
// Any digit string is accepted, including zero.
func Parse(text string) (Range, error) {
	if m := singleRe.FindStringSubmatch(text); m != nil {
		n, err := atoi(m[1])
		if err != nil {
			return Range{}, err
		}
		return Range{Start: n, End: n}, nil
	}
	if m := rangeRe.FindStringSubmatch(text); m != nil {
		return pair(m[1], m[2])
	}
	return Range{}, ErrInvalidInput
}

// ParseTagged accepts the listen-menu form "Ep12" or "Ep3-7". The "Ep"
// prefix is case sensitive.
func ParseTagged(text string) (Range, error) {
	m := taggedRe.FindStringSubmatch(text)
	if m == nil {
		return Range{}, ErrInvalidInput
	}
	if m[2] == "" {
		n, err := atoi(m[1])
		if err != nil {
			return Range{}, err
		}
		return Range{Start: n, End: n}, nil
	}
	return pair(m[1], m[2])
}

// New builds a range of stored episodes from two bounds, swapping them when
// reversed. Both bounds must be at least 1.
func New(a, b int) (Range, error) {
	if a <= 0 || b <= 0 {
		return Range{}, ErrInvalidInput
	}
	if a > b {
		a, b = b, a
	}
	return Range{Start: a, End: b}, nil
}

func pair(sa, sb string) (Range, error) {
	a, err := atoi(sa)
	if err != nil {
		return Range{}, err
	}
	b, err := atoi(sb)
	if err != nil {
		return Range{}, err
	}
	if a > b {
		a, b = b, a
	}
	return Range{Start: a, End: b}, nil
}

// atoi fails only for numbers too large for int.
func atoi(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, ErrInvalidInput
	}
	return n, nil
}

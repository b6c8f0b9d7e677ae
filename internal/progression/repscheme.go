package progression

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidRepScheme is returned for target rep strings that are not a
// range, a comma list or a single positive integer.
var ErrInvalidRepScheme = errors.New("invalid rep scheme")

// RepScheme is a parsed target rep specification.
type RepScheme interface {
	// Target is the rep count a working set at index i must reach.
	Target(i int) int
	// MinReps is the rep count used when sets are regenerated.
	MinReps() int
	// First is the leading target, used for display in diffs.
	First() int
	// PerSet reports whether targets are addressed per set index.
	PerSet() bool
}

// Range is "<min>-<max>". Every set must reach Max; regenerated sets use Min.
type Range struct {
	Min, Max int
}

func (r Range) Target(int) int { return r.Max }
func (r Range) MinReps() int   { return r.Min }
func (r Range) First() int     { return r.Max }
func (r Range) PerSet() bool   { return false }

// List is "<r1>,<r2>,...": one target per set position, the last one
// repeating for extra sets.
type List []int

func (l List) Target(i int) int {
	if i >= len(l) {
		i = len(l) - 1
	}
	return l[i]
}
func (l List) MinReps() int { return l[len(l)-1] }
func (l List) First() int   { return l[0] }
func (l List) PerSet() bool { return true }

// Single is a plain "<n>".
type Single int

func (s Single) Target(int) int { return int(s) }
func (s Single) MinReps() int   { return int(s) }
func (s Single) First() int     { return int(s) }
func (s Single) PerSet() bool   { return false }

// ParseRepScheme parses a target rep string. A comma selects a list, then a
// dash selects a range, otherwise the string is a single count.
func ParseRepScheme(s string) (RepScheme, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.Contains(s, ","):
		parts := strings.Split(s, ",")
		list := make(List, 0, len(parts))
		for _, p := range parts {
			n, err := parseReps(p)
			if err != nil {
				return nil, err
			}
			list = append(list, n)
		}
		return list, nil

	case strings.Contains(s, "-"):
		parts := strings.Split(s, "-")
		if len(parts) > 2 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRepScheme, s)
		}
		lo, err := parseReps(parts[0])
		if err != nil {
			return nil, err
		}
		hi := lo
		if strings.TrimSpace(parts[1]) != "" {
			if hi, err = parseReps(parts[1]); err != nil {
				return nil, err
			}
		}
		if lo > hi {
			return nil, fmt.Errorf("%w: range %d-%d is inverted", ErrInvalidRepScheme, lo, hi)
		}
		return Range{Min: lo, Max: hi}, nil

	default:
		n, err := parseReps(s)
		if err != nil {
			return nil, err
		}
		return Single(n), nil
	}
}

func parseReps(tok string) (int, error) {
	tok = strings.TrimSpace(tok)
	n, err := strconv.Atoi(tok)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: token %q", ErrInvalidRepScheme, tok)
	}
	return n, nil
}

// MaxTargetSets bounds the set count a target may request. Larger values
// are treated as invalid.
const MaxTargetSets = 50

// TargetSetCount returns the desired working set count, or 0 when the
// value is absent, not a positive integer or above MaxTargetSets.
func TargetSetCount(s *string) int {
	if s == nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(*s))
	if err != nil || n < 0 || n > MaxTargetSets {
		return 0
	}
	return n
}

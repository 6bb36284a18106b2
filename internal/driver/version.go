package driver

import (
	"fmt"
	"strconv"
	"strings"
)

// NotInstalled is the version reported for a missing or unrunnable driver.
const NotInstalled = "0.0.0.0"

// Version is a parsed dotted numeric version such as 120.0.6099.109.
type Version []int

// ParseVersion parses s, which must be one or more dot-separated
// non-negative integers.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrBadVersion)
	}
	parts := strings.Split(s, ".")
	v := make(Version, len(parts))
	for i, p := range parts {
		if p == "" || strings.IndexFunc(p, notDigit) >= 0 {
			return nil, fmt.Errorf("%w: %q", ErrBadVersion, s)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadVersion, s)
		}
		v[i] = n
	}
	return v, nil
}

func notDigit(r rune) bool {
	return r < '0' || r > '9'
}

// Major returns the first component.
func (v Version) Major() int {
	if len(v) == 0 {
		return 0
	}
	return v[0]
}

func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// Compare orders a and b by their first differing component, treating
// missing trailing components as zero. It returns -1, 0 or +1.
func Compare(a, b Version) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		x, y := at(a, i), at(b, i)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

func at(v Version, i int) int {
	if i < len(v) {
		return v[i]
	}
	return 0
}

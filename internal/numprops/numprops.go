// Package numprops implements the numeric-property filters applied to match values.
package numprops

import (
	"math/big"
	"strconv"
)

// Filters selects properties a value must satisfy. Zero value accepts everything.
type Filters struct {
	Prime         bool `json:"prime"`
	PerfectSquare bool `json:"perfect_square"`
	Palindrome    bool `json:"palindrome"`
	Composite     bool `json:"composite"`
}

// Any reports whether at least one filter is enabled.
func (f Filters) Any() bool {
	return f.Prime || f.PerfectSquare || f.Palindrome || f.Composite
}

// Accept reports whether v satisfies every enabled filter.
func (f Filters) Accept(v int64) bool {
	if f.Prime && !IsPrime(v) {
		return false
	}
	if f.PerfectSquare && !IsPerfectSquare(v) {
		return false
	}
	if f.Palindrome && !IsPalindrome(v) {
		return false
	}
	if f.Composite && !IsComposite(v) {
		return false
	}
	return true
}

// IsPrime is deterministic for every int64.
func IsPrime(v int64) bool {
	if v < 2 {
		return false
	}
	return big.NewInt(v).ProbablyPrime(0)
}

// IsComposite reports v > 1 that is not prime.
func IsComposite(v int64) bool {
	return v > 1 && !IsPrime(v)
}

func IsPerfectSquare(v int64) bool {
	if v < 0 {
		return false
	}
	n := big.NewInt(v)
	root := new(big.Int).Sqrt(n)
	return new(big.Int).Mul(root, root).Cmp(n) == 0
}

// IsPalindrome compares the decimal digits of v, ignoring sign.
func IsPalindrome(v int64) bool {
	s := strconv.FormatInt(v, 10)
	if v < 0 {
		s = s[1:]
	}
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		if s[i] != s[j] {
			return false
		}
	}
	return true
}

package unfold

import (
	"sort"
	"strconv"
)

// EncodeChain renders each chain member in base 36.
func EncodeChain(chain []int64) []string {
	out := make([]string, 0, len(chain))
	for _, v := range chain {
		out = append(out, strconv.FormatInt(v, 36))
	}
	return out
}

// Decode parses every overlapping two-character window of each base-36 string and returns the
// distinct values in ascending order.
func Decode(encoded []string) []int64 {
	seen := make(map[int64]struct{})
	for _, s := range encoded {
		for i := 0; i+2 <= len(s); i++ {
			v, err := strconv.ParseInt(s[i:i+2], 36, 64)
			if err != nil {
				continue
			}
			seen[v] = struct{}{}
		}
	}
	out := make([]int64, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

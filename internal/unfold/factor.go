package unfold

import (
	"math/big"
	"sort"
)

// MaxSafeInteger bounds factorisation input; larger aggregates are reported as too large.
const MaxSafeInteger int64 = 1<<53 - 1

var maxSafe = big.NewInt(MaxSafeInteger)

// FactorChain factors n by trial division and returns every remaining value greater than one
// seen along the way, n itself included, sorted descending. The boolean is true when n is outside
// (0, MaxSafeInteger]; the chain is then empty.
func FactorChain(n *big.Int) ([]int64, bool) {
	if n == nil || n.Sign() <= 0 {
		return nil, false
	}
	if n.Cmp(maxSafe) > 0 {
		return nil, true
	}
	return factorChain(n.Int64()), false
}

func factorChain(n int64) []int64 {
	if n <= 1 {
		return nil
	}
	seen := map[int64]struct{}{n: {}}
	remaining := n

	divideOut := func(d int64) {
		for remaining%d == 0 && remaining > 1 {
			remaining /= d
			if remaining > 1 {
				seen[remaining] = struct{}{}
			}
		}
	}

	divideOut(2)
	divideOut(3)
	for k := int64(5); k*k <= remaining; k += 6 {
		divideOut(k)
		divideOut(k + 2)
	}
	if remaining > 1 {
		seen[remaining] = struct{}{}
	}

	chain := make([]int64, 0, len(seen))
	for v := range seen {
		chain = append(chain, v)
	}
	sort.Slice(chain, func(i, j int) bool { return chain[i] > chain[j] })
	return chain
}

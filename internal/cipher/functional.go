package cipher

import "math"

const (
	phi            = 1.618033988749895
	geminiModulus  = 997
	lawOf6Seed     = 6
	lawOf6Rounds   = 3
	vortexSeed     = 6.0
	maxClusterSize = 2
)

func standardFunctions() []FuncDecl {
	return []FuncDecl{
		{Name: Reduction, Description: "simple value reduced to a single digit or master number", Fn: reduction},
		{Name: GeminiResonance, Description: "prime-weighted positional sum modulo 997 plus length", Fn: geminiResonance},
		{Name: DoublingVortex, Description: "golden-ratio doubling per letter", Fn: doublingVortex},
		{Name: LawOf6, Description: "three-step doubling of six times the letter count", Fn: lawOf6},
		{Name: SyllableResonance, Description: "simple value times vowel cluster count", Fn: syllableResonance},
	}
}

func simpleSum(letters string) int64 {
	var total int64
	for i := 0; i < len(letters); i++ {
		total += int64(letters[i]-'a') + 1
	}
	return total
}

func digitSum(v int64) int64 {
	var sum int64
	for v > 0 {
		sum += v % 10
		v /= 10
	}
	return sum
}

// reduction stops early at the master numbers 11 and 22.
func reduction(letters string) int64 {
	v := simpleSum(letters)
	for v > 9 && v != 11 && v != 22 {
		v = digitSum(v)
	}
	return v
}

func geminiResonance(letters string) int64 {
	total := int64(1)
	for i := 0; i < len(letters); i++ {
		weight := firstPrimes[letters[i]-'a'] * int64(i+1)
		total = (total + weight%geminiModulus) % geminiModulus
	}
	return total + int64(len(letters))
}

// doublingVortex saturates at math.MaxInt64 once the float overflows int64.
func doublingVortex(letters string) int64 {
	v := vortexSeed
	for i := 0; i < len(letters); i++ {
		v = v*2*phi + vortexSeed
	}
	rounded := math.Round(v)
	if math.IsInf(rounded, 0) || rounded >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(rounded)
}

func lawOf6(letters string) int64 {
	v := int64(lawOf6Seed)
	for i := 0; i < lawOf6Rounds; i++ {
		v = v*2 + lawOf6Seed
	}
	return v * int64(len(letters))
}

func syllableResonance(letters string) int64 {
	clusters := int64(countVowelClusters(letters))
	if clusters < 1 {
		clusters = 1
	}
	return simpleSum(letters) * clusters
}

// countVowelClusters counts left-to-right matches of 1-2 consecutive vowels (y included).
func countVowelClusters(letters string) int {
	count := 0
	for i := 0; i < len(letters); {
		if !isVowel(letters[i]) {
			i++
			continue
		}
		count++
		size := 1
		for size < maxClusterSize && i+size < len(letters) && isVowel(letters[i+size]) {
			size++
		}
		i += size
	}
	return count
}

func isVowel(c byte) bool {
	switch c {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}

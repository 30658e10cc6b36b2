package cipher

// Canonical cipher names.
const (
	Simple            = "Simple"
	English           = "English"
	Jewish            = "Jewish"
	Chaldean          = "Chaldean"
	ReverseSimple     = "ReverseSimple"
	ReverseEnglish    = "ReverseEnglish"
	PrimePosition     = "PrimePosition"
	Fibonacci         = "Fibonacci"
	Latin             = "Latin"
	ALW               = "ALW"
	Reduction         = "Reduction"
	GeminiResonance   = "GeminiResonance"
	DoublingVortex    = "DoublingVortex"
	LawOf6            = "LawOf6"
	SyllableResonance = "SyllableResonance"
)

// DefaultActive is the cipher set active when no selection is supplied.
var DefaultActive = []string{Simple, English, Jewish}

// firstPrimes holds the first 26 primes, indexed by letter position.
var firstPrimes = [26]int64{
	2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41,
	43, 47, 53, 59, 61, 67, 71, 73, 79, 83, 89, 97, 101,
}

var jewishValues = [26]int64{
	1, 2, 3, 4, 5, 6, 7, 8, 9,
	10, 20, 30, 40, 50, 60, 70, 80, 90,
	100, 200, 300, 400, 500, 600, 700, 800,
}

var chaldeanValues = map[rune]int64{
	'A': 1, 'B': 2, 'C': 3, 'D': 4, 'E': 5, 'F': 8, 'G': 3, 'H': 5, 'I': 1,
	'J': 1, 'K': 2, 'L': 3, 'M': 4, 'N': 5, 'O': 7, 'P': 8, 'Q': 1, 'R': 2,
	'S': 3, 'T': 4, 'U': 6, 'V': 6, 'W': 6, 'X': 5, 'Y': 1, 'Z': 7,
}

// latinValues is the 23-letter classical system; J, U and W are derived in latinTable.
var latinValues = map[rune]int64{
	'A': 1, 'B': 2, 'C': 3, 'D': 4, 'E': 5, 'F': 6, 'G': 7, 'H': 8, 'I': 9,
	'K': 10, 'L': 20, 'M': 30, 'N': 40, 'O': 50, 'P': 60, 'Q': 70, 'R': 80, 'S': 90,
	'T': 100, 'V': 200, 'X': 300, 'Y': 400, 'Z': 500,
}

const alwOrder = "ALWHSDOZKVGRCNYJUFQBMXITEP"

func standardTables() []TableDecl {
	return []TableDecl{
		{Name: Simple, Description: "A=1 through Z=26", Build: positional(func(pos int64) int64 { return pos })},
		{Name: English, Description: "six times the simple value", Build: positional(func(pos int64) int64 { return 6 * pos })},
		{Name: Jewish, Description: "units, tens and hundreds by position", Build: indexed(jewishValues[:])},
		{Name: Chaldean, Description: "Chaldean numerology", Build: literal(chaldeanValues)},
		{Name: ReverseSimple, Description: "A=26 through Z=1", Build: positional(func(pos int64) int64 { return 27 - pos })},
		{Name: ReverseEnglish, Description: "six times the reverse simple value", Build: positional(func(pos int64) int64 { return 6 * (27 - pos) })},
		{Name: PrimePosition, Description: "nth prime for the nth letter", Build: indexed(firstPrimes[:])},
		{Name: Fibonacci, Description: "nth Fibonacci number for the nth letter", Build: fibonacciTable},
		{Name: Latin, Description: "classical Latin alphabet with J, U and W derived", Build: latinTable},
		{Name: ALW, Description: "ALW ordering of the English Qabalah", Build: orderedTable(alwOrder)},
	}
}

func positional(weight func(pos int64) int64) func() map[rune]int64 {
	return func() map[rune]int64 {
		table := make(map[rune]int64, 26)
		for i := 0; i < 26; i++ {
			table[rune('A'+i)] = weight(int64(i + 1))
		}
		return table
	}
}

func indexed(values []int64) func() map[rune]int64 {
	return func() map[rune]int64 {
		table := make(map[rune]int64, len(values))
		for i, v := range values {
			table[rune('A'+i)] = v
		}
		return table
	}
}

func literal(values map[rune]int64) func() map[rune]int64 {
	return func() map[rune]int64 {
		table := make(map[rune]int64, len(values))
		for k, v := range values {
			table[k] = v
		}
		return table
	}
}

func orderedTable(order string) func() map[rune]int64 {
	return func() map[rune]int64 {
		table := make(map[rune]int64, len(order))
		for i, letter := range order {
			table[letter] = int64(i + 1)
		}
		return table
	}
}

// fibonacciTable assigns F(1)=1, F(2)=1, F(3)=2, ... to A, B, C, ...
func fibonacciTable() map[rune]int64 {
	table := make(map[rune]int64, 26)
	prev, curr := int64(0), int64(1)
	for i := 0; i < 26; i++ {
		table[rune('A'+i)] = curr
		prev, curr = curr, prev+curr
	}
	return table
}

func latinTable() map[rune]int64 {
	table := literal(latinValues)()
	table['J'] = table['I']
	table['U'] = table['V']
	table['W'] = 2 * table['V']
	return table
}

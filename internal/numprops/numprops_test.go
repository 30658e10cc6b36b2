package numprops

import "testing"

func TestPredicates(t *testing.T) {
	tests := []struct {
		v          int64
		prime      bool
		square     bool
		palindrome bool
		composite  bool
	}{
		{0, false, true, true, false},
		{1, false, true, true, false},
		{2, true, false, true, false},
		{4, false, true, true, true},
		{11, true, false, true, false},
		{54, false, false, false, true},
		{121, false, true, true, true},
		{666, false, false, true, true},
		{997, true, false, false, false},
		{-9, false, false, true, false},
	}
	for _, tc := range tests {
		if got := IsPrime(tc.v); got != tc.prime {
			t.Errorf("IsPrime(%d) = %v", tc.v, got)
		}
		if got := IsPerfectSquare(tc.v); got != tc.square {
			t.Errorf("IsPerfectSquare(%d) = %v", tc.v, got)
		}
		if got := IsPalindrome(tc.v); got != tc.palindrome {
			t.Errorf("IsPalindrome(%d) = %v", tc.v, got)
		}
		if got := IsComposite(tc.v); got != tc.composite {
			t.Errorf("IsComposite(%d) = %v", tc.v, got)
		}
	}
}

func TestFiltersAccept(t *testing.T) {
	var none Filters
	if none.Any() || !none.Accept(54) {
		t.Fatal("zero filters must accept everything")
	}

	f := Filters{Palindrome: true, Composite: true}
	if !f.Any() {
		t.Fatal("expected Any to be true")
	}
	if !f.Accept(666) {
		t.Error("666 is a composite palindrome")
	}
	if f.Accept(11) {
		t.Error("11 is prime")
	}
	if f.Accept(54) {
		t.Error("54 is not a palindrome")
	}
}

package utils

import (
	"regexp"
	"testing"
)

func TestGenerateReceiptToken(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9A-F]{6}$`)
	for i := 0; i < 50; i++ {
		token, err := GenerateReceiptToken()
		if err != nil {
			t.Fatalf("GenerateReceiptToken: %v", err)
		}
		if !pattern.MatchString(token) {
			t.Errorf("token %q does not match %s", token, pattern)
		}
	}
}

func TestGenerateRandomString(t *testing.T) {
	for _, n := range []int{1, 6, 20, 33} {
		s, err := GenerateRandomString(n)
		if err != nil {
			t.Fatalf("GenerateRandomString(%d): %v", n, err)
		}
		if len(s) != n {
			t.Errorf("GenerateRandomString(%d) = %q, want length %d", n, s, n)
		}
	}
}

func TestIsHexID(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"60351a1c6175e6c543d5aa1b", true},
		{"60351A1C6175E6C543D5AA1B", true},
		{"60351a1c6175e6c543d5aa1", false},
		{"60351a1c6175e6c543d5aa1bc", false},
		{"head boy", false},
		{"", false},
		{"zz351a1c6175e6c543d5aa1b", false},
	}
	for _, c := range cases {
		if got := IsHexID(c.in); got != c.want {
			t.Errorf("IsHexID(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestB2SRoundTrip(t *testing.T) {
	in := "campuselect"
	if got := B2S(S2B(in)); got != in {
		t.Errorf("B2S(S2B(%q)) = %q", in, got)
	}
}

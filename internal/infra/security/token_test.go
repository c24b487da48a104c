package security

import "testing"

func TestGenerateNumericCodeLengthAndCharset(t *testing.T) {
	for _, length := range []int{1, 4, 6, 18} {
		code, err := GenerateNumericCode(length)
		if err != nil {
			t.Fatalf("GenerateNumericCode(%d) returned error: %v", length, err)
		}
		if len(code) != length {
			t.Fatalf("GenerateNumericCode(%d) produced %q", length, code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("GenerateNumericCode produced non-digit: %q", code)
			}
		}
	}
}

func TestGenerateNumericCodeRejectsInvalidLength(t *testing.T) {
	if _, err := GenerateNumericCode(0); err == nil {
		t.Fatal("GenerateNumericCode accepted zero length")
	}
	if _, err := GenerateNumericCode(19); err == nil {
		t.Fatal("GenerateNumericCode accepted excessive length")
	}
}

func TestGenerateSecureTokenUniqueness(t *testing.T) {
	first, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}
	second, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}

	if first == "" || first == second {
		t.Fatal("GenerateSecureToken produced duplicate or empty tokens")
	}
}

func TestGenerateSecureTokenRejectsNonPositiveLength(t *testing.T) {
	if _, err := GenerateSecureToken(0); err == nil {
		t.Fatal("GenerateSecureToken accepted zero length")
	}
}

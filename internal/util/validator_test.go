package util

import (
	"strings"
	"testing"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{"usuario@ecoa.com", " admin@ecoa.com "}
	for _, email := range valid {
		if err := ValidateEmail(email); err != nil {
			t.Fatalf("%q: unexpected error %v", email, err)
		}
	}

	invalid := []string{"", "sem-arroba", "João <joao@ecoa.com>"}
	for _, email := range invalid {
		if err := ValidateEmail(email); err == nil {
			t.Fatalf("%q: expected error", email)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("curta"); err == nil {
		t.Fatal("expected error for short password")
	}
	if err := ValidatePassword("user1234"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Usuario@ECOA.com "); got != "usuario@ecoa.com" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestPasswordUpperBound(t *testing.T) {
	if err := ValidatePassword(strings.Repeat("a", 129)); err == nil {
		t.Fatal("expected error for oversized password")
	}
	// conta caracteres, não bytes
	if err := ValidatePassword("çãçãçãçã"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestNormalizeName(t *testing.T) {
	got, err := NormalizeName("  João   da  Silva ")
	if err != nil || got == nil || *got != "João da Silva" {
		t.Fatalf("unexpected %v %v", got, err)
	}
	if got, err := NormalizeName("   "); err != nil || got != nil {
		t.Fatalf("blank name must be nil, got %v %v", got, err)
	}
	if _, err := NormalizeName(strings.Repeat("x", 121)); err == nil {
		t.Fatal("expected error for long name")
	}
}

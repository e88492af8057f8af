package fingerprint_test

import (
	"strings"
	"testing"

	"crosspost/internal/fingerprint"
)

func TestKeyDeterministic(t *testing.T) {
	a := fingerprint.Key("123", "hello world")
	b := fingerprint.Key("123", "hello world")
	if a != b {
		t.Fatalf("equal inputs produced different keys: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64-char hex digest, got %d chars", len(a))
	}
}

func TestKeyDependsOnIDAndText(t *testing.T) {
	base := fingerprint.Key("123", "hello")
	if fingerprint.Key("124", "hello") == base {
		t.Fatal("changing the id should change the key")
	}
	if fingerprint.Key("123", "hello!") == base {
		t.Fatal("changing the text should change the key")
	}
}

func TestKeyIgnoresTextBeyondPrefix(t *testing.T) {
	prefix := strings.Repeat("x", 300)
	a := fingerprint.Key("42", prefix+"tail one")
	b := fingerprint.Key("42", prefix+"a completely different tail")
	if a != b {
		t.Fatal("text beyond the 300-character prefix should not affect the key")
	}

	c := fingerprint.Key("42", prefix[:299]+"y")
	if a == c {
		t.Fatal("text inside the 300-character prefix should affect the key")
	}
}

package util

import "testing"

func TestTrimHelpers(t *testing.T) {
	if got := TrimAndLower("  BaSiC "); got != "basic" {
		t.Fatalf("TrimAndLower: %q", got)
	}
	if v, ok := TrimEmptyCheck("   "); ok || v != "" {
		t.Fatalf("TrimEmptyCheck on blanks: %q %v", v, ok)
	}
	if got := TrimWithDefault(" ", "x"); got != "x" {
		t.Fatalf("TrimWithDefault: %q", got)
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	cases := map[string]string{
		"https://jira.example.com/":    "https://jira.example.com",
		" https://jira.example.com// ": "https://jira.example.com",
		"https://host/jira":            "https://host/jira",
	}
	for in, want := range cases {
		if got := NormalizeBaseURL(in); got != want {
			t.Fatalf("NormalizeBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestContainsAnyFold(t *testing.T) {
	if !ContainsAnyFold("<a>Log Out</a>", "log out") {
		t.Fatal("expected case-insensitive match")
	}
	if ContainsAnyFold("hello", "", "bye") {
		t.Fatal("unexpected match")
	}
}

func TestFind(t *testing.T) {
	type rec struct {
		id  string
		key string
	}
	items := []rec{{"1", "A-1"}, {"2", "TEST-123"}, {"3", "TEST-123"}}
	got, ok := Find(items, func(r rec) bool { return r.key == "TEST-123" })
	if !ok || got.id != "2" {
		t.Fatalf("expected first match id=2, got %+v ok=%v", got, ok)
	}
	if _, ok := Find(items, func(r rec) bool { return r.key == "NOPE" }); ok {
		t.Fatal("expected no match")
	}
	if _, ok := Find[rec](nil, func(rec) bool { return true }); ok {
		t.Fatal("nil slice cannot match")
	}
}

package urlcanon

import "testing"

func TestCanonicalizeRejectsInvalid(t *testing.T) {
	cases := []string{"", "not a url at all", "://missing-scheme"}
	for _, in := range cases {
		if _, err := Canonicalize(in); err == nil {
			t.Errorf("Canonicalize(%q): expected error, got none", in)
		}
	}
}

func TestCanonicalizePreservesPathCase(t *testing.T) {
	got, err := Canonicalize("http://example.com/Docs/GettingStarted")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "http://example.com/Docs/GettingStarted" {
		t.Errorf("got %q, want path case preserved", got)
	}
}

func TestCanonicalizeFileScheme(t *testing.T) {
	got, err := Canonicalize("file:///tmp/page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "file:///tmp/page.html" {
		t.Errorf("got %q", got)
	}
	if _, err := Canonicalize("file://"); err == nil {
		t.Errorf("expected error for file URL with empty path")
	}
}

func TestNormalizeForDedupIdempotent(t *testing.T) {
	inputs := []string{
		"HTTP://Example.COM/path/?b=2&a=1#frag",
		"http://example.com/path",
		"http://example.com/path/",
	}
	for _, in := range inputs {
		once, err := NormalizeForDedup(in)
		if err != nil {
			t.Fatalf("first pass: %v", err)
		}
		twice, err := NormalizeForDedup(once)
		if err != nil {
			t.Fatalf("second pass: %v", err)
		}
		if once != twice {
			t.Errorf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestNormalizeForDedupTrailingSlash(t *testing.T) {
	a, _ := NormalizeForDedup("http://example.com/path/")
	b, _ := NormalizeForDedup("http://example.com/path")
	if a != b {
		t.Errorf("expected trailing slash to be dropped: %q vs %q", a, b)
	}
	root, _ := NormalizeForDedup("http://example.com/")
	if root != "http://example.com/" {
		t.Errorf("root path should stay exactly \"/\", got %q", root)
	}
}

func TestNormalizeForDedupSortsQuery(t *testing.T) {
	a, _ := NormalizeForDedup("http://example.com/?b=2&a=1")
	b, _ := NormalizeForDedup("http://example.com/?a=1&b=2")
	if a != b {
		t.Errorf("expected query sort to make these equal: %q vs %q", a, b)
	}
}

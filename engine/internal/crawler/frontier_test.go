package crawler

import "testing"

func TestFrontierDedupsByNormalizedURL(t *testing.T) {
	f := NewFrontier()
	f.Seed("https://example.com/A", "https://example.com/a")

	if ok := f.Offer("https://example.com/a/", "https://example.com/a", 1); ok {
		t.Fatal("expected duplicate normalized URL to be rejected")
	}
	if ok := f.Offer("https://example.com/b", "https://example.com/b", 1); !ok {
		t.Fatal("expected distinct URL to be accepted")
	}
	if f.VisitedCount() != 2 {
		t.Fatalf("VisitedCount = %d, want 2", f.VisitedCount())
	}
}

func TestFrontierDequeueIsFIFO(t *testing.T) {
	f := NewFrontier()
	f.Seed("https://example.com/", "https://example.com/")
	f.Offer("https://example.com/a", "https://example.com/a", 1)
	f.Offer("https://example.com/b", "https://example.com/b", 1)

	first, ok := f.Dequeue()
	if !ok || first.originalURL != "https://example.com/" {
		t.Fatalf("first dequeue = %+v", first)
	}
	second, _ := f.Dequeue()
	if second.originalURL != "https://example.com/a" {
		t.Fatalf("second dequeue = %+v, want /a", second)
	}
}

package marker

import (
	"strings"
	"sync"
	"testing"
)

func TestMarkDiffersEveryCall(t *testing.T) {
	t.Parallel()
	m := New()
	a := m.Mark("hello")
	b := m.Mark("hello")
	if a == b {
		t.Fatalf("two marks are identical: %q", a)
	}
	for _, s := range []string{a, b} {
		if !strings.HasPrefix(s, "hello") {
			t.Fatalf("mark %q does not keep the text", s)
		}
		if s == "hello" {
			t.Fatalf("mark added nothing")
		}
		if Strip(s) != "hello" {
			t.Fatalf("suffix of %q is not zero-width only", s)
		}
	}
}

func TestSuffixIsInjective(t *testing.T) {
	t.Parallel()
	seen := make(map[string]uint64, 5000)
	for n := uint64(1); n <= 5000; n++ {
		s := Suffix(n)
		if s == "" {
			t.Fatalf("Suffix(%d) is empty", n)
		}
		if prev, ok := seen[s]; ok {
			t.Fatalf("Suffix(%d) == Suffix(%d) == %q", n, prev, s)
		}
		seen[s] = n
	}
	if Suffix(0) != "" {
		t.Fatalf("Suffix(0) = %q, want empty", Suffix(0))
	}
}

func TestSuffixLength(t *testing.T) {
	t.Parallel()
	tests := []struct {
		n     uint64
		runes int
	}{
		{1, 1}, {5, 1}, {6, 2}, {30, 2}, {31, 3}, {155, 3}, {156, 4}, {seedSpan + 1, 4},
	}
	for _, tt := range tests {
		if got := len([]rune(Suffix(tt.n))); got != tt.runes {
			t.Fatalf("len(Suffix(%d)) = %d runes, want %d", tt.n, got, tt.runes)
		}
	}
}

func TestSeededSequence(t *testing.T) {
	t.Parallel()
	m := NewSeeded(0)
	if got := m.Mark("a"); got != "a\u200b" {
		t.Fatalf("first mark = %q", got)
	}
	if got := m.Mark("a"); got != "a\u200c" {
		t.Fatalf("second mark = %q", got)
	}
}

func TestMarkConcurrent(t *testing.T) {
	t.Parallel()
	m := NewSeeded(0)
	const workers, per = 8, 200

	var (
		mu   sync.Mutex
		seen = map[string]bool{}
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, per)
			for j := 0; j < per; j++ {
				local = append(local, m.Mark("x"))
			}
			mu.Lock()
			for _, s := range local {
				seen[s] = true
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(seen) != workers*per {
		t.Fatalf("distinct marks = %d, want %d", len(seen), workers*per)
	}
}

func TestStripKeepsVisibleText(t *testing.T) {
	t.Parallel()
	if got := Strip("a\u200bb\u2060\ufeff"); got != "a\u200bb" {
		t.Fatalf("Strip = %q", got)
	}
}

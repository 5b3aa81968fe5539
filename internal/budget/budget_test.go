package budget

import (
	"context"
	"errors"
	"strings"
	"testing"

	"skein/internal/tokenizer"
	"skein/internal/transcript"
)

// fixedCounter returns a constant count per entry.
type fixedCounter struct {
	perEntry int
}

func (f *fixedCounter) Count(_ context.Context, text, _ string) (int, error) {
	if text == "" {
		return 0, nil
	}
	return f.perEntry, nil
}

// failingCounter fails on a specific text.
type failingCounter struct {
	failOn string
}

func (f *failingCounter) Count(_ context.Context, text, _ string) (int, error) {
	if text == f.failOn {
		return 0, errors.New("tokenizer unavailable")
	}
	return 1, nil
}

func entries(texts ...string) []*transcript.Entry {
	out := make([]*transcript.Entry, len(texts))
	for i, text := range texts {
		out[i] = &transcript.Entry{Content: text, Role: transcript.RoleUser}
	}
	return out
}

func TestComputeUsage(t *testing.T) {
	calc := NewCalculator(&fixedCounter{perEntry: 100})

	usage, err := calc.ComputeUsage(context.Background(), entries("a", "b", "c"), "gpt-4o", Options{})
	if err != nil {
		t.Fatalf("ComputeUsage failed: %v", err)
	}
	if usage.TotalTokens != 300 {
		t.Errorf("TotalTokens = %d, want 300", usage.TotalTokens)
	}
	if usage.MaxTokens != 128000 {
		t.Errorf("MaxTokens = %d, want registry value", usage.MaxTokens)
	}
}

func TestComputeUsage_Override(t *testing.T) {
	calc := NewCalculator(&fixedCounter{perEntry: 80})

	usage, err := calc.ComputeUsage(context.Background(), entries("a"), "gpt-4o", Options{MaxTokensOverride: 100})
	if err != nil {
		t.Fatalf("ComputeUsage failed: %v", err)
	}
	if usage.MaxTokens != 100 {
		t.Errorf("MaxTokens = %d, want override", usage.MaxTokens)
	}
	if usage.UtilizationPct != 80 {
		t.Errorf("UtilizationPct = %v, want 80", usage.UtilizationPct)
	}
}

func TestComputeUsage_ClampsUtilization(t *testing.T) {
	calc := NewCalculator(&fixedCounter{perEntry: 500})

	usage, err := calc.ComputeUsage(context.Background(), entries("a"), "gpt-4o", Options{MaxTokensOverride: 100})
	if err != nil {
		t.Fatalf("ComputeUsage failed: %v", err)
	}
	if usage.UtilizationPct != 100 {
		t.Errorf("UtilizationPct = %v, want clamped to 100", usage.UtilizationPct)
	}
}

func TestComputeUsage_CountsSummaryNotContent(t *testing.T) {
	calc := NewCalculator(tokenizer.NewHeuristic())

	long := strings.Repeat("x", 3000)
	es := []*transcript.Entry{
		{Content: long},
		{Content: long, Summary: strings.Repeat("y", 300), SummaryRetention: 0.4},
	}

	usage, err := calc.ComputeUsage(context.Background(), es, "gpt-4o", Options{})
	if err != nil {
		t.Fatalf("ComputeUsage failed: %v", err)
	}
	// 1000+4 for the raw entry, 100+4 for the summarized one.
	if usage.TotalTokens != 1108 {
		t.Errorf("TotalTokens = %d, want 1108", usage.TotalTokens)
	}
}

func TestComputeUsage_Empty(t *testing.T) {
	calc := NewCalculator(&fixedCounter{perEntry: 1})

	usage, err := calc.ComputeUsage(context.Background(), nil, "gpt-4o", Options{})
	if err != nil {
		t.Fatalf("ComputeUsage failed: %v", err)
	}
	if usage.TotalTokens != 0 || usage.UtilizationPct != 0 {
		t.Errorf("empty transcript must report zero usage, got %+v", usage)
	}
}

func TestCountEntries_ErrorPropagates(t *testing.T) {
	calc := NewCalculator(&failingCounter{failOn: "bad"})

	_, err := calc.CountEntries(context.Background(), entries("good", "bad", "good"), "gpt-4o")
	if err == nil {
		t.Fatal("expected tokenizer error to propagate")
	}
}

func TestCountEntries_OrderPreserved(t *testing.T) {
	calc := NewCalculator(tokenizer.NewHeuristic())

	texts := make([]string, 50)
	for i := range texts {
		texts[i] = strings.Repeat("z", (i+1)*3)
	}
	counts, err := calc.CountEntries(context.Background(), entries(texts...), "gpt-4o")
	if err != nil {
		t.Fatalf("CountEntries failed: %v", err)
	}
	for i, n := range counts {
		want := i + 1 + 4
		if n != want {
			t.Errorf("counts[%d] = %d, want %d", i, n, want)
		}
	}
}

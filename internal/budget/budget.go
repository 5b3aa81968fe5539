// Package budget computes context-window consumption for a transcript.
package budget

import (
	"context"
	"sync"

	"skein/internal/models"
	"skein/internal/tokenizer"
	"skein/internal/transcript"
)

// tokenizeWorkers bounds concurrent tokenizer calls for one computation.
const tokenizeWorkers = 8

// Options adjusts usage computation.
type Options struct {
	// MaxTokensOverride, when positive, wins over the model registry.
	MaxTokensOverride int
}

// Usage is the computed consumption of a model's context window.
type Usage struct {
	TotalTokens    int     `json:"total_tokens"`
	MaxTokens      int     `json:"max_tokens"`
	UtilizationPct float64 `json:"utilization_pct"`
}

// Calculator computes usage for transcript snapshots. It is stateless; the
// caller must not invoke ComputeUsage concurrently for the same transcript
// snapshot (coalesce or debounce duplicate in-flight calls at the call site).
type Calculator struct {
	counter tokenizer.Counter
}

// NewCalculator creates a calculator using the given token counter.
func NewCalculator(counter tokenizer.Counter) *Calculator {
	return &Calculator{counter: counter}
}

// ComputeUsage tokenizes every entry (summary when attached, raw text
// otherwise), sums the counts and reports utilization clamped to [0,100].
func (c *Calculator) ComputeUsage(ctx context.Context, entries []*transcript.Entry, model string, opts Options) (Usage, error) {
	counts, err := c.CountEntries(ctx, entries, model)
	if err != nil {
		return Usage{}, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	maxTokens := opts.MaxTokensOverride
	if maxTokens <= 0 {
		maxTokens = models.ContextWindow(model)
	}

	pct := 0.0
	if maxTokens > 0 {
		pct = float64(total) / float64(maxTokens) * 100
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	return Usage{
		TotalTokens:    total,
		MaxTokens:      maxTokens,
		UtilizationPct: pct,
	}, nil
}

// CountEntries tokenizes all entries concurrently with a bounded worker count
// and returns per-entry token counts in entry order.
func (c *Calculator) CountEntries(ctx context.Context, entries []*transcript.Entry, model string) ([]int, error) {
	counts := make([]int, len(entries))
	if len(entries) == 0 {
		return counts, nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	sem := make(chan struct{}, tokenizeWorkers)

	for i, entry := range entries {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, e *transcript.Entry) {
			defer wg.Done()
			defer func() { <-sem }()

			n, err := c.counter.Count(ctx, e.Text(), model)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			counts[i] = n
		}(i, entry)
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return counts, nil
}

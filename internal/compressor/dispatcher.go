// Package compressor orchestrates zone compression across a backend chain.
package compressor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"skein/internal/backend"
	"skein/internal/retry"
	"skein/internal/tokenizer"
	"skein/internal/transcript"
	"skein/internal/zone"
	"skein/pkg/logger"
)

// Outcome pairs one chunk's entries with its compression result, so the
// caller can attach summaries back onto the transcript.
type Outcome struct {
	Entries []*transcript.Entry
	Result  Result
}

// Dispatcher compresses zones chunk by chunk through an ordered backend
// chain, falling back to truncation as a last resort. It never lets an error
// escape: every chunk yields exactly one Result.
type Dispatcher struct {
	chain    []backend.Summarizer
	truncate *backend.Truncate
	recorder Recorder
	counter  *tokenizer.Heuristic
	cfg      Config
	log      zerolog.Logger
}

// NewDispatcher creates a dispatcher. recorder may be nil.
func NewDispatcher(chain []backend.Summarizer, recorder Recorder, cfg Config) *Dispatcher {
	return &Dispatcher{
		chain:    chain,
		truncate: backend.NewTruncate(),
		recorder: recorder,
		counter:  tokenizer.NewHeuristic(),
		cfg:      cfg.withDefaults(),
		log:      logger.Component("compressor"),
	}
}

// Compress compresses one zone. Recent and Basic zones, and entries already
// summarized at the target retention, produce no backend calls. Chunk-level
// calls run concurrently up to the configured limit; outcomes are returned in
// original chunk order regardless of completion order.
func (d *Dispatcher) Compress(ctx context.Context, sessionID string, z zone.Zone) []Outcome {
	if !z.Compressible() {
		return nil
	}

	chunks := d.splitZone(z.Entries, z.Retention, d.cfg.ChunkMaxTokens)
	if len(chunks) == 0 {
		return nil
	}

	outcomes := make([]Outcome, len(chunks))
	var wg sync.WaitGroup
	sem := make(chan struct{}, d.cfg.Concurrency)

	for i, c := range chunks {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, c chunk) {
			defer wg.Done()
			defer func() { <-sem }()

			result := d.compressChunk(ctx, sessionID, z, c, len(chunks))
			outcomes[i] = Outcome{Entries: c.entries, Result: result}
		}(i, c)
	}
	wg.Wait()

	for i := range outcomes {
		if d.recorder != nil {
			d.recorder.Record(outcomes[i].Result)
		}
	}
	return outcomes
}

// compressChunk walks the backend chain for one chunk. Transient failures are
// retried with backoff against the same backend; degraded output advances the
// chain immediately. Truncation terminates the chain unconditionally.
func (d *Dispatcher) compressChunk(ctx context.Context, sessionID string, z zone.Zone, c chunk, chunkTotal int) Result {
	req := backend.Request{
		Text:          c.text,
		RetentionRate: z.Retention,
		SessionID:     sessionID,
		Zone:          string(z.Kind),
		ChunkIndex:    c.index,
		ChunkTotal:    chunkTotal,
		TargetChars:   targetChars(c.text, z.Retention),
		MaxTokens:     maxOutputTokens(c.tokens, z.Retention),
	}

	start := time.Now()
	inputTokens := d.counter.CountText(c.text)

	var (
		fallbackReason string
		lastErr        error
		sawDegraded    bool
	)

	for i, b := range d.chain {
		resp, err := d.attempt(ctx, b, req)
		if err != nil {
			if ctx.Err() != nil {
				// Aborted operation: never recorded as success.
				return d.canceledResult(sessionID, z, c, chunkTotal, inputTokens, start, ctx.Err())
			}
			d.log.Warn().Err(err).
				Str("backend", b.Name()).
				Str("zone", string(z.Kind)).
				Int("chunk", c.index).
				Bool("retryable", backend.IsRetryable(err)).
				Msg("backend attempt failed, advancing chain")

			lastErr = err
			if backend.IsDegraded(err) {
				sawDegraded = true
			}
			if fallbackReason == "" {
				fallbackReason = err.Error()
			}
			continue
		}

		status := StatusSuccess
		reason := ""
		if i > 0 {
			status = StatusFallback
			reason = fallbackReason
		}

		outputTokens := resp.OutputTokens
		if outputTokens == 0 {
			outputTokens = d.counter.CountText(resp.Text)
		}
		in := resp.InputTokens
		if in == 0 {
			in = inputTokens
		}

		return Result{
			SessionID:      sessionID,
			Zone:           string(z.Kind),
			ChunkIndex:     c.index,
			ChunkTotal:     chunkTotal,
			Backend:        b.Name(),
			Status:         status,
			FallbackReason: reason,
			InputTokens:    in,
			OutputTokens:   outputTokens,
			Duration:       time.Since(start),
			Input:          c.text,
			Output:         resp.Text,
		}
	}

	// Chain exhausted: deterministic truncation guarantees usable text.
	resp, _ := d.truncate.Summarize(ctx, req)

	status := StatusError
	errMsg := ""
	if lastErr != nil {
		errMsg = lastErr.Error()
	}
	if sawDegraded && !isHardFailure(lastErr) {
		// The chain ended on degraded output rather than a backend error.
		status = StatusFallback
	}

	return Result{
		SessionID:      sessionID,
		Zone:           string(z.Kind),
		ChunkIndex:     c.index,
		ChunkTotal:     chunkTotal,
		Backend:        d.truncate.Name(),
		Status:         status,
		FallbackReason: fallbackReason,
		ErrorMessage:   errMsg,
		InputTokens:    inputTokens,
		OutputTokens:   d.counter.CountText(resp.Text),
		Duration:       time.Since(start),
		Input:          c.text,
		Output:         resp.Text,
	}
}

// attempt invokes one backend under the per-attempt timeout and retry policy,
// then validates the output. Degraded output is returned as a non-retryable
// backend error so the chain advances.
func (d *Dispatcher) attempt(ctx context.Context, b backend.Summarizer, req backend.Request) (*backend.Response, error) {
	resp, err := retry.DoValue(ctx, d.cfg.Retry, func(ctx context.Context) (*backend.Response, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, d.cfg.AttemptTimeout)
		defer cancel()

		resp, err := b.Summarize(attemptCtx, req)
		if err != nil {
			if ctx.Err() != nil {
				// The run itself is over; retrying would only burn the backoff
				// wait before the cancellation check.
				return nil, retry.NonRetryable(err)
			}
			return nil, err
		}
		return resp, d.validate(b.Name(), req, resp)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// validate rejects empty, pathologically short, safety-filtered or expanding
// output as degraded.
func (d *Dispatcher) validate(backendName string, req backend.Request, resp *backend.Response) error {
	switch {
	case resp == nil || resp.Text == "":
		return backend.NewError(backend.CodeDegradedOutput, "empty output", backendName, false)
	case resp.Filtered:
		return backend.NewError(backend.CodeDegradedOutput, "output safety-filtered", backendName, false)
	case len(resp.Text) < d.cfg.MinViableChars && len(req.Text) >= d.cfg.MinViableChars*2:
		return backend.NewError(backend.CodeDegradedOutput,
			fmt.Sprintf("output too short (%d chars)", len(resp.Text)), backendName, false)
	case d.counter.CountText(resp.Text) > d.counter.CountText(req.Text):
		// Compression must never expand.
		return backend.NewError(backend.CodeDegradedOutput, "output longer than input", backendName, false)
	default:
		return nil
	}
}

func (d *Dispatcher) canceledResult(sessionID string, z zone.Zone, c chunk, chunkTotal, inputTokens int, start time.Time, cause error) Result {
	return Result{
		SessionID:    sessionID,
		Zone:         string(z.Kind),
		ChunkIndex:   c.index,
		ChunkTotal:   chunkTotal,
		Backend:      "",
		Status:       StatusError,
		ErrorMessage: fmt.Sprintf("compression aborted: %v", cause),
		InputTokens:  inputTokens,
		Duration:     time.Since(start),
		Input:        c.text,
	}
}

func isHardFailure(err error) bool {
	return err != nil && !backend.IsDegraded(err)
}

func targetChars(text string, retention float64) int {
	n := int(float64(len([]rune(text))) * retention)
	if n < 1 {
		n = 1
	}
	return n
}

func maxOutputTokens(inputTokens int, retention float64) int {
	n := int(float64(inputTokens) * retention)
	// Leave headroom so the backend is not cut off mid-sentence.
	n += n / 5
	if n < 64 {
		n = 64
	}
	return n
}

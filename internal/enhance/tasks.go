package enhance

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Outcome is the completion value of a submitted enhancement: exactly one
// of Result and Err is meaningful.
type Outcome struct {
	Result Result
	Err    error
}

// Submit runs req as an independent task and returns a channel that
// receives its single Outcome and is then closed. Abandoning the channel
// and cancelling ctx discards the pending call.
func (s *Service) Submit(ctx context.Context, req Request) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		res, err := s.Enhance(ctx, req)
		ch <- Outcome{Result: res, Err: err}
	}()
	return ch
}

// DefaultBatchLimit caps how many batch requests wait on the server at once.
const DefaultBatchLimit = 4

// EnhanceBatch runs every request and returns one Outcome per request, in
// request order. A failed request does not stop the others; the batch
// only returns early when ctx is cancelled, in which case unfinished
// requests carry the context error.
func (s *Service) EnhanceBatch(ctx context.Context, reqs []Request, limit int) []Outcome {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	out := make([]Outcome, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, req := range reqs {
		if err := gctx.Err(); err != nil {
			out[i] = Outcome{Err: err}
			continue
		}
		g.Go(func() error {
			res, err := s.Enhance(gctx, req)
			out[i] = Outcome{Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

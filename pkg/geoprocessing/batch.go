package geoprocessing

import (
	"context"

	"golang.org/x/sync/errgroup"

	"yqhp/geoanalysis/common/utils"
)

// BatchResult is the outcome of one invocation of a batch.
type BatchResult struct {
	Invocation Invocation
	Result     *Result
	Err        error
}

// RunBatch runs independent invocations with at most concurrency jobs in flight.
// A failing job does not stop the others; results keep the order of invs.
func (s *Service) RunBatch(ctx context.Context, invs []Invocation, concurrency int) []BatchResult {
	out := make([]BatchResult, len(invs))

	var g errgroup.Group
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, inv := range invs {
		i, inv := i, inv
		g.Go(func() error {
			out[i].Invocation = inv
			out[i].Err = utils.SafeCall("geoprocessing.batch", func() error {
				res, err := s.Run(ctx, inv)
				out[i].Result = res
				return err
			})
			return nil
		})
	}
	_ = g.Wait()

	return out
}

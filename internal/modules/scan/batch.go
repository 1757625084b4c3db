package scan

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchExecute runs independent scans with at most parallelism running at once
// (0 or less means one per definition). Results keep the order of defs. A scan that
// fails records its error in Result.Err and does not stop the others.
func (s *Scanner) BatchExecute(ctx context.Context, defs []Definition, parallelism int) []*Result {
	results := make([]*Result, len(defs))

	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}

	for i, def := range defs {
		i, def := i, def // per-iteration copies (go directive is 1.21)
		g.Go(func() error {
			res, err := s.Execute(gctx, def)
			if err != nil {
				s.log.Error().Err(err).Str("scan", def.Name).Msg("Scan failed")
				res = &Result{Name: def.Name, Contract: def.Contract, Type: def.Type, Matches: []Match{}, Err: err}
			}
			results[i] = res
			return nil
		})
	}

	// Scans never return errors to the group; failures live on each Result.
	_ = g.Wait()

	return results
}

package dump

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ParseAll parses independent dumps in parallel, at most limit at a time
// (runtime.NumCPU when limit <= 0). Results keep the order of inputs. The
// first failing input cancels the rest.
func ParseAll(ctx context.Context, inputs []string, limit int, opts ...Option) ([]*Result, error) {
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	results := make([]*Result, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, input := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := Parse(input, opts...)
			if err != nil {
				return fmt.Errorf("input %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

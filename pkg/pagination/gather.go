package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// GatherConfig holds configuration for parallel page fetching.
type GatherConfig struct {
	// PerPage is the page size requested from the backend.
	PerPage int

	// MaxResults caps the total number of items gathered. Zero means all.
	MaxResults int

	// MaxConcurrency bounds the number of page fetches in flight.
	MaxConcurrency int
}

// DefaultGatherConfig returns safe gather defaults.
func DefaultGatherConfig() GatherConfig {
	return GatherConfig{
		PerPage:        25,
		MaxConcurrency: 5,
	}
}

// Gather fetches an entire result set with bounded concurrency and returns
// the items in page order. It first issues a count probe (per_page=1) to
// learn the total, plans the page fetches, and runs them through an error
// group. The result is identical to sequential iteration over the same
// backend, only faster.
func Gather[T any](ctx context.Context, fetch FetchFunc[T], config GatherConfig) ([]T, error) {
	if config.PerPage <= 0 {
		config.PerPage = 25
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 5
	}

	start := time.Now()

	probe, err := fetch(ctx, PageRequest{Page: 1, PerPage: 1})
	if err != nil {
		return nil, fmt.Errorf("count probe: %w", err)
	}

	total := probe.TotalCount
	if config.MaxResults > 0 && total > config.MaxResults {
		total = config.MaxResults
	}
	if total <= 0 {
		return nil, nil
	}

	pages := (total + config.PerPage - 1) / config.PerPage

	log.Debug().
		Int("total", total).
		Int("pages", pages).
		Int("concurrency", config.MaxConcurrency).
		Msg("Starting parallel page fetch")

	results := make([][]T, pages)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.MaxConcurrency)
	for i := 0; i < pages; i++ {
		i := i
		g.Go(func() error {
			page, err := fetch(gctx, PageRequest{Page: i + 1, PerPage: config.PerPage})
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			results[i] = page.Items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]T, 0, total)
	for _, items := range results {
		out = append(out, items...)
	}
	if len(out) > total {
		out = out[:total]
	}

	log.Debug().
		Int("items", len(out)).
		Int("pages", pages).
		Dur("duration", time.Since(start)).
		Msg("Parallel page fetch complete")

	return out, nil
}

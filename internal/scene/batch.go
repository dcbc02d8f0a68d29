package scene

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/san-kum/bulletx/internal/config"
	"github.com/san-kum/bulletx/internal/storage"
)

// RecordAll builds one scene per config, each on its own world, and records
// them concurrently. Runs come back in config order. The first failure
// cancels the others.
func RecordAll(ctx context.Context, cfgs []*config.Config, opts ...Option) ([]*storage.Run, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runs := make([]*storage.Run, len(cfgs))
	errs := make([]error, len(cfgs))

	var wg sync.WaitGroup
	for i, cfg := range cfgs {
		wg.Add(1)
		go func(idx int, cfg *config.Config) {
			defer wg.Done()

			s, err := New(cfg, opts...)
			if err == nil {
				runs[idx], err = s.Record(ctx)
			}
			if err != nil {
				errs[idx] = fmt.Errorf("scene %q: %w", cfg.Name, err)
				cancel()
			}
		}(i, cfg)
	}

	wg.Wait()

	// A sibling stopped by cancel reports context.Canceled; prefer the
	// failure that caused it.
	var first error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !errors.Is(err, context.Canceled) {
			return nil, err
		}
		if first == nil {
			first = err
		}
	}
	if first != nil {
		return nil, first
	}
	return runs, nil
}

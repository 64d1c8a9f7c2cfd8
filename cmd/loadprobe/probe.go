package main

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type result struct {
	OK      int
	Busy    int
	Other   int
	Errors  int
	Elapsed time.Duration
}

// run abre todas as requisições ao mesmo tempo e lê cada corpo até o fim.
func run(ctx context.Context, cfg probeConfig, logger zerolog.Logger) result {
	client := &http.Client{Timeout: cfg.Timeout}
	start := time.Now()

	var (
		mu  sync.Mutex
		res result
		wg  sync.WaitGroup
	)
	ready := make(chan struct{})

	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			<-ready

			code, err := fetch(ctx, client, cfg.URL)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				res.Errors++
				logger.Warn().Err(err).Int("probe", n).Msg("Request failed")
			case code == http.StatusOK:
				res.OK++
			case code == http.StatusServiceUnavailable:
				res.Busy++
			default:
				res.Other++
			}
			logger.Debug().Int("probe", n).Int("status", code).Msg("Request done")
		}(i)
	}
	close(ready)
	wg.Wait()

	res.Elapsed = time.Since(start)
	return res
}

func fetch(ctx context.Context, client *http.Client, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return resp.StatusCode, err
	}
	return resp.StatusCode, nil
}

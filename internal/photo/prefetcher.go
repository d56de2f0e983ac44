// Package photo warms pet photo URLs after a check cycle so chat
// embeds render from a hot CDN cache when announcements drain.
package photo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nooogy1/FantasyPetDiscord/internal/config"
	"github.com/nooogy1/FantasyPetDiscord/internal/observability/tracing"
)

const (
	fetchTimeout  = 8 * time.Second
	maxConcurrent = 4
	maxBodyBytes  = 1 << 20
)

// Prefetcher issues best-effort GETs against photo URLs. A failed
// prefetch costs nothing but a slower first embed, so errors are
// logged and swallowed.
type Prefetcher struct {
	client   *http.Client
	log      *zap.Logger
	sentinel string
}

type PrefetcherParams struct {
	fx.In

	Log    *zap.Logger
	Config config.Config
}

func NewPrefetcher(p PrefetcherParams) *Prefetcher {
	return &Prefetcher{
		client:   tracing.WrapHTTPClient(&http.Client{Timeout: fetchTimeout}),
		log:      p.Log.Named("photo.prefetch"),
		sentinel: p.Config.PhotoSentinelURL,
	}
}

// Warm fetches each distinct URL once with bounded concurrency. Blank
// and sentinel URLs are skipped.
func (p *Prefetcher) Warm(ctx context.Context, urls []string) {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrent)

	seen := make(map[string]struct{}, len(urls))
	for _, raw := range urls {
		url := strings.TrimSpace(raw)
		if url == "" || url == p.sentinel {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}

		group.Go(func() error {
			if err := p.fetch(ctx, url); err != nil {
				p.log.Debug("photo prefetch failed",
					zap.String("url", url),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = group.Wait()
}

func (p *Prefetcher) fetch(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("photo returned status %d", resp.StatusCode)
	}
	return nil
}

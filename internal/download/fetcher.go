// Package download moves a discovered clip's media onto local disk.
//
// Direct MP4 URLs stream straight to the clip's working directory; HLS
// playlists are remuxed to MP4 through ffmpeg without re-encoding. The stage
// validates that whatever arrived is a non-empty file before the clip
// advances.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"log/slog"

	"github.com/NovoNihilo/clipforge/internal/config"
	"github.com/NovoNihilo/clipforge/internal/fileutil"
	"github.com/NovoNihilo/clipforge/internal/logging"
	"github.com/NovoNihilo/clipforge/internal/services"
)

const (
	defaultMaxAttempts  = 3
	defaultFetchTimeout = 120 * time.Second

	retryBaseDelay = time.Second
	retryMaxDelay  = 30 * time.Second
)

// Fetcher retrieves remote media into a local file.
type Fetcher interface {
	FetchMedia(ctx context.Context, mediaURL, dest string) error
}

// HTTPFetcher streams media over HTTP with bounded retries. Rate limits,
// server errors, and network failures back off exponentially with jitter;
// other client errors fail immediately.
type HTTPFetcher struct {
	client      *http.Client
	maxAttempts int
	logger      *slog.Logger

	// sleeper replaces the backoff wait in tests.
	sleeper func(time.Duration)
}

// NewHTTPFetcher builds a fetcher from the download configuration.
func NewHTTPFetcher(cfg *config.Config, logger *slog.Logger) *HTTPFetcher {
	timeout := defaultFetchTimeout
	if cfg.Download.RequestTimeout > 0 {
		timeout = time.Duration(cfg.Download.RequestTimeout) * time.Second
	}
	attempts := cfg.Download.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	return &HTTPFetcher{
		client:      &http.Client{Timeout: timeout},
		maxAttempts: attempts,
		logger:      logging.NewComponentLogger(logger, "download-fetcher"),
	}
}

// FetchMedia downloads mediaURL into dest. The payload lands in a temporary
// sibling file first and is renamed into place only once complete, so a
// crashed attempt never leaves a plausible-looking partial file behind.
func (f *HTTPFetcher) FetchMedia(ctx context.Context, mediaURL, dest string) error {
	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		err := f.fetchOnce(ctx, mediaURL, dest)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) || attempt == f.maxAttempts {
			break
		}
		delay := backoffDelay(attempt)
		f.logger.Warn("download attempt failed; retrying",
			logging.Int("attempt", attempt),
			logging.Duration("backoff", delay),
			logging.Error(err))
		if err := f.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, mediaURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, "download", "fetch", fmt.Sprintf("Invalid media URL %q", mediaURL), err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "download", "fetch", "Media request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		marker := services.ErrExternalTool
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusRequestTimeout {
			marker = services.ErrTransient
		}
		return services.Wrap(marker, "download", "fetch",
			fmt.Sprintf("Media host returned %s", resp.Status), nil)
	}

	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "download", "fetch", fmt.Sprintf("Cannot create %s", tmp), err)
	}
	written, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		os.Remove(tmp)
		return services.Wrap(services.ErrTransient, "download", "fetch", "Media stream interrupted", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmp)
		return services.Wrap(services.ErrTransient, "download", "fetch", "Failed to flush media file", closeErr)
	}
	if written == 0 {
		os.Remove(tmp)
		return services.Wrap(services.ErrTransient, "download", "fetch", "Media host returned an empty body", nil)
	}
	if err := fileutil.MoveFile(tmp, dest); err != nil {
		os.Remove(tmp)
		return services.Wrap(services.ErrConfiguration, "download", "fetch", "Failed to move media into place", err)
	}
	return nil
}

func (f *HTTPFetcher) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if f.sleeper != nil {
		f.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryable reports whether another attempt could plausibly succeed.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, services.ErrTransient) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}

// backoffDelay doubles from the base per attempt, with jitter so simultaneous
// clients do not stampede a recovering host.
func backoffDelay(attempt int) time.Duration {
	delay := retryBaseDelay
	for i := 1; i < attempt; i++ {
		if delay > retryMaxDelay/2 {
			delay = retryMaxDelay
			break
		}
		delay *= 2
	}
	jitter := time.Duration(rand.Int63n(int64(retryBaseDelay)))
	if delay+jitter > retryMaxDelay {
		return retryMaxDelay
	}
	return delay + jitter
}

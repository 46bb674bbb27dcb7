package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/NovoNihilo/clipforge/internal/config"
)

const userAgent = "ClipForge/0.1.0"

// Service defines the notification surface exposed to the pipeline runner.
type Service interface {
	NotifyRunCompleted(ctx context.Context, profile string, packaged, failed int, duration time.Duration) error
	NotifyClipPackaged(ctx context.Context, title, creator string) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned. The
// per-event switches in the config decide which notifications actually go
// out; a disabled event is silently dropped rather than erroring.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		runComplete:  cfg.Notifications.RunComplete,
		clipPackaged: cfg.Notifications.ClipPackaged,
		errors:       cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	runComplete  bool
	clipPackaged bool
	errors       bool
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, profile string, packaged, failed int, duration time.Duration) error {
	if !n.runComplete {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	profile = strings.TrimSpace(profile)
	var title, message string
	priority := ""
	if failed == 0 {
		title = "ClipForge - Run Complete"
		message = fmt.Sprintf("✅ Run complete for %s: %d clips packaged in %s", profile, packaged, durationText)
	} else {
		title = "ClipForge - Run Complete (with failures)"
		message = fmt.Sprintf("Run complete for %s: %d packaged, %d failed in %s", profile, packaged, failed, durationText)
		priority = "high"
	}

	return n.send(ctx, payload{
		title:    title,
		message:  message,
		tags:     []string{"clipforge", "run", "completed"},
		priority: priority,
	})
}

func (n *ntfyService) NotifyClipPackaged(ctx context.Context, title, creator string) error {
	if !n.clipPackaged {
		return nil
	}
	title = strings.TrimSpace(title)
	creator = strings.TrimSpace(creator)
	message := fmt.Sprintf("📦 Packaged: %s", title)
	if creator != "" {
		message = fmt.Sprintf("%s (%s)", message, creator)
	}
	return n.send(ctx, payload{
		title:   "ClipForge - Clip Packaged",
		message: message,
		tags:    []string{"clipforge", "clip", "packaged"},
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	return n.send(ctx, payload{
		title:    "ClipForge - Error",
		message:  builder.String(),
		tags:     []string{"clipforge", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "ClipForge - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"clipforge", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, string, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyClipPackaged(context.Context, string, string) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error         { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }

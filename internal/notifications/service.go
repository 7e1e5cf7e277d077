package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"subextract/internal/config"
)

const (
	userAgent      = "subextract/0.1.0"
	titlePrefix    = "subextract - "
	defaultTimeout = 10 * time.Second
)

// Service is the admin alert surface used by the coordinator and daemon.
type Service interface {
	NotifyCriticalError(ctx context.Context, jobID string, err error) error
	NotifyInterrupted(ctx context.Context, count int) error
	NotifyDaemonStarted(ctx context.Context, workers int) error
	TestNotification(ctx context.Context) error
}

// NewService returns an ntfy publisher for notifications.ntfy_topic, or a
// service that drops everything when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil || strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return noopService{}
	}
	timeout := defaultTimeout
	if secs := cfg.Notifications.RequestTimeout; secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	return &ntfy{
		topicURL: strings.TrimSpace(cfg.Notifications.NtfyTopic),
		http:     &http.Client{Timeout: timeout},
	}
}

// alert is one ntfy message. Empty priority means ntfy's default.
type alert struct {
	title    string
	body     string
	priority string
	tags     []string
}

func (a alert) header() http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Title", titlePrefix+a.title)
	h.Set("Tags", strings.Join(append([]string{"subextract"}, a.tags...), ","))
	if a.priority != "" {
		h.Set("Priority", a.priority)
	}
	return h
}

type ntfy struct {
	topicURL string
	http     *http.Client
}

func (n *ntfy) NotifyCriticalError(ctx context.Context, jobID string, err error) error {
	subject := "Critical failure"
	if id := strings.TrimSpace(jobID); id != "" {
		subject += " in job " + id
	}
	cause := "unknown"
	if err != nil {
		cause = strings.TrimSpace(err.Error())
	}
	return n.publish(ctx, alert{
		title:    "Critical Error",
		body:     subject + ": " + cause,
		priority: "high",
		tags:     []string{"error", "alert"},
	})
}

func (n *ntfy) NotifyInterrupted(ctx context.Context, count int) error {
	switch {
	case count <= 0:
		return nil
	case count == 1:
		return n.publish(ctx, alert{
			title: "Jobs Interrupted",
			body:  "Marked 1 interrupted job as failed after restart",
			tags:  []string{"queue", "interrupted"},
		})
	default:
		return n.publish(ctx, alert{
			title: "Jobs Interrupted",
			body:  fmt.Sprintf("Marked %d interrupted jobs as failed after restart", count),
			tags:  []string{"queue", "interrupted"},
		})
	}
}

func (n *ntfy) NotifyDaemonStarted(ctx context.Context, workers int) error {
	return n.publish(ctx, alert{
		title:    "Started",
		body:     fmt.Sprintf("Daemon started with %d workers", workers),
		priority: "low",
		tags:     []string{"daemon", "started"},
	})
}

func (n *ntfy) TestNotification(ctx context.Context) error {
	return n.publish(ctx, alert{
		title:    "Test",
		body:     "Notification system test",
		priority: "low",
		tags:     []string{"test"},
	})
}

func (n *ntfy) publish(ctx context.Context, a alert) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.topicURL, strings.NewReader(a.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header = a.header()

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyCriticalError(context.Context, string, error) error { return nil }
func (noopService) NotifyInterrupted(context.Context, int) error             { return nil }
func (noopService) NotifyDaemonStarted(context.Context, int) error           { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }

package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"subextract/internal/config"
	"subextract/internal/fileutil"
	"subextract/internal/logging"
	"subextract/internal/services"
)

const (
	stageStaging     = "staging"
	downloadTimeout  = 10 * time.Minute
	subscriberBuffer = 32
)

// Gateway is the HTTP chat gateway's Messenger. It is safe for concurrent
// use by coordinator lanes and HTTP handlers.
type Gateway struct {
	inboxDir string
	maxBytes int64
	client   *http.Client
	events   *eventLogs
	logger   *slog.Logger
}

// NewGateway builds a gateway from the [paths] and [gateway] sections.
func NewGateway(cfg *config.Config, logger *slog.Logger) *Gateway {
	return &Gateway{
		inboxDir: cfg.Paths.InboxDir,
		maxBytes: int64(cfg.Gateway.MaxUploadMB) * 1024 * 1024,
		client:   &http.Client{Timeout: downloadTimeout},
		events:   newEventLogs(cfg.Gateway.EventBuffer),
		logger:   logging.NewComponentLogger(logger, "gateway"),
	}
}

// SetHTTPClient replaces the client used for http(s) references.
func (g *Gateway) SetHTTPClient(client *http.Client) {
	if client != nil {
		g.client = client
	}
}

// MaxUploadBytes returns the per-video size limit, 0 for unlimited.
func (g *Gateway) MaxUploadBytes() int64 {
	return g.maxBytes
}

// StoreUpload writes an uploaded video into the inbox and returns the
// reference a submission should carry.
func (g *Gateway) StoreUpload(r io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(g.inboxDir, 0o755); err != nil {
		return "", services.Critical(fmt.Errorf("create inbox: %w", err))
	}
	ext := Ref{Kind: RefFile, Value: filename}.Extension()
	token := uuid.NewString() + ext
	if _, err := fileutil.WriteLimited(r, filepath.Join(g.inboxDir, token), g.maxBytes); err != nil {
		if errors.Is(err, fileutil.ErrTooLarge) {
			return "", services.Wrap(services.ErrValidation, "gateway", "store upload", "video too large", err)
		}
		return "", fmt.Errorf("store upload: %w", err)
	}
	return UploadRef(token), nil
}

// DiscardUpload deletes the inbox file behind an upload reference. Other
// reference kinds and already removed uploads are ignored.
func (g *Gateway) DiscardUpload(ref string) error {
	token, ok := UploadToken(ref)
	if !ok {
		return nil
	}
	if err := os.Remove(filepath.Join(g.inboxDir, token)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("discard upload: %w", err)
	}
	return nil
}

// DownloadVideo resolves ref and writes the video to dst.
func (g *Gateway) DownloadVideo(ctx context.Context, ref, dst string) (int64, error) {
	parsed, err := ParseRef(ref)
	if err != nil {
		return 0, services.Wrap(services.ErrUnreadableMedia, stageStaging, "parse reference", "invalid video reference", err)
	}

	var written int64
	switch parsed.Kind {
	case RefUpload:
		written, err = fileutil.MoveFile(filepath.Join(g.inboxDir, parsed.Value), dst, g.maxBytes)
	case RefFile:
		written, err = fileutil.CopyFile(parsed.Value, dst, g.maxBytes)
	case RefHTTP:
		written, err = g.fetch(ctx, parsed.Value, dst)
	}
	if err != nil {
		return 0, services.Wrap(services.ErrUnreadableMedia, stageStaging, "download", fmt.Sprintf("fetch %s video", parsed.Kind), err)
	}
	if written == 0 {
		_ = os.Remove(dst)
		return 0, services.Wrap(services.ErrUnreadableMedia, stageStaging, "download", "video is empty", nil)
	}
	g.logger.Debug("video staged",
		logging.String("kind", string(parsed.Kind)),
		logging.Int64("bytes", written),
		logging.String("path", dst),
	)
	return written, nil
}

func (g *Gateway) fetch(ctx context.Context, rawURL, dst string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if g.maxBytes > 0 && resp.ContentLength > g.maxBytes {
		return 0, fmt.Errorf("%w: %d bytes", fileutil.ErrTooLarge, resp.ContentLength)
	}
	return fileutil.WriteLimited(resp.Body, dst, g.maxBytes)
}

// SendProgress appends a progress event.
func (g *Gateway) SendProgress(ctx context.Context, target, text string) error {
	return g.publish(ctx, Event{Target: target, Kind: EventProgress, Text: text})
}

// SendDocument appends a document event carrying data.
func (g *Gateway) SendDocument(ctx context.Context, target string, data []byte, filename string) error {
	if len(data) == 0 {
		return services.Wrap(services.ErrDelivery, "delivery", "send document", "empty document", nil)
	}
	payload := append([]byte(nil), data...)
	return g.publish(ctx, Event{
		Target:   target,
		Kind:     EventDocument,
		Text:     DocumentCaption,
		Filename: filename,
		Size:     len(payload),
		Data:     payload,
	})
}

// SendErrorNotice appends an error event.
func (g *Gateway) SendErrorNotice(ctx context.Context, target, text string) error {
	return g.publish(ctx, Event{Target: target, Kind: EventError, Text: text})
}

// Reply appends a command reply.
func (g *Gateway) Reply(ctx context.Context, target, text string) error {
	return g.publish(ctx, Event{Target: target, Kind: EventReply, Text: text})
}

// Events returns the retained events for target with a sequence number
// greater than since.
func (g *Gateway) Events(target string, since uint64) []Event {
	return g.events.since(strings.TrimSpace(target), since)
}

// Document returns the document event with the given sequence number.
func (g *Gateway) Document(target string, seq uint64) (Event, bool) {
	ev, ok := g.events.get(strings.TrimSpace(target), seq)
	if !ok || ev.Kind != EventDocument {
		return Event{}, false
	}
	return ev, true
}

// Subscribe streams new events for target until cancel is called. Slow
// subscribers miss events rather than block senders.
func (g *Gateway) Subscribe(target string) (<-chan Event, func()) {
	return g.events.subscribe(strings.TrimSpace(target), subscriberBuffer)
}

func (g *Gateway) publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return services.Wrap(services.ErrDelivery, "delivery", string(ev.Kind), "context done", err)
	}
	ev.Target = strings.TrimSpace(ev.Target)
	if ev.Target == "" {
		return services.Wrap(services.ErrDelivery, "delivery", string(ev.Kind), "delivery target is required", nil)
	}
	stored := g.events.append(ev)
	g.logger.Debug("event published",
		logging.String("target", stored.Target),
		logging.String("kind", string(stored.Kind)),
		logging.Int64("seq", int64(stored.Seq)),
	)
	return nil
}

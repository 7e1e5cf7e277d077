package testsupport

import (
	"context"
	"os"
	"sync"
)

// SentMessage records one outbound call on FakeMessenger.
type SentMessage struct {
	Kind     string
	Target   string
	Text     string
	Filename string
	Data     []byte
}

// FakeMessenger is an in-memory messaging.Messenger. DownloadVideo writes
// Payload to the destination unless DownloadErr is set.
type FakeMessenger struct {
	Payload     []byte
	DownloadErr error
	DocumentErr error
	ProgressErr error

	// OnDownload runs before the payload is written, letting tests block
	// or observe a job mid-flight.
	OnDownload func(ctx context.Context, ref string)

	mu        sync.Mutex
	sent      []SentMessage
	downloads []string
}

// NewFakeMessenger returns a messenger that serves a small placeholder video.
func NewFakeMessenger() *FakeMessenger {
	return &FakeMessenger{Payload: []byte("fake video payload")}
}

func (f *FakeMessenger) DownloadVideo(ctx context.Context, ref, dst string) (int64, error) {
	f.mu.Lock()
	f.downloads = append(f.downloads, ref)
	hook := f.OnDownload
	f.mu.Unlock()

	if hook != nil {
		hook(ctx, ref)
	}
	if f.DownloadErr != nil {
		return 0, f.DownloadErr
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := os.WriteFile(dst, f.Payload, 0o644); err != nil {
		return 0, err
	}
	return int64(len(f.Payload)), nil
}

func (f *FakeMessenger) SendProgress(_ context.Context, target, text string) error {
	f.record(SentMessage{Kind: "progress", Target: target, Text: text})
	return f.ProgressErr
}

func (f *FakeMessenger) SendDocument(_ context.Context, target string, data []byte, filename string) error {
	if f.DocumentErr != nil {
		return f.DocumentErr
	}
	f.record(SentMessage{Kind: "document", Target: target, Filename: filename, Data: append([]byte(nil), data...)})
	return nil
}

func (f *FakeMessenger) SendErrorNotice(_ context.Context, target, text string) error {
	f.record(SentMessage{Kind: "error", Target: target, Text: text})
	return nil
}

// Sent returns a snapshot of recorded messages.
func (f *FakeMessenger) Sent() []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentMessage(nil), f.sent...)
}

// SentOfKind returns recorded messages of one kind ("progress", "document", "error").
func (f *FakeMessenger) SentOfKind(kind string) []SentMessage {
	var out []SentMessage
	for _, msg := range f.Sent() {
		if msg.Kind == kind {
			out = append(out, msg)
		}
	}
	return out
}

// Downloads returns the references passed to DownloadVideo.
func (f *FakeMessenger) Downloads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.downloads...)
}

func (f *FakeMessenger) record(msg SentMessage) {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()
}

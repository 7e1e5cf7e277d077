package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"subextract/internal/api"
	"subextract/internal/bot"
	"subextract/internal/config"
	"subextract/internal/logging"
	"subextract/internal/messaging"
	"subextract/internal/queue"
	"subextract/internal/testsupport"
	"subextract/internal/workflow"
)

type fixture struct {
	cfg     *config.Config
	store   *queue.Store
	gateway *messaging.Gateway
	server  *api.Server
}

func newFixture(t *testing.T, token string) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Gateway.APIToken = token
	store := testsupport.MustOpenStore(t, cfg)
	gateway := messaging.NewGateway(cfg, logging.NewNop())
	coordinator := workflow.NewCoordinator(cfg, store, gateway, nil, logging.NewNop())
	commands := bot.New(coordinator, logging.NewNop())
	return &fixture{
		cfg:     cfg,
		store:   store,
		gateway: gateway,
		server:  api.NewServer(cfg, coordinator, gateway, commands, logging.NewNop()),
	}
}

func (f *fixture) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := f.server.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test %s %s: %v", req.Method, req.URL.Path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func jsonRequest(method, target, owner string, body any) *http.Request {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set("X-Owner-ID", owner)
	}
	return req
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, "secret")
	resp := f.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestSubmitVideoURLAndList(t *testing.T) {
	f := newFixture(t, "")
	resp := f.do(t, jsonRequest(http.MethodPost, "/api/jobs", "alice", api.SubmitRequest{VideoURL: "https://videos.example.com/clip.mp4"}))
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}
	var submitted api.SubmitResponse
	decode(t, resp, &submitted)
	if submitted.JobID == "" || !strings.HasPrefix(submitted.JobID, submitted.ShortID) {
		t.Fatalf("unexpected submit response %+v", submitted)
	}
	if submitted.Status != string(queue.StatusQueued) {
		t.Fatalf("status = %q, want queued", submitted.Status)
	}

	list := f.do(t, jsonRequest(http.MethodGet, "/api/jobs?prefix="+submitted.ShortID, "alice", nil))
	var jobs api.JobListResponse
	decode(t, list, &jobs)
	if len(jobs.Jobs) != 1 || jobs.Jobs[0].ID != submitted.JobID {
		t.Fatalf("unexpected list %+v", jobs)
	}

	other := f.do(t, jsonRequest(http.MethodGet, "/api/jobs", "bob", nil))
	var none api.JobListResponse
	decode(t, other, &none)
	if none.Jobs == nil || len(none.Jobs) != 0 {
		t.Fatalf("expected empty non-nil list for other owner, got %+v", none.Jobs)
	}
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t, "")
	tests := []struct {
		name  string
		owner string
		body  any
	}{
		{name: "missing owner", body: api.SubmitRequest{VideoURL: "https://videos.example.com/v.mp4"}},
		{name: "missing url", owner: "alice", body: api.SubmitRequest{}},
		{name: "bad url", owner: "alice", body: api.SubmitRequest{VideoURL: "ftp://host/v.mp4"}},
		{name: "local file", owner: "alice", body: api.SubmitRequest{VideoURL: "file:///etc/passwd"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, jsonRequest(http.MethodPost, "/api/jobs", tt.owner, tt.body))
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			var body api.ErrorResponse
			decode(t, resp, &body)
			if body.Error == "" {
				t.Fatal("expected error message")
			}
		})
	}
}

func TestSubmitRejectsLocalFileWithoutQueueing(t *testing.T) {
	f := newFixture(t, "")
	resp := f.do(t, jsonRequest(http.MethodPost, "/api/jobs", "mallory", api.SubmitRequest{VideoURL: "file:///etc/hostname"}))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	jobs, err := f.store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("rejected submission queued %d jobs", len(jobs))
	}
}

func TestSubmitMultipartUpload(t *testing.T) {
	f := newFixture(t, "")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "Clip.MP4")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("not really a video")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/jobs", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Owner-ID", "alice")
	req.Header.Set("X-Target-ID", "chat-7")

	resp := f.do(t, req)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	var submitted api.SubmitResponse
	decode(t, resp, &submitted)

	job, err := f.store.GetByID(context.Background(), submitted.JobID)
	if err != nil || job == nil {
		t.Fatalf("load job: %v", err)
	}
	if !strings.HasPrefix(job.VideoRef, "upload:") || !strings.HasSuffix(job.VideoRef, ".mp4") {
		t.Fatalf("unexpected video ref %q", job.VideoRef)
	}
	if job.TargetID != "chat-7" {
		t.Fatalf("target = %q, want chat-7", job.TargetID)
	}
	token := strings.TrimPrefix(job.VideoRef, "upload:")
	if _, err := os.Stat(filepath.Join(f.cfg.Paths.InboxDir, token)); err != nil {
		t.Fatalf("expected inbox file: %v", err)
	}
}

func TestBearerAuth(t *testing.T) {
	f := newFixture(t, "secret")

	resp := f.do(t, jsonRequest(http.MethodGet, "/api/jobs", "alice", nil))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token status = %d, want 401", resp.StatusCode)
	}

	req := jsonRequest(http.MethodGet, "/api/jobs", "alice", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	if resp := f.do(t, req); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d, want 401", resp.StatusCode)
	}

	req = jsonRequest(http.MethodGet, "/api/jobs", "alice", nil)
	req.Header.Set("Authorization", "Bearer secret")
	if resp := f.do(t, req); resp.StatusCode != http.StatusOK {
		t.Fatalf("good token status = %d, want 200", resp.StatusCode)
	}
}

func TestCommandRepliesAndRecordsEvent(t *testing.T) {
	f := newFixture(t, "")
	resp := f.do(t, jsonRequest(http.MethodPost, "/api/commands", "alice", api.CommandRequest{Text: "/start"}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("command status = %d", resp.StatusCode)
	}
	var reply api.CommandResponse
	decode(t, resp, &reply)
	if reply.Reply != bot.StartText {
		t.Fatalf("reply = %q", reply.Reply)
	}

	events := f.do(t, jsonRequest(http.MethodGet, "/api/targets/alice/events", "", nil))
	var got api.EventsResponse
	decode(t, events, &got)
	if len(got.Events) != 1 || got.Events[0].Kind != messaging.EventReply || got.Next != 1 {
		t.Fatalf("unexpected events %+v", got)
	}

	later := f.do(t, jsonRequest(http.MethodGet, "/api/targets/alice/events?since=1", "", nil))
	var empty api.EventsResponse
	decode(t, later, &empty)
	if len(empty.Events) != 0 || empty.Next != 1 {
		t.Fatalf("expected no newer events, got %+v", empty)
	}
}

func TestCancelRequiresPrefix(t *testing.T) {
	f := newFixture(t, "")
	resp := f.do(t, jsonRequest(http.MethodPost, "/api/jobs/cancel", "alice", nil))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCancelQueuedJob(t *testing.T) {
	f := newFixture(t, "")
	job := testsupport.NewJob(t, f.store, "alice")

	resp := f.do(t, jsonRequest(http.MethodPost, "/api/jobs/cancel?prefix="+job.ShortID(), "alice", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var report workflow.CancelReport
	decode(t, resp, &report)
	if report.NotFound || len(report.Outcomes) != 1 || report.Outcomes[0].Result != queue.CancelApplied {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestDocumentDownload(t *testing.T) {
	f := newFixture(t, "")
	if err := f.gateway.SendDocument(context.Background(), "alice", []byte("1\n00:00:01,000 --> 00:00:02,000\nHi\n"), "extracted_subtitles.srt"); err != nil {
		t.Fatalf("send document: %v", err)
	}

	resp := f.do(t, httptest.NewRequest(http.MethodGet, "/api/targets/alice/documents/1", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "extracted_subtitles.srt") {
		t.Fatalf("unexpected disposition %q", resp.Header.Get("Content-Disposition"))
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Hi") {
		t.Fatalf("unexpected body %q", body)
	}

	missing := f.do(t, httptest.NewRequest(http.MethodGet, "/api/targets/alice/documents/9", nil))
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("missing status = %d, want 404", missing.StatusCode)
	}
}

func TestStreamRequiresUpgrade(t *testing.T) {
	f := newFixture(t, "")
	resp := f.do(t, httptest.NewRequest(http.MethodGet, "/ws/targets/alice", nil))
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Fatalf("status = %d, want 426", resp.StatusCode)
	}
}

func TestStartServesHealth(t *testing.T) {
	f := newFixture(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := f.server.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.server.Stop()
	addr := f.server.Addr()
	if addr == "" || strings.HasSuffix(addr, ":0") {
		t.Fatalf("unexpected bound address %q", addr)
	}

	var resp *http.Response
	var err error
	for attempt := 0; attempt < 50; attempt++ {
		resp, err = http.Get("http://" + addr + "/health")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	f.server.Stop()
	if f.server.Addr() != "" {
		t.Fatal("expected empty address after Stop")
	}
}

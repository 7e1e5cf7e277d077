package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"subextract/internal/config"
	"subextract/internal/deps"
)

const checkTimeout = 5 * time.Second

func pass(name, format string, args ...any) Result {
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf(format, args...)}
}

func fail(name, format string, args ...any) Result {
	return Result{Name: name, Detail: fmt.Sprintf(format, args...)}
}

// CheckNtfy polls the topic once to confirm the ntfy server answers without
// credentials.
func CheckNtfy(ctx context.Context, topicURL string) Result {
	const name = "ntfy"

	topic := strings.TrimRight(strings.TrimSpace(topicURL), "/")
	if topic == "" {
		return fail(name, "missing topic url")
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, topic+"/json?poll=1&since=none", nil)
	if err != nil {
		return fail(name, "check failed (%v)", err)
	}
	resp, err := (&http.Client{Timeout: checkTimeout}).Do(req)
	if err != nil {
		return fail(name, "%s", describeCheckError(err))
	}
	defer resp.Body.Close()

	switch code := resp.StatusCode; {
	case code == http.StatusOK:
		return pass(name, "Reachable")
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fail(name, "topic requires authentication")
	default:
		return fail(name, "check failed (%d)", code)
	}
}

// CheckDirectoryAccess requires path to be an existing directory the daemon
// can list, read and write.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return fail(name, "not configured")
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fail(name, "%s (error: does not exist)", path)
	case err != nil:
		return fail(name, "%s (error: stat: %v)", path, err)
	case !info.IsDir():
		return fail(name, "%s (error: is not a directory)", path)
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fail(name, "%s (error: insufficient permissions: %v)", path, err)
	}
	return pass(name, "%s (read/write ok)", path)
}

// CheckSystemDeps looks up ffmpeg, ffprobe and tesseract as configured.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(ctx, []deps.Requirement{
		{Name: "FFmpeg", Command: cfg.Media.FFmpegBinary, Description: "Required for frame sampling", VersionArgs: []string{"-version"}},
		{Name: "FFprobe", Command: cfg.Media.FFprobeBinary, Description: "Required for media inspection", VersionArgs: []string{"-version"}},
		{Name: "Tesseract", Command: cfg.OCR.TesseractBinary, Description: "Required for text recognition", VersionArgs: []string{"--version"}},
	})
}

func describeCheckError(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "check timed out (server unresponsive)"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "check timed out (server unreachable)"
	default:
		return err.Error()
	}
}

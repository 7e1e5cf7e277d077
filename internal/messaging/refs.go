package messaging

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// RefKind identifies where a video reference points.
type RefKind string

const (
	RefUpload RefKind = "upload"
	RefFile   RefKind = "file"
	RefHTTP   RefKind = "http"
)

const uploadPrefix = "upload:"

// Ref is a parsed video reference.
type Ref struct {
	Kind  RefKind
	Value string
}

// ParseRef accepts upload:<token>, file:///abs/path and http(s):// URLs.
func ParseRef(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return Ref{}, fmt.Errorf("empty video reference")
	case strings.HasPrefix(raw, uploadPrefix):
		token := strings.TrimPrefix(raw, uploadPrefix)
		if token == "" || strings.ContainsAny(token, `/\`) || strings.HasPrefix(token, ".") {
			return Ref{}, fmt.Errorf("invalid upload token %q", token)
		}
		return Ref{Kind: RefUpload, Value: token}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Ref{}, fmt.Errorf("parse video reference: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "file":
		p := u.Path
		if !filepath.IsAbs(p) {
			return Ref{}, fmt.Errorf("file reference must be absolute: %q", raw)
		}
		return Ref{Kind: RefFile, Value: filepath.Clean(p)}, nil
	case "http", "https":
		if u.Host == "" {
			return Ref{}, fmt.Errorf("url reference missing host: %q", raw)
		}
		return Ref{Kind: RefHTTP, Value: u.String()}, nil
	default:
		return Ref{}, fmt.Errorf("unsupported video reference scheme %q", u.Scheme)
	}
}

// Extension returns the container extension implied by the reference,
// lowercased and including the leading dot, or "" when unknown.
func (r Ref) Extension() string {
	var name string
	switch r.Kind {
	case RefHTTP:
		if u, err := url.Parse(r.Value); err == nil {
			name = path.Base(u.Path)
		}
	default:
		name = filepath.Base(r.Value)
	}
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	return ext
}

// UploadRef formats an inbox token as a video reference.
func UploadRef(token string) string {
	return uploadPrefix + token
}

// UploadToken returns the inbox file name behind an upload reference.
func UploadToken(raw string) (string, bool) {
	ref, err := ParseRef(raw)
	if err != nil || ref.Kind != RefUpload {
		return "", false
	}
	return ref.Value, true
}

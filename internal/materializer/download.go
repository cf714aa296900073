package materializer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/snapetech/assetfetch/internal/httpclient"
	"github.com/snapetech/assetfetch/internal/naming"
	"github.com/snapetech/assetfetch/internal/platform"
	"github.com/snapetech/assetfetch/internal/safeurl"
)

const userAgent = "asset-fetch/1.0"

// Local writes media under Dir as <stem>.<Ext>. Dir is created on demand; an
// existing file for the same stem is replaced.
type Local struct {
	Dir    string
	Ext    string
	Client *http.Client
}

func (l *Local) dir() string {
	if l.Dir == "" {
		return DefaultDir
	}
	return l.Dir
}

func (l *Local) ext() string {
	if l.Ext == "" {
		return DefaultExt
	}
	return l.Ext
}

// Materialize GETs location with no credentials and stores the body verbatim.
// A non-2xx answer returns *platform.StatusError and touches nothing on disk.
// The body is streamed to a partial file unique to this call, which is renamed
// into place only after it has been read to EOF. Concurrent calls for the same
// stem each leave a complete file; the last rename wins.
func (l *Local) Materialize(ctx context.Context, location, stem string) (Artifact, error) {
	const op = "fetch media"
	if !safeurl.IsHTTPOrHTTPS(location) {
		return Artifact{}, fmt.Errorf("%w: %s: unsupported location %q", platform.ErrNotFound, op, safeurl.Redact(location))
	}
	client := l.Client
	if client == nil {
		client = httpclient.Default()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return Artifact{}, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return Artifact{}, &platform.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Artifact{}, &platform.StatusError{Op: op, Code: resp.StatusCode}
	}

	dir, ext := l.dir(), l.ext()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("%s: create output dir: %w", op, err)
	}
	finalPath := naming.Path(dir, stem, ext)
	partialPath, n, err := writePartial(dir, naming.PartialPattern(stem, ext), resp.Body)
	if err != nil {
		if partialPath != "" {
			os.Remove(partialPath)
		}
		var re *readError
		if errors.As(err, &re) {
			return Artifact{}, &platform.TransportError{Op: op, Err: re.err}
		}
		return Artifact{}, fmt.Errorf("%s: write partial in %s: %w", op, dir, err)
	}
	if err := os.Rename(partialPath, finalPath); err != nil {
		log.Printf("materializer: rename failed from=%q to=%q err=%v", partialPath, finalPath, err)
		os.Remove(partialPath)
		return Artifact{}, fmt.Errorf("%s: %w", op, err)
	}
	log.Printf("materializer: saved path=%q bytes=%d src=%s", finalPath, n, safeurl.Redact(location))
	return Artifact{Path: finalPath, Bytes: n}, nil
}

// readError marks a failure reading the response body, as opposed to writing
// the file.
type readError struct{ err error }

func (e *readError) Error() string { return "read body: " + e.err.Error() }
func (e *readError) Unwrap() error { return e.err }

type bodyReader struct{ r io.Reader }

func (b bodyReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err != nil && err != io.EOF {
		return n, &readError{err: err}
	}
	return n, err
}

// writePartial streams body into a new temp file in dir named after pattern
// and returns its path. The path is returned even on error so the caller can
// remove it.
func writePartial(dir, pattern string, body io.Reader) (string, int64, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", 0, err
	}
	path := f.Name()
	// CreateTemp uses 0600; saved media is as readable as a plain create.
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		return path, 0, err
	}
	n, err := io.Copy(f, bodyReader{r: body})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return path, n, err
}

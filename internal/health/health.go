// Package health checks that the platform hosts answer before a run.
package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/snapetech/assetfetch/internal/httpclient"
	"github.com/snapetech/assetfetch/internal/safeurl"
)

// DefaultTimeout bounds a check when the caller passes no client.
const DefaultTimeout = 15 * time.Second

// Target is one host to check.
type Target struct {
	Name string
	URL  string
}

// Report is the result of checking one Target.
type Report struct {
	Target
	Status  int
	Elapsed time.Duration
	Err     error
}

// OK reports whether the host answered without a server error. Client errors
// (401, 404) still prove the host is reachable.
func (r Report) OK() bool { return r.Err == nil && r.Status > 0 && r.Status < 500 }

// CheckHost issues a GET to rawURL and returns the status code. The body is
// drained and discarded.
func CheckHost(ctx context.Context, client *http.Client, rawURL string) (int, error) {
	if !safeurl.IsHTTPOrHTTPS(rawURL) {
		return 0, fmt.Errorf("not an http(s) url: %s", safeurl.Redact(rawURL))
	}
	if client == nil {
		client = httpclient.New(DefaultTimeout)
	}
	// Some hosts reject HEAD; use GET and drop the body.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("unreachable: %w", err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// CheckAll checks every target in order and returns one Report each.
func CheckAll(ctx context.Context, client *http.Client, targets []Target) []Report {
	out := make([]Report, 0, len(targets))
	for _, t := range targets {
		began := time.Now()
		status, err := CheckHost(ctx, client, t.URL)
		out = append(out, Report{Target: t, Status: status, Elapsed: time.Since(began), Err: err})
	}
	return out
}

// Package platform talks to the asset platform's public web APIs: asset
// details, creator game lists and the authenticated asset-delivery batch
// endpoint. Each lookup returns a typed error so callers can tell "the
// platform said no" (ErrNotFound) from "the network broke" (*TransportError).
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/snapetech/assetfetch/internal/httpclient"
)

const (
	DefaultDetailsBaseURL  = "https://economy.roproxy.com"
	DefaultGamesBaseURL    = "https://games.roblox.com"
	DefaultDeliveryBaseURL = "https://assetdelivery.roblox.com"

	// AssetTypeAudio is the asset type tag sent to the batch endpoint by default.
	AssetTypeAudio = "Audio"

	// maxBodyBytes caps JSON responses; the largest (a 100-entry game list) is
	// well under this.
	maxBodyBytes = 4 << 20
)

// CreatorKind distinguishes individual and group owners.
type CreatorKind string

const (
	KindUnknown CreatorKind = "Unknown"
	KindUser    CreatorKind = "User"
	KindGroup   CreatorKind = "Group"
)

func parseKind(s string) CreatorKind {
	switch CreatorKind(s) {
	case KindUser:
		return KindUser
	case KindGroup:
		return KindGroup
	default:
		return KindUnknown
	}
}

// Creator identifies the owner of an asset. ID is "" when unknown.
type Creator struct {
	ID   string
	Kind CreatorKind
}

// Known reports whether the creator can be used for a game-list lookup.
func (c Creator) Known() bool {
	return c.ID != "" && (c.Kind == KindUser || c.Kind == KindGroup)
}

func (c Creator) String() string {
	if c.ID == "" {
		return string(c.Kind)
	}
	return string(c.Kind) + ":" + c.ID
}

// Client holds endpoint base URLs and the HTTP client. The zero value talks to
// the public platform hosts through httpclient.Default().
type Client struct {
	HTTP            *http.Client
	DetailsBaseURL  string
	GamesBaseURL    string
	DeliveryBaseURL string
}

func (c *Client) http() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return httpclient.Default()
}

// Host is one endpoint group and the base URL this client sends it to.
type Host struct {
	Name    string
	BaseURL string
}

// Hosts returns the effective base URLs in the order the pipeline uses them.
func (c *Client) Hosts() []Host {
	return []Host{
		{Name: "details", BaseURL: baseOr(c.DetailsBaseURL, DefaultDetailsBaseURL)},
		{Name: "games", BaseURL: baseOr(c.GamesBaseURL, DefaultGamesBaseURL)},
		{Name: "delivery", BaseURL: baseOr(c.DeliveryBaseURL, DefaultDeliveryBaseURL)},
	}
}

func baseOr(s, def string) string {
	if s == "" {
		s = def
	}
	return strings.TrimSuffix(s, "/")
}

// doJSON issues req and decodes a 2xx JSON body into v. Non-2xx yields a
// *StatusError, network failure a *TransportError and a bad body ErrNotFound.
func (c *Client) doJSON(req *http.Request, op string, v any) error {
	resp, err := c.http().Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return &StatusError{Op: op, Code: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return notFoundf("%s: decode: %v", op, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, op, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	return c.doJSON(req, op, v)
}

// idString renders a JSON id that may arrive as a number or a string.
func idString(n json.Number) string {
	return strings.TrimSpace(n.String())
}

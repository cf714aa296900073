package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Headers the batch endpoint expects from a desktop client.
const (
	clientUserAgent    = "Roblox/WinInet"
	sessionCookieName  = ".ROBLOSECURITY"
	placeIDHeader      = "Roblox-Place-Id"
	browserAssetHeader = "Roblox-Browser-Asset-Request"
)

// LocationRequest is one media-location lookup.
type LocationRequest struct {
	AssetID    string
	PlaceID    string // sent as the place header when non-empty
	Credential string // session cookie value
	AssetType  string // defaults to AssetTypeAudio
	RequestID  string // correlation tag; a fresh UUID when empty
}

type batchItem struct {
	AssetID   string `json:"assetId"`
	AssetType string `json:"assetType"`
	RequestID string `json:"requestId"`
}

type batchResult struct {
	RequestID string `json:"requestId"`
	Locations []struct {
		AssetFormat string `json:"assetFormat"`
		Location    string `json:"location"`
	} `json:"locations"`
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// AssetLocation asks the batch endpoint for a signed, short-lived URL for one
// asset. The protocol allows several assets per call; exactly one is sent and
// only the first result element is read.
func (c *Client) AssetLocation(ctx context.Context, lr LocationRequest) (string, error) {
	const op = "asset location"
	if lr.AssetType == "" {
		lr.AssetType = AssetTypeAudio
	}
	if lr.RequestID == "" {
		lr.RequestID = uuid.NewString()
	}
	body, err := json.Marshal([]batchItem{{AssetID: lr.AssetID, AssetType: lr.AssetType, RequestID: lr.RequestID}})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	u := baseOr(c.DeliveryBaseURL, DefaultDeliveryBaseURL) + "/v2/assets/batch"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("User-Agent", clientUserAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	req.Header.Set(browserAssetHeader, "false")
	if lr.PlaceID != "" {
		req.Header.Set(placeIDHeader, lr.PlaceID)
	}
	// Set verbatim: http.Cookie would quote or drop characters the platform
	// puts in session values.
	req.Header.Set("Cookie", sessionCookieName+"="+lr.Credential)

	var results []batchResult
	if err := c.doJSON(req, op, &results); err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", notFoundf("%s: asset %s: empty batch response", op, lr.AssetID)
	}
	first := results[0]
	if len(first.Locations) == 0 || first.Locations[0].Location == "" {
		if msg := joinErrors(first); msg != "" {
			return "", notFoundf("%s: asset %s: %s", op, lr.AssetID, msg)
		}
		return "", notFoundf("%s: asset %s: no location", op, lr.AssetID)
	}
	return first.Locations[0].Location, nil
}

func joinErrors(r batchResult) string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, fmt.Sprintf("%d %s", e.Code, e.Message))
	}
	return strings.Join(msgs, "; ")
}

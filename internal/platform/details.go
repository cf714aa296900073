package platform

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/snapetech/assetfetch/internal/naming"
)

// AssetDetails is the subset of the asset-details document the pipeline reads.
type AssetDetails struct {
	Name    string `json:"Name"`
	Creator struct {
		CreatorTargetID json.Number `json:"CreatorTargetId"`
		CreatorType     string      `json:"CreatorType"`
		Name            string      `json:"Name"`
	} `json:"Creator"`
}

// Details fetches the asset-details document for assetID.
func (c *Client) Details(ctx context.Context, assetID string) (*AssetDetails, error) {
	u := baseOr(c.DetailsBaseURL, DefaultDetailsBaseURL) + "/v2/assets/" + url.PathEscape(assetID) + "/details"
	var d AssetDetails
	if err := c.getJSON(ctx, "asset details", u, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Creator resolves the owner of assetID. On any failure the returned Creator
// has Kind KindUnknown; the error says why. A document naming neither a user
// nor a group owner keeps whatever ID it carried and reports ErrNotFound.
func (c *Client) Creator(ctx context.Context, assetID string) (Creator, error) {
	d, err := c.Details(ctx, assetID)
	if err != nil {
		return Creator{Kind: KindUnknown}, err
	}
	cr := Creator{
		ID:   idString(d.Creator.CreatorTargetID),
		Kind: parseKind(d.Creator.CreatorType),
	}
	if !cr.Known() {
		return Creator{ID: cr.ID, Kind: KindUnknown}, notFoundf("asset %s: creator type %q id %q", assetID, d.Creator.CreatorType, cr.ID)
	}
	return cr, nil
}

// AssetName returns the display name of assetID, or naming.UnknownAsset with
// the error when the lookup fails or the name is empty. It always issues its
// own request; results are not shared with Creator.
func (c *Client) AssetName(ctx context.Context, assetID string) (string, error) {
	d, err := c.Details(ctx, assetID)
	if err != nil {
		return naming.UnknownAsset, err
	}
	if d.Name == "" {
		return naming.UnknownAsset, notFoundf("asset %s: empty name", assetID)
	}
	return d.Name, nil
}

package platform

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

const (
	userGamesLimit  = 50
	groupGamesLimit = 100
	// groupAccessFilter selects the group's public games.
	groupAccessFilter = "2"
)

type gamesPage struct {
	Data []struct {
		RootPlace *struct {
			ID json.Number `json:"id"`
		} `json:"rootPlace"`
	} `json:"data"`
}

// GamesURL returns the game-list URL for creator, or "" when the creator kind
// has no game list.
func (c *Client) GamesURL(creator Creator) string {
	base := baseOr(c.GamesBaseURL, DefaultGamesBaseURL)
	id := url.PathEscape(creator.ID)
	switch creator.Kind {
	case KindUser:
		q := url.Values{"sortOrder": {"Asc"}, "limit": {strconv.Itoa(userGamesLimit)}}
		return base + "/v2/users/" + id + "/games?" + q.Encode()
	case KindGroup:
		q := url.Values{"accessFilter": {groupAccessFilter}, "limit": {strconv.Itoa(groupGamesLimit)}, "sortOrder": {"Asc"}}
		return base + "/v2/groups/" + id + "/games?" + q.Encode()
	default:
		return ""
	}
}

// RootPlace returns the root place of the first game in the creator's
// ascending game list. The first-listed game is a heuristic for a place the
// batch endpoint will accept; other entries are not considered. Unknown
// creators return ErrNotFound without touching the network.
func (c *Client) RootPlace(ctx context.Context, creator Creator) (string, error) {
	if !creator.Known() {
		return "", notFoundf("no game list for creator %s", creator)
	}
	var page gamesPage
	if err := c.getJSON(ctx, "creator games", c.GamesURL(creator), &page); err != nil {
		return "", err
	}
	if len(page.Data) == 0 {
		return "", notFoundf("creator %s has no games", creator)
	}
	first := page.Data[0]
	if first.RootPlace == nil || idString(first.RootPlace.ID) == "" {
		return "", notFoundf("creator %s: first game has no root place", creator)
	}
	return idString(first.RootPlace.ID), nil
}

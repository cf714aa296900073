package platform

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapetech/assetfetch/internal/naming"
)

func newTestClient(t *testing.T, h http.Handler) (*Client, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		h.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return &Client{
		HTTP:            &http.Client{Timeout: 5 * time.Second},
		DetailsBaseURL:  srv.URL,
		GamesBaseURL:    srv.URL,
		DeliveryBaseURL: srv.URL,
	}, &hits
}

func TestCreator(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		want     Creator
		wantKind Outcome
	}{
		{"user", 200, `{"Name":"Epic Theme","Creator":{"CreatorTargetId":555,"CreatorType":"User"}}`, Creator{ID: "555", Kind: KindUser}, OutcomeOK},
		{"group", 200, `{"Creator":{"CreatorTargetId":7,"CreatorType":"Group"}}`, Creator{ID: "7", Kind: KindGroup}, OutcomeOK},
		{"string id", 200, `{"Creator":{"CreatorTargetId":"42","CreatorType":"User"}}`, Creator{ID: "42", Kind: KindUser}, OutcomeOK},
		{"other type", 200, `{"Creator":{"CreatorTargetId":9,"CreatorType":"Robot"}}`, Creator{ID: "9", Kind: KindUnknown}, OutcomeNotFound},
		{"no creator", 200, `{"Name":"x"}`, Creator{Kind: KindUnknown}, OutcomeNotFound},
		{"malformed", 200, `{not json`, Creator{Kind: KindUnknown}, OutcomeNotFound},
		{"404", 404, `{}`, Creator{Kind: KindUnknown}, OutcomeNotFound},
		{"500", 500, ``, Creator{Kind: KindUnknown}, OutcomeNotFound},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cl, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v2/assets/123456789/details", r.URL.Path)
				w.WriteHeader(c.status)
				io.WriteString(w, c.body)
			}))
			got, err := cl.Creator(context.Background(), "123456789")
			assert.Equal(t, c.want, got)
			assert.Equal(t, c.wantKind, Classify(err))
		})
	}
}

func TestCreator_transportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cl := &Client{HTTP: &http.Client{Timeout: time.Second}, DetailsBaseURL: url}
	got, err := cl.Creator(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, Creator{Kind: KindUnknown}, got)
	var te *TransportError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, OutcomeTransport, Classify(err))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestAssetName(t *testing.T) {
	cl, hits := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/assets/1/details":
			io.WriteString(w, `{"Name":"Epic Theme"}`)
		case "/v2/assets/2/details":
			io.WriteString(w, `{"Name":""}`)
		default:
			http.NotFound(w, r)
		}
	}))
	ctx := context.Background()

	name, err := cl.AssetName(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Epic Theme", name)

	name, err = cl.AssetName(ctx, "2")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, naming.UnknownAsset, name)

	name, err = cl.AssetName(ctx, "3")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, naming.UnknownAsset, name)

	assert.EqualValues(t, 3, atomic.LoadInt32(hits))
}

func TestGamesURL(t *testing.T) {
	cl := &Client{GamesBaseURL: "https://games.example/"}
	assert.Equal(t, "https://games.example/v2/users/555/games?limit=50&sortOrder=Asc",
		cl.GamesURL(Creator{ID: "555", Kind: KindUser}))
	assert.Equal(t, "https://games.example/v2/groups/7/games?accessFilter=2&limit=100&sortOrder=Asc",
		cl.GamesURL(Creator{ID: "7", Kind: KindGroup}))
	assert.Empty(t, cl.GamesURL(Creator{ID: "7", Kind: KindUnknown}))
}

func TestRootPlace(t *testing.T) {
	cases := []struct {
		name    string
		creator Creator
		status  int
		body    string
		path    string
		want    string
		outcome Outcome
	}{
		{"user first entry", Creator{"555", KindUser}, 200,
			`{"data":[{"rootPlace":{"id":999,"type":"Place"}},{"rootPlace":{"id":1000}}]}`,
			"/v2/users/555/games", "999", OutcomeOK},
		{"group", Creator{"7", KindGroup}, 200,
			`{"data":[{"rootPlace":{"id":"31337"}}]}`,
			"/v2/groups/7/games", "31337", OutcomeOK},
		{"empty list", Creator{"555", KindUser}, 200, `{"data":[]}`, "/v2/users/555/games", "", OutcomeNotFound},
		{"no root place", Creator{"555", KindUser}, 200, `{"data":[{"name":"x"}]}`, "/v2/users/555/games", "", OutcomeNotFound},
		{"malformed", Creator{"555", KindUser}, 200, `[`, "/v2/users/555/games", "", OutcomeNotFound},
		{"403", Creator{"555", KindUser}, 403, ``, "/v2/users/555/games", "", OutcomeNotFound},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cl, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, c.path, r.URL.Path)
				assert.Equal(t, "Asc", r.URL.Query().Get("sortOrder"))
				w.WriteHeader(c.status)
				io.WriteString(w, c.body)
			}))
			got, err := cl.RootPlace(context.Background(), c.creator)
			assert.Equal(t, c.want, got)
			assert.Equal(t, c.outcome, Classify(err))
		})
	}
}

func TestRootPlace_unknownCreatorNoNetwork(t *testing.T) {
	cl, hits := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":[{"rootPlace":{"id":1}}]}`)
	}))
	for _, cr := range []Creator{{Kind: KindUnknown}, {ID: "5", Kind: KindUnknown}, {ID: "", Kind: KindUser}, {ID: "5", Kind: "Robot"}} {
		got, err := cl.RootPlace(context.Background(), cr)
		assert.Empty(t, got)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestAssetLocation(t *testing.T) {
	var gotItems []batchItem
	var gotHeader http.Header
	cl, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/assets/batch", r.URL.Path)
		gotHeader = r.Header.Clone()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotItems))
		io.WriteString(w, `[{"requestId":"x","locations":[{"assetFormat":"source","location":"https://cdn.example/abc?sig=1"}]},{"locations":[{"location":"https://cdn.example/second"}]}]`)
	}))

	loc, err := cl.AssetLocation(context.Background(), LocationRequest{
		AssetID: "123456789", PlaceID: "999", Credential: "secret|value",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/abc?sig=1", loc)

	require.Len(t, gotItems, 1)
	assert.Equal(t, "123456789", gotItems[0].AssetID)
	assert.Equal(t, AssetTypeAudio, gotItems[0].AssetType)
	assert.NotEmpty(t, gotItems[0].RequestID)

	assert.Equal(t, "Roblox/WinInet", gotHeader.Get("User-Agent"))
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Equal(t, ".ROBLOSECURITY=secret|value", gotHeader.Get("Cookie"))
	assert.Equal(t, "999", gotHeader.Get("Roblox-Place-Id"))
	assert.Equal(t, "*/*", gotHeader.Get("Accept"))
	assert.Equal(t, "false", gotHeader.Get("Roblox-Browser-Asset-Request"))
}

func TestAssetLocation_customTypeNoPlace(t *testing.T) {
	var gotItems []batchItem
	var placeHeader []string
	cl, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		placeHeader = r.Header.Values("Roblox-Place-Id")
		json.NewDecoder(r.Body).Decode(&gotItems)
		io.WriteString(w, `[{"locations":[{"location":"https://cdn.example/a"}]}]`)
	}))
	_, err := cl.AssetLocation(context.Background(), LocationRequest{AssetID: "1", AssetType: "Video", RequestID: "req-1"})
	require.NoError(t, err)
	assert.Empty(t, placeHeader)
	require.Len(t, gotItems, 1)
	assert.Equal(t, "Video", gotItems[0].AssetType)
	assert.Equal(t, "req-1", gotItems[0].RequestID)
}

func TestAssetLocation_failures(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		outcome Outcome
		contain string
	}{
		{"empty array", 200, `[]`, OutcomeNotFound, "empty batch"},
		{"no locations", 200, `[{"requestId":"0"}]`, OutcomeNotFound, "no location"},
		{"empty location", 200, `[{"locations":[{"location":""}]}]`, OutcomeNotFound, "no location"},
		{"upstream errors", 200, `[{"errors":[{"code":403,"message":"Asset is not approved for the requester"}]}]`, OutcomeNotFound, "not approved"},
		{"malformed", 200, `{"oops":true}`, OutcomeNotFound, "decode"},
		{"401", 401, ``, OutcomeNotFound, "HTTP 401"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cl, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(c.status)
				io.WriteString(w, c.body)
			}))
			loc, err := cl.AssetLocation(context.Background(), LocationRequest{AssetID: "1"})
			assert.Empty(t, loc)
			assert.Equal(t, c.outcome, Classify(err))
			assert.ErrorContains(t, err, c.contain)
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, OutcomeOK, Classify(nil))
	assert.Equal(t, OutcomeNotFound, Classify(&StatusError{Op: "x", Code: 404}))
	assert.Equal(t, OutcomeTransport, Classify(&TransportError{Op: "x", Err: io.ErrUnexpectedEOF}))
	assert.Equal(t, OutcomeCanceled, Classify(&TransportError{Op: "x", Err: context.Canceled}))
	assert.Equal(t, OutcomeOther, Classify(errors.New("disk full")))
}

func TestHosts(t *testing.T) {
	c := &Client{GamesBaseURL: "http://127.0.0.1:9/"}
	hosts := c.Hosts()
	require.Len(t, hosts, 3)
	assert.Equal(t, Host{Name: "details", BaseURL: DefaultDetailsBaseURL}, hosts[0])
	assert.Equal(t, Host{Name: "games", BaseURL: "http://127.0.0.1:9"}, hosts[1])
	assert.Equal(t, Host{Name: "delivery", BaseURL: DefaultDeliveryBaseURL}, hosts[2])
}

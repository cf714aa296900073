package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/snapetech/assetfetch/internal/config"
	"github.com/snapetech/assetfetch/internal/ledger"
)

func clearAssetEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		k, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(k, config.EnvPrefix) {
			t.Setenv(k, "")
			os.Unsetenv(k)
		}
	}
}

// fakePlatform serves the details, games, batch and media endpoints for one
// asset (123) owned by group 42.
func fakePlatform(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/assets/123/details":
			io.WriteString(w, `{"Name":"Boss Fight?","Creator":{"CreatorTargetId":42,"CreatorType":"Group"}}`)
		case "/v2/groups/42/games":
			io.WriteString(w, `{"data":[{"rootPlace":{"id":31337}}]}`)
		case "/v2/assets/batch":
			io.WriteString(w, `[{"locations":[{"location":"`+srv.URL+`/media/123"}]}]`)
		case "/media/123":
			io.WriteString(w, "OggS-bytes")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCmdFetch_endToEnd(t *testing.T) {
	clearAssetEnv(t)
	srv := fakePlatform(t)
	dir := t.TempDir()
	t.Chdir(dir)
	cfgPath := writeConfig(t, dir, "roblox_cookie: c\n"+
		"details_base_url: "+srv.URL+"\n"+
		"games_base_url: "+srv.URL+"\n"+
		"delivery_base_url: "+srv.URL+"\n"+
		"ledger_path: state/ledger.db\n"+
		"metrics_addr: 127.0.0.1:0\n")

	failed, err := cmdFetch(context.Background(), cfgPath, []string{"123", "404"})
	if err != nil {
		t.Fatal(err)
	}
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
	got, err := os.ReadFile(filepath.Join("audio_files", "Boss_Fight.ogg"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "OggS-bytes" {
		t.Errorf("file = %q", got)
	}

	l, err := ledger.Open(filepath.Join("state", "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	entries, err := l.Recent(context.Background(), "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("ledger has %d entries, want 2", len(entries))
	}
	if entries[1].AssetID != "123" || entries[1].Outcome != "ok" || entries[1].PlaceID != "31337" {
		t.Errorf("first run entry = %+v", entries[1])
	}
	if entries[0].AssetID != "404" || entries[0].Outcome != "not_found" {
		t.Errorf("second run entry = %+v", entries[0])
	}

	if err := cmdHistory(context.Background(), cfgPath, "123", 5); err != nil {
		t.Errorf("history: %v", err)
	}
}

func TestCmdHistory_noLedger(t *testing.T) {
	clearAssetEnv(t)
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "roblox_cookie: c\n")
	if err := cmdHistory(context.Background(), cfgPath, "", 5); err == nil {
		t.Fatal("expected error without ledger_path")
	}
}

func TestCmdBot_disabled(t *testing.T) {
	clearAssetEnv(t)
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "discord_bot: false\n")
	if err := cmdBot(context.Background(), cfgPath); err == nil {
		t.Fatal("expected error when bot disabled")
	}
}

func TestBuildApp_optionalPartsOff(t *testing.T) {
	cfg := config.Default()
	a, err := buildApp(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if a.resolver.Observer != nil || a.resolver.Mirror != nil || len(a.resolver.Recorders) != 0 {
		t.Errorf("nothing optional should be wired: %+v", a.resolver)
	}
	if a.resolver.AssetType != "Audio" {
		t.Errorf("AssetType = %q", a.resolver.AssetType)
	}
}

func TestCmdCheck(t *testing.T) {
	clearAssetEnv(t)
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer up.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "details_base_url: "+up.URL+"\n"+
		"games_base_url: "+up.URL+"\n"+
		"delivery_base_url: "+down.URL+"\n")

	bad, err := cmdCheck(context.Background(), cfgPath, 0)
	if err != nil {
		t.Fatal(err)
	}
	if bad != 1 {
		t.Errorf("bad = %d, want 1", bad)
	}
}

func TestCheckTargets(t *testing.T) {
	cfg := config.Default()
	targets := checkTargets(newPlatformClient(cfg))
	if len(targets) != 3 {
		t.Fatalf("got %d targets", len(targets))
	}
	if targets[0].URL != "https://economy.roproxy.com/" {
		t.Errorf("details target = %q", targets[0].URL)
	}
}

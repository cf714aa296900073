// Integration test against the live platform. Skipped unless a cookie and a
// known audio asset ID are provided, e.g. in .env:
//
//	ASSETFETCH_ROBLOX_COOKIE=...
//	ASSETFETCH_TEST_ASSET_ID=...
//
// go test -v -run Integration ./cmd/asset-fetch
package main

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/snapetech/assetfetch/internal/config"
)

func TestIntegration_resolveLiveAsset(t *testing.T) {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		_, _ = config.LoadEnvFile(p)
	}
	assetID := os.Getenv("ASSETFETCH_TEST_ASSET_ID")
	if assetID == "" || os.Getenv("ASSETFETCH_ROBLOX_COOKIE") == "" {
		t.Skip("set ASSETFETCH_ROBLOX_COOKIE and ASSETFETCH_TEST_ASSET_ID to run")
	}
	dir := t.TempDir()
	cfg, err := config.Load(dir + "/config.yaml")
	if err != nil {
		t.Fatal(err)
	}
	cfg.OutputDir = dir
	cfg.LedgerPath = ""
	cfg.MetricsAddr = ""
	cfg.S3Bucket = ""

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	a, err := buildApp(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	res := a.resolver.Resolve(ctx, assetID)
	if !res.OK() {
		t.Fatalf("resolve %s: stage=%s creator=%s place=%q err=%v", assetID, res.Stage, res.Creator, res.PlaceID, res.Err)
	}
	fi, err := os.Stat(res.FilePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("saved %s (%d bytes) owner=%s place=%s", res.FilePath, fi.Size(), res.Creator, res.PlaceID)
}

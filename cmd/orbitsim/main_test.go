package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalsfoundry/orbitview/internal/logging"
)

func TestBackendStartupSmoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	cfg := Config{
		ListenAddress: lis.Addr().String(),
		TLETTL:        6 * time.Hour,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, logging.Noop(), lis)
	}()

	baseURL := "http://" + lis.Addr().String()
	resp := waitForPing(t, ctx, baseURL)
	var ping struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ping); err != nil {
		t.Fatalf("decode ping: %v", err)
	}
	resp.Body.Close()
	if !ping.OK {
		t.Fatalf("ping ok = false, want true")
	}

	listResp, err := http.Get(baseURL + "/api/satellites")
	if err != nil {
		t.Fatalf("GET /api/satellites: %v", err)
	}
	defer listResp.Body.Close()
	var listing struct {
		Satellites []struct {
			ID string `json:"id"`
		} `json:"satellites"`
	}
	if err := json.NewDecoder(listResp.Body).Decode(&listing); err != nil {
		t.Fatalf("decode satellites: %v", err)
	}
	if len(listing.Satellites) != 4 {
		t.Fatalf("satellite count = %d, want 4 (built-in registry)", len(listing.Satellites))
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("run returned error: %v", err)
	}
}

func TestLoadCatalogStoreFallsBackOnBadPath(t *testing.T) {
	store := loadCatalogStore(logging.Noop(), "/does/not/exist.json")
	if store.Len() != 4 {
		t.Fatalf("fallback catalog size = %d, want 4", store.Len())
	}
}

func TestLoadCatalogStoreReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	payload := `{"satellites":[{"id":"demo","name":"Demo Sat","norad_id":99999}]}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	store := loadCatalogStore(logging.Noop(), path)
	if store.Len() != 1 {
		t.Fatalf("catalog size = %d, want 1", store.Len())
	}
	if _, ok := store.Get("demo"); !ok {
		t.Fatalf("satellite demo not found in loaded catalog")
	}
}

func waitForPing(t *testing.T, ctx context.Context, baseURL string) *http.Response {
	t.Helper()
	for {
		resp, err := http.Get(baseURL + "/api/ping")
		if err == nil && resp.StatusCode == http.StatusOK {
			return resp
		}
		if err == nil {
			resp.Body.Close()
		}
		select {
		case <-ctx.Done():
			t.Fatalf("backend never answered ping: %v", ctx.Err())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

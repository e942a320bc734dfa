package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bobmcallan/bolsa/internal/common"
)

func TestWarmCache_LoadsArchive(t *testing.T) {
	configPath, dir := writeTestConfig(t)
	archiveDir := filepath.Join(dir, "data_cache")
	os.MkdirAll(archiveDir, 0755)
	dat := "R|BANCO NACIONAL DE CREDITO|BNC|2,50|2,75|0|0|0|0|0|0|1.200|3.300,00\n"
	if err := os.WriteFile(filepath.Join(archiveDir, "20250115.dat"), []byte(dat), 0644); err != nil {
		t.Fatal(err)
	}

	a, err := NewApp(configPath)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer a.Close()

	var buf bytes.Buffer
	warmCache(context.Background(), a.MarketService, 5, common.NewLoggerWithOutput("info", &buf))

	if !strings.Contains(buf.String(), "Warm cache: complete") {
		t.Fatalf("Expected completion log, got: %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"loaded":1`) {
		t.Errorf("Expected one archive loaded, got: %s", buf.String())
	}

	has, err := a.Storage.RecordStore().HasDay(context.Background(), "20250115")
	if err != nil || !has {
		t.Errorf("Expected warm cache to load the archive into the store (has=%v, err=%v)", has, err)
	}
}

func TestWarmCache_DisabledByEnv(t *testing.T) {
	t.Setenv("BOLSA_WARM_CACHE", "off")
	a := newTestApp(t)

	var buf bytes.Buffer
	warmCache(context.Background(), a.MarketService, 5, common.NewLoggerWithOutput("info", &buf))

	if !strings.Contains(buf.String(), "disabled via BOLSA_WARM_CACHE=off") {
		t.Errorf("Expected disabled log, got: %s", buf.String())
	}
	if strings.Contains(buf.String(), "Warm cache: starting") {
		t.Errorf("Warm cache must not start when disabled: %s", buf.String())
	}
}

func TestRefreshLatest_NothingInLookback(t *testing.T) {
	a := newTestApp(t)

	var buf bytes.Buffer
	refreshLatest(context.Background(), a.MarketService, common.NewLoggerWithOutput("info", &buf))

	if !strings.Contains(buf.String(), "no populated day in lookback window") {
		t.Errorf("Expected empty lookback log, got: %s", buf.String())
	}
}

func TestStartScheduler_StopsOnCancel(t *testing.T) {
	a := newTestApp(t)

	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		startScheduler(ctx, a.MarketService, common.NewLoggerWithOutput("info", &buf), time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Scheduler did not stop after cancel")
	}
	if !strings.Contains(buf.String(), "Scheduler: stopped") {
		t.Errorf("Expected stop log, got: %s", buf.String())
	}
}

package atg

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeDriver struct {
	mu        sync.Mutex
	available bool
	starts    int
	stops     int
}

func (f *fakeDriver) ConnectorAvailable(connectorID int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

func (f *fakeDriver) DriveStartTransaction(ctx context.Context, connectorID int, idTag string) error {
	f.mu.Lock()
	f.starts++
	f.mu.Unlock()
	return nil
}

func (f *fakeDriver) DriveStopTransaction(ctx context.Context, connectorID int) error {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
	return nil
}

func TestParseConfig_DecodesOpaqueMap(t *testing.T) {
	raw := map[string]interface{}{
		"enable":                         true,
		"minDelayBetweenTwoTransactions": float64(1),
		"maxDelayBetweenTwoTransactions": float64(2),
		"idTagList":                      []interface{}{"tag-a", "tag-b"},
	}
	cfg, err := ParseConfig(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Enable || cfg.MinDelaySeconds != 1 || cfg.MaxDelaySeconds != 2 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.IdTags) != 2 {
		t.Fatalf("expected 2 id tags, got %+v", cfg.IdTags)
	}
}

func TestParseConfig_NilMapIsDisabled(t *testing.T) {
	cfg, err := ParseConfig(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Enable {
		t.Fatal("expected disabled config for nil map")
	}
}

func TestDefaultGenerator_DisabledDoesNotStart(t *testing.T) {
	driver := &fakeDriver{available: true}
	g := New(Config{Enable: false}, driver, nil)
	g.Start([]int{1})
	if g.Started() {
		t.Fatal("expected disabled generator to never start")
	}
}

func TestDefaultGenerator_RunsStartStopCycle(t *testing.T) {
	driver := &fakeDriver{available: true}
	cfg := Config{Enable: true, MinDelaySeconds: 0, MaxDelaySeconds: 0, MinDurationSeconds: 0, MaxDurationSeconds: 0}
	g := New(cfg, driver, nil)

	g.Start([]int{1})
	if !g.Started() {
		t.Fatal("expected generator to report started")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		driver.mu.Lock()
		starts := driver.starts
		driver.mu.Unlock()
		if starts >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	g.Stop(nil)
	if g.Started() {
		t.Fatal("expected generator to report stopped after Stop")
	}

	driver.mu.Lock()
	defer driver.mu.Unlock()
	if driver.starts == 0 || driver.stops == 0 {
		t.Fatalf("expected at least one start/stop cycle, got starts=%d stops=%d", driver.starts, driver.stops)
	}
}

func TestDefaultGenerator_SkipsUnavailableConnector(t *testing.T) {
	driver := &fakeDriver{available: false}
	cfg := Config{Enable: true}
	g := New(cfg, driver, nil)
	g.Start([]int{1})
	time.Sleep(50 * time.Millisecond)
	g.Stop(nil)

	driver.mu.Lock()
	defer driver.mu.Unlock()
	if driver.starts != 0 {
		t.Fatalf("expected no starts while connector unavailable, got %d", driver.starts)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleDoc = `
log_buffer_size: 500
services:
  - name: web
    display: Web Server
    command: "python3 -m http.server 8000"
    directory: ./web
    environment:
      PORT: "8000"
    dependencies:
      - db
    restart:
      enabled: true
      cooloff: 5s
      max_restarts: 3
  - name: db
    image: postgres:16
stubs:
  - name: billing
    command: "sleep infinity"
agents:
  - name: loadgen
    scenario: steady-traffic
`

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "procwatch.yaml")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleDoc))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.LogBufferSize != 500 {
		t.Errorf("LogBufferSize = %d, want 500", cfg.LogBufferSize)
	}
	if len(cfg.Services) != 2 || len(cfg.Stubs) != 1 || len(cfg.Agents) != 1 {
		t.Fatalf("got %d services, %d stubs, %d agents",
			len(cfg.Services), len(cfg.Stubs), len(cfg.Agents))
	}

	web := cfg.Services[0]
	if web.Name != "web" || web.Display != "Web Server" {
		t.Errorf("unexpected service: %+v", web)
	}
	if !web.Restart.Enabled || web.Restart.Cooloff != 5*time.Second || web.Restart.MaxRestarts != 3 {
		t.Errorf("unexpected restart policy: %+v", web.Restart)
	}
	if web.Environment["PORT"] != "8000" {
		t.Errorf("environment not parsed: %+v", web.Environment)
	}
	if len(web.Dependencies) != 1 || web.Dependencies[0] != "db" {
		t.Errorf("dependencies not preserved: %+v", web.Dependencies)
	}

	db := cfg.Services[1]
	if db.Image != "postgres:16" {
		t.Errorf("image = %q", db.Image)
	}
	if db.Restart.Enabled {
		t.Error("restart policy should default to disabled")
	}
}

func TestLoadDefaultsLogBufferSize(t *testing.T) {
	cfg, err := Load(writeConfig(t, "services:\n  - name: a\n    command: sleep 1\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogBufferSize != DefaultLogBufferSize {
		t.Errorf("LogBufferSize = %d, want %d", cfg.LogBufferSize, DefaultLogBufferSize)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadStrictRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "services:\n  - name: a\n    command: sleep 1\n    restrat:\n      enabled: true\n")
	if _, err := LoadStrict(path); err == nil {
		t.Fatal("expected strict decode to reject unknown key")
	}
	// The lenient loader must accept the same document.
	if _, err := Load(path); err != nil {
		t.Fatalf("lenient load failed: %v", err)
	}
}

func TestLoadStrictParsesCooloff(t *testing.T) {
	cfg, err := LoadStrict(writeConfig(t, sampleDoc))
	if err != nil {
		t.Fatal(err)
	}
	got := cfg.Services[0].Restart
	if !got.Enabled || got.Cooloff != 5*time.Second || got.MaxRestarts != 3 {
		t.Errorf("unexpected restart policy: %+v", got)
	}
}

func TestRestartPolicyRejectsBadCooloff(t *testing.T) {
	doc := "services:\n  - name: a\n    command: sleep 1\n    restart:\n      cooloff: soon\n"
	if _, err := LoadStrict(writeConfig(t, doc)); err == nil {
		t.Fatal("expected error for unparseable cooloff")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantCount int
	}{
		{
			name: "valid",
			cfg: Config{
				Services: []Service{{Name: "web", Command: "sleep 1"}},
				Stubs:    []Stub{{Name: "billing", Image: "stub:v1"}},
			},
			wantCount: 0,
		},
		{
			name:      "empty name",
			cfg:       Config{Services: []Service{{Command: "sleep 1"}}},
			wantCount: 1,
		},
		{
			name: "duplicate name across services and stubs",
			cfg: Config{
				Services: []Service{{Name: "web", Command: "sleep 1"}},
				Stubs:    []Stub{{Name: "web", Command: "sleep 1"}},
			},
			wantCount: 1,
		},
		{
			name:      "neither image nor command",
			cfg:       Config{Services: []Service{{Name: "web"}}},
			wantCount: 1,
		},
		{
			name:      "agent without name",
			cfg:       Config{Agents: []Agent{{Scenario: "steady"}}},
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.cfg.Validate()
			if len(errs) != tt.wantCount {
				t.Errorf("got %d errors (%v), want %d", len(errs), errs, tt.wantCount)
			}
		})
	}
}

func TestContains(t *testing.T) {
	cfg := Config{
		Services: []Service{{Name: "web"}},
		Stubs:    []Stub{{Name: "billing"}},
	}
	for name, want := range map[string]bool{"web": true, "billing": true, "db": false} {
		if got := cfg.Contains(name); got != want {
			t.Errorf("Contains(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestWatcherFiresOncePerChange(t *testing.T) {
	path := writeConfig(t, sampleDoc)

	fired := make(chan struct{}, 16)
	w, err := NewWatcher(path, func() { fired <- struct{}{} })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte(sampleDoc+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not fire after write")
	}

	// Debounce: a burst of writes must not yield a second callback
	// after the quiet period settles.
	select {
	case <-fired:
		t.Fatal("watcher fired twice for one change")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestManagerReloadKeepsPreviousOnFailure(t *testing.T) {
	path := writeConfig(t, sampleDoc)
	m, err := NewManager(path, func() {})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	if err := os.WriteFile(path, []byte("services: [\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Reload(); err == nil {
		t.Fatal("expected reload of malformed document to fail")
	}
	if got := m.Current(); len(got.Services) != 2 {
		t.Errorf("previous config not preserved: %d services", len(got.Services))
	}
}

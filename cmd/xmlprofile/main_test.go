package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	db := filepath.Join(dir, "app.profile")
	logger := slog.New(slog.DiscardHandler)
	ctx := context.Background()

	a := writeFile(t, dir, "a.xml", `<config><server port="8080"/></config>`)
	b := writeFile(t, dir, "b.html", `<p class="x">hi</p>`)
	known := writeFile(t, dir, "known.xml", `<config><server port="9090"/></config>`)
	unknown := writeFile(t, dir, "unknown.xml", `<config><server><timeout/></server></config>`)

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"learn", []string{"learn", a, b}, 0},
		{"check known", []string{"check", known}, 0},
		{"check unknown", []string{"check", unknown}, 3},
		{"diff unknown", []string{"diff", unknown}, 3},
		{"children", []string{"children", "config"}, 0},
		{"values", []string{"values", "server", "port"}, 0},
		{"values arity", []string{"values", "server"}, 2},
		{"stats", []string{"stats"}, 0},
		{"ingestions", []string{"ingestions", "5"}, 0},
		{"normalize", []string{"normalize"}, 0},
		{"is-root", []string{"is-root", db, "config"}, 0},
		{"is-root missing", []string{"is-root", db, "server"}, 3},
		{"delete", []string{"delete", "html"}, 0},
		{"profiles", []string{"profiles"}, 0},
		{"unknown command", []string{"frobnicate"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := run(ctx, logger, "", db, tt.args)
			if code != tt.code {
				t.Fatalf("run(%v) = %d, %v; want code %d", tt.args, code, err, tt.code)
			}
			if tt.code == 0 && err != nil {
				t.Fatalf("run(%v): %v", tt.args, err)
			}
		})
	}

	list, err := os.ReadFile(filepath.Join(dir, "profiles.list"))
	if err != nil {
		t.Fatal(err)
	}
	if string(list) != db+"\n" {
		t.Errorf("registry = %q", list)
	}
}

func TestResolveConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, ".env", "XMLPROFILE_REGISTRY=/env/profiles.list\n")
	cfgFile := writeFile(t, dir, "x.yaml", "db_path: from-file.db\nmax_depth: 7\n")
	t.Cleanup(func() { os.Unsetenv("XMLPROFILE_REGISTRY") })

	cfg, err := resolveConfig(cfgFile, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "from-file.db" || cfg.MaxDepth != 7 || cfg.RegistryPath != "/env/profiles.list" {
		t.Errorf("cfg = %+v", cfg)
	}

	if cfg.CacheSize != 1024 || cfg.BusyTimeoutMS != 10000 {
		t.Errorf("defaults not applied: %+v", cfg)
	}

	os.Unsetenv("XMLPROFILE_REGISTRY")
	os.Remove(filepath.Join(dir, ".env"))
	cfg, _ = resolveConfig("", "")
	if cfg.DBPath != "profile.db" || cfg.RegistryPath != "profiles.list" {
		t.Errorf("empty config = %+v", cfg)
	}

	cfg, _ = resolveConfig(cfgFile, "flag.db")
	if cfg.DBPath != "flag.db" {
		t.Errorf("-db did not win: %+v", cfg)
	}
}

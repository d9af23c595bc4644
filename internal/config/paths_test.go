package config

import (
	"path/filepath"
	"testing"
)

func TestAbsoluteIsIndependentOfWorkingDirectory(t *testing.T) {
	before := Absolute("templates/index.html")

	chdir(t, t.TempDir())
	after := Absolute("templates/index.html")

	if before != after {
		t.Fatalf("expected stable result, got %s then %s", before, after)
	}
	if !filepath.IsAbs(after) {
		t.Fatalf("expected absolute path, got %s", after)
	}
	if want := filepath.Join(ProjectDir(), "templates", "index.html"); after != want {
		t.Fatalf("expected %s, got %s", want, after)
	}
}

func TestResolve(t *testing.T) {
	testCases := []struct {
		name string
		base string
		path string
		want string
	}{
		{name: "relative", base: "/srv/web", path: "static", want: "/srv/web/static"},
		{name: "normalises", base: "/srv/web", path: "./static/../templates//index.html", want: "/srv/web/templates/index.html"},
		{name: "parent", base: "/srv/web", path: "../logs/web.log", want: "/srv/logs/web.log"},
		{name: "empty", base: "/srv/web", path: "", want: "/srv/web"},
		{name: "absolute input", base: "/srv/web", path: "/etc/../var/log", want: "/var/log"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Resolve(tc.base, tc.path); got != filepath.FromSlash(tc.want) {
				t.Fatalf("Resolve(%q, %q) = %q, want %q", tc.base, tc.path, got, tc.want)
			}
		})
	}
}

func TestConfigAbsolute(t *testing.T) {
	cfg := Default()
	cfg.ProjectDir = "/opt/dispatcher2"
	if got := cfg.Absolute("static/css"); got != filepath.FromSlash("/opt/dispatcher2/static/css") {
		t.Fatalf("unexpected path %s", got)
	}

	cfg.ProjectDir = ""
	if got := cfg.Absolute("static"); got != Absolute("static") {
		t.Fatalf("expected fallback to ProjectDir, got %s", got)
	}
}

func TestLoadMakesRelativeProjectDirAbsolute(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	chdir(t, root)
	rel := "."

	cfg, err := Load(&CLIOverrides{ProjectDir: &rel})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !filepath.IsAbs(cfg.ProjectDir) {
		t.Fatalf("expected absolute project dir, got %s", cfg.ProjectDir)
	}
}

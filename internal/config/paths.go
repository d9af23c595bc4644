package config

import (
	"os"
	"path/filepath"
	"sync"
)

var (
	projectDirOnce sync.Once
	projectDir     string
)

// ProjectDir returns the directory holding the running executable, with symlinks
// resolved. It is computed once per process.
func ProjectDir() string {
	projectDirOnce.Do(func() {
		projectDir = detectProjectDir()
	})
	return projectDir
}

func detectProjectDir() string {
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		return filepath.Dir(exe)
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return string(filepath.Separator)
}

// Absolute returns the normalised absolute path of path anchored at ProjectDir.
// Existence is not checked.
func Absolute(path string) string {
	return Resolve(ProjectDir(), path)
}

// Absolute anchors path at the configured project directory.
func (c Config) Absolute(path string) string {
	base := c.ProjectDir
	if base == "" {
		base = ProjectDir()
	}
	return Resolve(base, path)
}

// Resolve joins path onto base and cleans the result. An absolute path ignores base.
func Resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(base, path))
}

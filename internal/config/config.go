// Package config derives the lint pipeline's view of the world from the
// host's mcglsl settings. A Config is an immutable snapshot; every settings
// change builds a fresh one and the server swaps the pointer, so consumers
// never see a half-updated configuration.
package config

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"

	"go.uber.org/zap/zapcore"

	"github.com/mcglsl/mcglsl-ls/internal/shader"
)

// DefaultValidatorName is handed to the OS for PATH resolution when
// glslangValidatorPath is not set.
const DefaultValidatorName = "glslangValidator"

// Diagnostic lines come out of the validator as <file>:<line>: <severity>:
// <message>. On windows the file portion may start with a drive letter,
// which the unix pattern would otherwise split on.
var (
	unixDiagPattern = regexp.MustCompile(`^(?P<file>[^:\n]+):(?P<line>\d+): (?P<severity>[A-Za-z]+): (?P<message>.+)$`)
	winDiagPattern  = regexp.MustCompile(`^(?P<file>(?:[A-Za-z]:)?[^:\n]+):(?P<line>\d+): (?P<severity>[A-Za-z]+): (?P<message>.+)$`)
)

// Config is everything the rest of the server needs to know about the
// environment: where the validator lives, where the pack lives, where
// staged copies go, and how to read validator output on this platform.
type Config struct {
	// ValidatorPath is the glslangValidator executable, either as an
	// absolute path or a bare name resolved through PATH at spawn time.
	ValidatorPath string

	// RootPath is the shader pack project root: the minecraftPath setting
	// when present, else the workspace root.
	RootPath string

	// ShadersDir is where include resolution starts: RootPath itself when
	// it already names a shaders directory, else RootPath/shaders.
	ShadersDir string

	// TempDir is the staging root, <OS temp>/<workspace name>/shaders.
	// Documents and their includes are mirrored under it before linting.
	TempDir string

	// IsWin records the platform the snapshot was built on.
	IsWin bool

	// Pattern matches one diagnostic line of validator output, with named
	// groups file, line, severity and message.
	Pattern *regexp.Regexp

	// LogLevel is the level requested through the logLevel setting.
	LogLevel zapcore.Level

	// Extensions is the set of file extensions treated as GLSL sources.
	Extensions map[string]struct{}
}

// Option overrides an environment probe during construction. Production
// code passes none; tests pin the temp root and platform.
type Option func(*options)

type options struct {
	tempRoot string
	goos     string
}

// WithTempRoot uses dir instead of os.TempDir as the staging parent.
func WithTempRoot(dir string) Option {
	return func(o *options) { o.tempRoot = dir }
}

// WithPlatform pretends the server runs on the given GOOS.
func WithPlatform(goos string) Option {
	return func(o *options) { o.goos = goos }
}

// New derives a Config from the mcglsl settings and the workspace root the
// host reported at initialize. An empty workspaceRoot means no folder is
// open and returns ErrNoWorkspace, since nothing path-dependent can be
// derived without one.
func New(settings Settings, workspaceRoot string, opts ...Option) (*Config, error) {
	if workspaceRoot == "" {
		return nil, ErrNoWorkspace
	}

	o := options{tempRoot: os.TempDir(), goos: runtime.GOOS}
	for _, opt := range opts {
		opt(&o)
	}

	root := settings.MinecraftPath
	if root == "" {
		root = workspaceRoot
	}

	cfg := &Config{
		ValidatorPath: settings.GlslangValidatorPath,
		RootPath:      root,
		ShadersDir:    shadersDir(root),
		TempDir:       filepath.Join(o.tempRoot, filepath.Base(workspaceRoot), "shaders"),
		IsWin:         o.goos == "windows",
		LogLevel:      parseLevel(settings.LogLevel),
		Extensions:    shader.ExtensionSet(settings.ExtraExtension...),
	}
	if cfg.ValidatorPath == "" {
		cfg.ValidatorPath = DefaultValidatorName
	}
	cfg.Pattern = unixDiagPattern
	if cfg.IsWin {
		cfg.Pattern = winDiagPattern
	}
	return cfg, nil
}

// shadersDir returns root unchanged when its last segment is already
// "shaders", so reapplying the rule to its own output is a no-op.
func shadersDir(root string) string {
	if filepath.Base(root) == "shaders" {
		return root
	}
	return filepath.Join(root, "shaders")
}

func parseLevel(s string) zapcore.Level {
	if s == "" {
		return zapcore.InfoLevel
	}
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

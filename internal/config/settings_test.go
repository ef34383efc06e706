package config

import (
	"errors"
	"strings"
	"testing"
)

func TestParseSettings(t *testing.T) {
	raw := map[string]any{
		"mcglsl": map[string]any{
			"glslangValidatorPath": "/usr/local/bin/glslangValidator",
			"minecraftPath":        "/home/user/pack",
			"logLevel":             "debug",
			"extraExtension":       []any{"inc"},
		},
	}

	settings, ok, err := ParseSettings(raw)
	if err != nil {
		t.Fatalf("ParseSettings failed: %v", err)
	}
	if !ok {
		t.Fatal("expected the mcglsl section to be recognized")
	}
	if settings.GlslangValidatorPath != "/usr/local/bin/glslangValidator" {
		t.Errorf("GlslangValidatorPath = %q", settings.GlslangValidatorPath)
	}
	if settings.MinecraftPath != "/home/user/pack" {
		t.Errorf("MinecraftPath = %q", settings.MinecraftPath)
	}
	if settings.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", settings.LogLevel)
	}
	if len(settings.ExtraExtension) != 1 || settings.ExtraExtension[0] != "inc" {
		t.Errorf("ExtraExtension = %v", settings.ExtraExtension)
	}
}

func TestParseSettingsForeignNamespace(t *testing.T) {
	raw := map[string]any{
		"editor": map[string]any{"tabSize": 2},
	}

	_, ok, err := ParseSettings(raw)
	if err != nil {
		t.Fatalf("ParseSettings failed: %v", err)
	}
	if ok {
		t.Error("payload without an mcglsl section must not be recognized as ours")
	}
}

func TestParseSettingsNilPayload(t *testing.T) {
	_, ok, err := ParseSettings(nil)
	if err != nil {
		t.Fatalf("ParseSettings failed: %v", err)
	}
	if ok {
		t.Error("nil payload must not be recognized as ours")
	}
}

func TestParseSettingsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		section map[string]any
		wantIn  string
	}{
		{
			name:    "unknown setting",
			section: map[string]any{"glslangPath": "/usr/bin/glslang"},
			wantIn:  "unknown setting",
		},
		{
			name:    "wrong type",
			section: map[string]any{"glslangValidatorPath": 42},
			wantIn:  "glslangValidatorPath",
		},
		{
			name:    "bad log level",
			section: map[string]any{"logLevel": "chatty"},
			wantIn:  "logLevel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := ParseSettings(map[string]any{"mcglsl": tt.section})
			if !ok {
				t.Fatal("invalid section should still be recognized as ours")
			}
			var settingsErr *SettingsError
			if !errors.As(err, &settingsErr) {
				t.Fatalf("expected *SettingsError, got %v", err)
			}
			if !strings.Contains(settingsErr.Error(), tt.wantIn) {
				t.Errorf("error %q does not mention %q", settingsErr.Error(), tt.wantIn)
			}
		})
	}
}

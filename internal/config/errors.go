package config

import (
	"errors"
)

// ErrNoWorkspace indicates the host opened no workspace folder, so neither
// the shaders directory nor the staging directory can be derived.
var ErrNoWorkspace = errors.New("no workspace is open")

// SettingsError reports an mcglsl settings section that failed validation.
// The server surfaces it to the user and keeps the previous configuration.
type SettingsError struct {
	Field   string
	Message string
}

func (e *SettingsError) Error() string {
	return "invalid mcglsl settings: " + e.Message
}

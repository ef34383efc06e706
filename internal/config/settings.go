package config

import (
	_ "embed"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"
)

// Namespace is the configuration section all our settings live under. A
// didChangeConfiguration payload without it belongs to some other extension.
const Namespace = "mcglsl"

// Settings is the mcglsl section of the host's configuration, as pushed
// over workspace/didChangeConfiguration or initializationOptions.
type Settings struct {
	GlslangValidatorPath string   `json:"glslangValidatorPath"`
	MinecraftPath        string   `json:"minecraftPath"`
	LogLevel             string   `json:"logLevel"`
	ExtraExtension       []string `json:"extraExtension"`
}

//go:embed settings_schema.json
var settingsSchema []byte

// ParseSettings extracts and validates the mcglsl section of a settings
// payload. ok reports whether the payload carried the section at all; when
// it did not, the change is not ours and the current configuration must
// stay untouched. A present but invalid section returns ok together with a
// *SettingsError describing the first problem worth telling the user about.
func ParseSettings(raw any) (settings Settings, ok bool, err error) {
	if raw == nil {
		return Settings{}, false, nil
	}

	payload, err := json.Marshal(raw)
	if err != nil {
		return Settings{}, false, fmt.Errorf("re-encoding settings payload: %w", err)
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(payload, &sections); err != nil {
		return Settings{}, false, fmt.Errorf("settings payload is not an object: %w", err)
	}

	section, found := sections[Namespace]
	if !found {
		return Settings{}, false, nil
	}

	if err := validateSettings(section); err != nil {
		return Settings{}, true, err
	}
	if err := json.Unmarshal(section, &settings); err != nil {
		return Settings{}, true, &SettingsError{Message: err.Error()}
	}
	return settings, true, nil
}

func validateSettings(section []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(settingsSchema)
	documentLoader := gojsonschema.NewBytesLoader(section)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validating settings: %w", err)
	}
	if result.Valid() || len(result.Errors()) == 0 {
		return nil
	}

	best := pickError(result.Errors())
	return &SettingsError{Field: best.Field(), Message: friendlyMessage(best)}
}

// The raw gojsonschema descriptions leak schema jargon into showMessage
// popups, so prefer the most actionable error and rephrase it in terms of
// the setting name.
var errorPriority = map[string]int{
	"additional_property_not_allowed": 1,
	"invalid_type":                    2,
	"enum":                            3,
	"required":                        4,
}

func pickError(errs []gojsonschema.ResultError) gojsonschema.ResultError {
	best := errs[0]
	bestRank := 999
	for _, e := range errs {
		if rank, found := errorPriority[e.Type()]; found && rank < bestRank {
			best = e
			bestRank = rank
		}
	}
	return best
}

func friendlyMessage(err gojsonschema.ResultError) string {
	switch err.Type() {
	case "additional_property_not_allowed":
		return fmt.Sprintf("unknown setting %v", err.Details()["property"])
	case "invalid_type":
		return fmt.Sprintf("setting %q must be of type %v", err.Field(), err.Details()["expected"])
	case "enum":
		return fmt.Sprintf("setting %q must be one of %v", err.Field(), err.Details()["allowed"])
	default:
		return err.Description()
	}
}

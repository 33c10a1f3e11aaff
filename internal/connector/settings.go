package connector

import (
	"encoding/json"
	"fmt"
	"strings"

	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
)

// Settings is the decrypted configuration of one provider. Each variant
// defines its own concrete type.
type Settings interface {
	Provider() integration.Provider
	// Validate returns a configuration *Error naming missing fields.
	Validate() error
}

// DecodeSettings maps a decrypted config object onto a typed settings struct.
func DecodeSettings(raw map[string]any, into any) error {
	if len(raw) == 0 {
		return nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := json.Unmarshal(encoded, into); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}
	return nil
}

// Field is a named setting value checked by Require.
type Field struct {
	Name  string
	Value string
}

// Require fails with a configuration error listing every blank field.
func Require(provider integration.Provider, fields ...Field) error {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.Value) == "" {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return Errorf(provider, CategoryConfiguration, "missing required settings: %s", strings.Join(missing, ", "))
}

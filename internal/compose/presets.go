package compose

import (
	_ "embed"
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

//go:embed presets.toml
var presetsTOML []byte

// Preset is a named starting point for a campaign's subject and body.
type Preset struct {
	Name    string `toml:"name" json:"name"`
	Label   string `toml:"label" json:"label"`
	Subject string `toml:"subject" json:"subject"`
	Body    string `toml:"body" json:"body"`
}

// Template returns the preset text with event-level tokens filled in.
// Per-recipient tokens stay in place for Expand.
func (p Preset) Template(event map[string]string) Template {
	return Expand(Template{Subject: p.Subject, Body: p.Body}, event)
}

var (
	presets  []Preset
	received Preset
)

func init() {
	var doc struct {
		Preset   []Preset `toml:"preset"`
		Received Preset   `toml:"received"`
	}
	if err := toml.Unmarshal(presetsTOML, &doc); err != nil {
		panic(fmt.Sprintf("compose: invalid presets.toml: %v", err))
	}
	presets = doc.Preset
	received = doc.Received
}

// Presets returns the preset catalogue in display order.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// LookupPreset finds a preset by name.
func LookupPreset(name string) (Preset, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// Package hardware serves the static options document used by the report
// forms: selectable CPUs, GPUs, resolutions and graphics presets.
package hardware

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Options struct {
	CPUs        []string `yaml:"cpus" json:"cpus"`
	GPUs        []string `yaml:"gpus" json:"gpus"`
	Resolutions []string `yaml:"resolutions" json:"resolutions"`
	Presets     []string `yaml:"presets" json:"presets"`
}

// DefaultOptions is served when no options document is available.
func DefaultOptions() Options {
	return Options{
		CPUs:        []string{"AMD Ryzen 5 5600", "Intel Core i5-12600K"},
		GPUs:        []string{"NVIDIA RTX 3060", "AMD RX 6700 XT"},
		Resolutions: []string{"1280x720", "1366x768", "1600x900", "1920x1080", "2560x1440", "3440x1440", "3840x2160"},
		Presets:     []string{"Ultra", "High", "Medium", "Low", "Custom"},
	}
}

// Load reads the YAML document at path. A missing file yields the defaults;
// a malformed one is an error. Empty sections are filled from the defaults.
func Load(path string) (Options, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultOptions(), nil
	}
	if err != nil {
		return Options{}, fmt.Errorf("failed to read hardware options: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (Options, error) {
	var opts Options
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return Options{}, fmt.Errorf("failed to parse hardware options: %w", err)
	}

	def := DefaultOptions()
	opts.CPUs = orDefault(clean(opts.CPUs), def.CPUs)
	opts.GPUs = orDefault(clean(opts.GPUs), def.GPUs)
	opts.Resolutions = orDefault(clean(opts.Resolutions), def.Resolutions)
	opts.Presets = orDefault(clean(opts.Presets), def.Presets)
	return opts, nil
}

// IsKnownPreset reports whether preset is one of the listed presets.
// Free-text presets are still accepted by the forms.
func (o Options) IsKnownPreset(preset string) bool {
	for _, p := range o.Presets {
		if strings.EqualFold(p, preset) {
			return true
		}
	}
	return false
}

func clean(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func orDefault(values, def []string) []string {
	if len(values) == 0 {
		return def
	}
	return values
}

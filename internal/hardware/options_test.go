package hardware

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	opts, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), opts)
}

func TestLoad_FillsEmptySections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hardware.yaml")
	doc := "cpus:\n  - Ryzen 7 7800X3D\n  - '  '\ngpus: []\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	opts, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Ryzen 7 7800X3D"}, opts.CPUs)
	assert.Equal(t, DefaultOptions().GPUs, opts.GPUs)
	assert.Equal(t, DefaultOptions().Presets, opts.Presets)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("cpus: [unterminated"))
	assert.Error(t, err)
}

func TestLoad_ShippedDocument(t *testing.T) {
	opts, err := Load("../../assets/hardware.yaml")
	require.NoError(t, err)
	assert.Contains(t, opts.GPUs, "NVIDIA RTX 4090")
	assert.True(t, opts.IsKnownPreset("ultra"))
	assert.False(t, opts.IsKnownPreset("Potato"))
}

func TestSuggestPreset(t *testing.T) {
	cases := map[string]string{
		"NVIDIA RTX 4090":    "Ultra",
		"AMD RX 6800 XT":     "Ultra",
		"NVIDIA RTX 3060 Ti": "High",
		"AMD RX 6700 XT":     "High",
		"NVIDIA GTX 1650":    "Medium",
		"":                   "",
	}
	for gpu, want := range cases {
		assert.Equal(t, want, SuggestPreset(gpu), gpu)
	}
}

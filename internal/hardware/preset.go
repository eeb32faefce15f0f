package hardware

import "strings"

var (
	highEndGPUs = []string{"RTX 3080", "RTX 3090", "RTX 4070", "RTX 4080", "RTX 4090", "RX 6800", "RX 6900", "RX 6950", "RX 7900"}
	midEndGPUs  = []string{"RTX 3060", "RTX 3070", "RTX 3060 Ti", "RTX 3070 Ti", "RX 6700", "RX 6750", "RX 6800 XT"}
)

// SuggestPreset guesses a graphics preset from the GPU name.
// High-end families are checked first, so "RX 6800 XT" lands on Ultra.
func SuggestPreset(gpu string) string {
	switch {
	case strings.TrimSpace(gpu) == "":
		return ""
	case containsAny(gpu, highEndGPUs):
		return "Ultra"
	case containsAny(gpu, midEndGPUs):
		return "High"
	default:
		return "Medium"
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

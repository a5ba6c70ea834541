package tabular

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"fieldtrack/internal/model"
)

// ColorHex model.Color -> "#RRGGBB"
func ColorHex(c model.Color) string {
	return fmt.Sprintf("#%02X%02X%02X", channel(c.R), channel(c.G), channel(c.B))
}

func channel(v float64) int {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return int(math.Round(v * 255))
}

// ParseHexColor 解析 "#RRGGBB" / "RRGGBB" / "FFRRGGBB"(ARGB)
func ParseHexColor(s string) (model.Color, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 8 {
		s = s[2:]
	}
	if len(s) != 6 {
		return model.Color{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return model.Color{}, false
	}
	return model.Color{
		R: float64((v>>16)&0xFF) / 255,
		G: float64((v>>8)&0xFF) / 255,
		B: float64(v&0xFF) / 255,
	}, true
}

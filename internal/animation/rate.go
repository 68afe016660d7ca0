package animation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fogleman/ease"

	"github.com/ivlev/animscene/internal/scene"
)

var ErrUnknownRate = errors.New("unknown rate function")

// Linear leaves progress unchanged.
func Linear(t float64) float64 { return t }

// Smooth is the smoothstep curve: zero slope at both ends.
func Smooth(t float64) float64 {
	t = clamp01(t)
	return t * t * (3 - 2*t)
}

// ThereAndBack runs a smooth curve to 1 at the midpoint and back to 0.
func ThereAndBack(t float64) float64 {
	if t < 0.5 {
		return Smooth(2 * t)
	}
	return Smooth(2 - 2*t)
}

var rates = map[string]scene.RateFunc{
	"linear":       Linear,
	"smooth":       Smooth,
	"thereandback": ThereAndBack,
	"inquad":       ease.InQuad,
	"outquad":      ease.OutQuad,
	"inoutquad":    ease.InOutQuad,
	"incubic":      ease.InCubic,
	"outcubic":     ease.OutCubic,
	"inoutcubic":   ease.InOutCubic,
	"insine":       ease.InSine,
	"outsine":      ease.OutSine,
	"inoutsine":    ease.InOutSine,
	"inexpo":       ease.InExpo,
	"outexpo":      ease.OutExpo,
	"inoutexpo":    ease.InOutExpo,
	"incirc":       ease.InCirc,
	"outcirc":      ease.OutCirc,
	"inoutcirc":    ease.InOutCirc,
	"inelastic":    ease.InElastic,
	"outelastic":   ease.OutElastic,
	"inoutelastic": ease.InOutElastic,
	"inback":       ease.InBack,
	"outback":      ease.OutBack,
	"inoutback":    ease.InOutBack,
	"inbounce":     ease.InBounce,
	"outbounce":    ease.OutBounce,
	"inoutbounce":  ease.InOutBounce,
}

// Rate looks up a rate function by name. Case, '_' and '-' are ignored, so
// "in_out_quad", "InOutQuad" and "in-out-quad" are the same curve. An empty
// name is Smooth.
func Rate(name string) (scene.RateFunc, error) {
	if name == "" {
		return Smooth, nil
	}
	key := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(name))
	if fn, ok := rates[key]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRate, name)
}

// RateNames lists the accepted names in sorted order.
func RateNames() []string {
	names := make([]string, 0, len(rates))
	for name := range rates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

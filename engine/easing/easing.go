// Package easing provides the interpolation curves used to shape motion between keyframe values.
package easing

import (
	"math"
	"sort"
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/common"
)

// Func maps a normalized progress t in [0, 1] between p0 and p1 to an interpolated value.
type Func func(p0, p1, t float64) float64

// Curve reshapes normalized progress. Curves are turned into Funcs with FromCurve.
type Curve func(t float64) float64

// FromCurve wraps a progress curve as an easing Func that lerps p0 toward p1 by the eased progress.
//
// Parameters:
//   - c: the progress curve
//
// Returns:
//   - Func: the easing function
func FromCurve(c Curve) Func {
	return func(p0, p1, t float64) float64 {
		return common.Lerp(p0, p1, c(t))
	}
}

// Linear is the default easing function.
func Linear(p0, p1, t float64) float64 {
	return common.Lerp(p0, p1, t)
}

// Step holds p0 until the end of the segment.
func Step(p0, p1, t float64) float64 {
	if t >= 1 {
		return p1
	}
	return p0
}

const (
	backC1    = 1.70158
	backC2    = backC1 * 1.525
	backC3    = backC1 + 1
	elasticC4 = (2 * math.Pi) / 3
	elasticC5 = (2 * math.Pi) / 4.5
)

func bounceOut(t float64) float64 {
	const n1, d1 = 7.5625, 2.75
	switch {
	case t < 1/d1:
		return n1 * t * t
	case t < 2/d1:
		t -= 1.5 / d1
		return n1*t*t + 0.75
	case t < 2.5/d1:
		t -= 2.25 / d1
		return n1*t*t + 0.9375
	default:
		t -= 2.625 / d1
		return n1*t*t + 0.984375
	}
}

var curves = map[string]Curve{
	"sine_in":     func(t float64) float64 { return 1 - math.Cos(t*math.Pi/2) },
	"sine_out":    func(t float64) float64 { return math.Sin(t * math.Pi / 2) },
	"sine_in_out": func(t float64) float64 { return -(math.Cos(math.Pi*t) - 1) / 2 },

	"quad_in":  func(t float64) float64 { return t * t },
	"quad_out": func(t float64) float64 { return 1 - (1-t)*(1-t) },
	"quad_in_out": func(t float64) float64 {
		if t < 0.5 {
			return 2 * t * t
		}
		return 1 - math.Pow(-2*t+2, 2)/2
	},

	"cubic_in":  func(t float64) float64 { return t * t * t },
	"cubic_out": func(t float64) float64 { return 1 - math.Pow(1-t, 3) },
	"cubic_in_out": func(t float64) float64 {
		if t < 0.5 {
			return 4 * t * t * t
		}
		return 1 - math.Pow(-2*t+2, 3)/2
	},

	"quart_in":  func(t float64) float64 { return math.Pow(t, 4) },
	"quart_out": func(t float64) float64 { return 1 - math.Pow(1-t, 4) },
	"quart_in_out": func(t float64) float64 {
		if t < 0.5 {
			return 8 * math.Pow(t, 4)
		}
		return 1 - math.Pow(-2*t+2, 4)/2
	},

	"quint_in":  func(t float64) float64 { return math.Pow(t, 5) },
	"quint_out": func(t float64) float64 { return 1 - math.Pow(1-t, 5) },
	"quint_in_out": func(t float64) float64 {
		if t < 0.5 {
			return 16 * math.Pow(t, 5)
		}
		return 1 - math.Pow(-2*t+2, 5)/2
	},

	"expo_in": func(t float64) float64 {
		if t == 0 {
			return 0
		}
		return math.Pow(2, 10*t-10)
	},
	"expo_out": func(t float64) float64 {
		if t == 1 {
			return 1
		}
		return 1 - math.Pow(2, -10*t)
	},
	"expo_in_out": func(t float64) float64 {
		switch {
		case t == 0, t == 1:
			return t
		case t < 0.5:
			return math.Pow(2, 20*t-10) / 2
		default:
			return (2 - math.Pow(2, -20*t+10)) / 2
		}
	},

	"circ_in":  func(t float64) float64 { return 1 - math.Sqrt(1-t*t) },
	"circ_out": func(t float64) float64 { return math.Sqrt(1 - (t-1)*(t-1)) },
	"circ_in_out": func(t float64) float64 {
		if t < 0.5 {
			return (1 - math.Sqrt(1-math.Pow(2*t, 2))) / 2
		}
		return (math.Sqrt(1-math.Pow(-2*t+2, 2)) + 1) / 2
	},

	"back_in":  func(t float64) float64 { return backC3*t*t*t - backC1*t*t },
	"back_out": func(t float64) float64 { return 1 + backC3*math.Pow(t-1, 3) + backC1*math.Pow(t-1, 2) },
	"back_in_out": func(t float64) float64 {
		if t < 0.5 {
			return (math.Pow(2*t, 2) * ((backC2+1)*2*t - backC2)) / 2
		}
		return (math.Pow(2*t-2, 2)*((backC2+1)*(t*2-2)+backC2) + 2) / 2
	},

	"elastic_in": func(t float64) float64 {
		if t == 0 || t == 1 {
			return t
		}
		return -math.Pow(2, 10*t-10) * math.Sin((t*10-10.75)*elasticC4)
	},
	"elastic_out": func(t float64) float64 {
		if t == 0 || t == 1 {
			return t
		}
		return math.Pow(2, -10*t)*math.Sin((t*10-0.75)*elasticC4) + 1
	},
	"elastic_in_out": func(t float64) float64 {
		switch {
		case t == 0, t == 1:
			return t
		case t < 0.5:
			return -(math.Pow(2, 20*t-10) * math.Sin((20*t-11.125)*elasticC5)) / 2
		default:
			return (math.Pow(2, -20*t+10)*math.Sin((20*t-11.125)*elasticC5))/2 + 1
		}
	},

	"bounce_in":  func(t float64) float64 { return 1 - bounceOut(1-t) },
	"bounce_out": bounceOut,
	"bounce_in_out": func(t float64) float64 {
		if t < 0.5 {
			return (1 - bounceOut(1-2*t)) / 2
		}
		return (1 + bounceOut(2*t-1)) / 2
	},
}

// Lookup resolves an easing function by name. Names are case-insensitive and accept either
// snake_case ("sine_in_out") or the camel form used by common authoring tools ("easeInOutSine").
// An empty name resolves to nil so callers can fall through to their own default.
//
// Parameters:
//   - name: the easing name
//
// Returns:
//   - Func: the easing function, nil for an empty name
//   - bool: false if the name is non-empty and unknown
func Lookup(name string) (Func, bool) {
	key := normalize(name)
	switch key {
	case "":
		return nil, true
	case "linear":
		return Linear, true
	case "step":
		return Step, true
	}
	c, ok := curves[key]
	if !ok {
		return nil, false
	}
	return FromCurve(c), true
}

// Names returns every registered easing name, sorted.
//
// Returns:
//   - []string: the easing names
func Names() []string {
	out := make([]string, 0, len(curves)+2)
	out = append(out, "linear", "step")
	for k := range curves {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// normalize folds "easeInOutSine", "EASE_IN_OUT_SINE" and "sine_in_out" onto the same key.
func normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "-", "_")
	if !strings.HasPrefix(s, "ease") {
		return s
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "ease"), "_")

	var mode string
	for _, m := range []string{"in_out_", "inout", "in_", "out_", "in", "out"} {
		if strings.HasPrefix(s, m) {
			mode = strings.TrimSuffix(m, "_")
			if mode == "inout" {
				mode = "in_out"
			}
			s = strings.TrimPrefix(s, m)
			break
		}
	}
	if mode == "" {
		return s
	}
	return s + "_" + mode
}

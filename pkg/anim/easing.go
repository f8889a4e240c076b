package anim

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/interp"
)

// Easing maps linear progress t in [0, 1] to eased progress.
type Easing func(t float64) float64

// Built-in easings.
var (
	Linear Easing = func(t float64) float64 { return t }

	EaseIn Easing = func(t float64) float64 { return t * t }

	EaseOut Easing = func(t float64) float64 { return 1 - (1-t)*(1-t) }

	EaseInOut Easing = func(t float64) float64 {
		if t < 0.5 {
			return 2 * t * t
		}
		return 1 - math.Pow(-2*t+2, 2)/2
	}

	// EaseOutBack overshoots slightly before settling.
	EaseOutBack Easing = func(t float64) float64 {
		const c1 = 1.70158
		const c3 = c1 + 1
		return 1 + c3*math.Pow(t-1, 3) + c1*math.Pow(t-1, 2)
	}
)

var namedEasings = map[string]Easing{
	"linear":        Linear,
	"ease-in":       EaseIn,
	"ease-out":      EaseOut,
	"ease-in-out":   EaseInOut,
	"ease-out-back": EaseOutBack,
}

// EasingByName resolves a named easing (case-insensitive). An empty name
// resolves to EaseInOut.
func EasingByName(name string) (Easing, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return EaseInOut, nil
	}
	e, ok := namedEasings[name]
	if !ok {
		return nil, fmt.Errorf("unknown easing %q", name)
	}
	return e, nil
}

// EasingNames lists the names accepted by EasingByName.
func EasingNames() []string {
	names := make([]string, 0, len(namedEasings))
	for n := range namedEasings {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Point is a control point of a Curve easing.
type Point struct {
	T, V float64
}

// Curve builds an easing that passes through the given control points using
// monotone cubic (Fritsch-Butland) interpolation. Points are sorted by T and
// must span at least three distinct T values in [0, 1]; (0,0) and (1,1) are
// added when missing.
func Curve(points []Point) (Easing, error) {
	pts := append([]Point(nil), points...)
	sort.Slice(pts, func(i, j int) bool { return pts[i].T < pts[j].T })
	if len(pts) == 0 || pts[0].T > 0 {
		pts = append([]Point{{0, 0}}, pts...)
	}
	if pts[len(pts)-1].T < 1 {
		pts = append(pts, Point{1, 1})
	}

	xs := make([]float64, 0, len(pts))
	ys := make([]float64, 0, len(pts))
	for i, p := range pts {
		if p.T < 0 || p.T > 1 {
			return nil, fmt.Errorf("curve point %d: t=%v outside [0,1]", i, p.T)
		}
		if len(xs) > 0 && p.T == xs[len(xs)-1] {
			return nil, fmt.Errorf("curve point %d: duplicate t=%v", i, p.T)
		}
		xs = append(xs, p.T)
		ys = append(ys, p.V)
	}
	if len(xs) < 3 {
		return nil, fmt.Errorf("curve needs at least 3 points, got %d", len(xs))
	}

	var fb interp.FritschButland
	if err := fb.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("fitting curve: %w", err)
	}
	return func(t float64) float64 {
		return fb.Predict(Clamp01(t))
	}, nil
}

package game

import (
	"math"
	"math/rand"

	"river-strike/internal/config"
)

// Segment is one control point of the channel, OffsetY = index * step.
type Segment struct {
	OffsetY float64 `json:"offsetY"`
	Center  float64 `json:"center"`
	Width   float64 `json:"width"`
}

// Channel is the interpolated river cross-section at a world Y.
type Channel struct {
	Center float64 `json:"center"`
	Width  float64 `json:"width"`
}

// Left returns the left bank x.
func (c Channel) Left() float64 { return c.Center - c.Width/2 }

// Right returns the right bank x.
func (c Channel) Right() float64 { return c.Center + c.Width/2 }

// Contains reports whether a circle of radius r at x sits fully inside the banks.
func (c Channel) Contains(x, r float64) bool {
	return math.Abs(x-c.Center) <= c.Width/2-r
}

// RiverField is an immutable cyclic channel. Queries past the last segment
// wrap back to the first, so the river never ends.
type RiverField struct {
	segments []Segment
	step     float64
}

// GenerateRiver builds a river by a bounded random walk on center and width.
// The walk is pulled back toward the first segment as it nears the end so
// the wrap seam obeys the same per-step delta bounds as the rest.
func GenerateRiver(rng *rand.Rand, t config.RiverTuning) *RiverField {
	n := t.Segments
	if n < 2 {
		n = 2
	}
	step := t.SegmentStep
	if step <= 0 {
		step = 1
	}

	width := clamp(t.InitialWidth, t.MinWidth, t.MaxWidth)
	center := t.FieldWidth / 2
	startWidth, startCenter := width, center

	segs := make([]Segment, n)
	segs[0] = Segment{OffsetY: 0, Center: center, Width: width}

	for i := 1; i < n; i++ {
		remaining := float64(n - i) // steps left until we return to segs[0]

		width += uniform(rng, -t.WidthJitter, t.WidthJitter)
		width = clamp(width, t.MinWidth, t.MaxWidth)
		width = clamp(width, startWidth-remaining*t.WidthJitter, startWidth+remaining*t.WidthJitter)

		center += uniform(rng, -t.CenterJitter, t.CenterJitter)
		center = clamp(center, startCenter-remaining*t.CenterJitter, startCenter+remaining*t.CenterJitter)
		center = clamp(center, width/2+t.EdgeMargin, t.FieldWidth-width/2-t.EdgeMargin)

		segs[i] = Segment{OffsetY: float64(i) * step, Center: center, Width: width}
	}

	return &RiverField{segments: segs, step: step}
}

// NewRiverField wraps precomputed segments. Used by tests and replays.
func NewRiverField(segments []Segment, step float64) *RiverField {
	cp := make([]Segment, len(segments))
	copy(cp, segments)
	return &RiverField{segments: cp, step: step}
}

// At returns the channel at world y by linear interpolation between the
// bracketing segments. Valid for any y, including negative values.
func (r *RiverField) At(y float64) Channel {
	n := len(r.segments)
	if n == 0 {
		return Channel{}
	}

	// Reduce first so y and y+k*Period land on the same segment pair.
	period := r.Period()
	y = math.Mod(y, period)
	if y < 0 {
		y += period
	}

	fi := math.Floor(y / r.step)
	t := (y - fi*r.step) / r.step
	i := wrapIndex(int(fi), n)

	a := r.segments[i]
	b := r.segments[wrapIndex(i+1, n)]

	return Channel{
		Center: a.Center + (b.Center-a.Center)*t,
		Width:  a.Width + (b.Width-a.Width)*t,
	}
}

// Period is the world distance after which the river repeats.
func (r *RiverField) Period() float64 {
	return float64(len(r.segments)) * r.step
}

// Segments returns a copy of the control points.
func (r *RiverField) Segments() []Segment {
	cp := make([]Segment, len(r.segments))
	copy(cp, r.segments)
	return cp
}

// Sample returns channel cross-sections from..to every step world units.
func (r *RiverField) Sample(from, to, step float64) []Channel {
	if step <= 0 || to < from {
		return nil
	}
	out := make([]Channel, 0, int((to-from)/step)+1)
	for y := from; y <= to; y += step {
		out = append(out, r.At(y))
	}
	return out
}

func wrapIndex(i, n int) int {
	return ((i % n) + n) % n
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

package trajectory

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Point is one planar sample of a generated path.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Trajectory is a synthetic stimulus path with unit-normalized coordinates.
type Trajectory struct {
	ID               string         `json:"trajectory_id"`
	NormalizedPoints []Point        `json:"normalized_points"`
	Parameters       map[string]any `json:"parameters"`
}

type coefficient struct {
	amplitude float64
	frequency float64
	phase     float64
}

// Generator produces random motion paths from either a Fourier series or a
// cubic spline over random control points.
type Generator struct {
	rand *rand.Rand
}

// NewGenerator seeds a generator from the clock.
func NewGenerator() *Generator {
	return &Generator{rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeededGenerator builds a deterministic generator for tests.
func NewSeededGenerator(seed int64) *Generator {
	return &Generator{rand: rand.New(rand.NewSource(seed))}
}

// GenerateUnit produces a random path normalized to the unit square.
func (g *Generator) GenerateUnit() Trajectory {
	numPoints := 100 + g.rand.Intn(201)

	var (
		raw    []Point
		params map[string]any
	)
	if g.rand.Intn(2) == 0 {
		raw, params = g.fourierPoints(numPoints)
	} else {
		raw, params = g.splinePoints(numPoints)
	}

	params["coordinates"] = "normalized_0_1"

	return Trajectory{
		ID:               uuid.NewString()[:8],
		NormalizedPoints: normalizeUnit(raw),
		Parameters:       params,
	}
}

func (g *Generator) fourierPoints(numPoints int) ([]Point, map[string]any) {
	timeRange := g.uniform(4*math.Pi, 8*math.Pi)

	n := 3 + g.rand.Intn(6)
	coeffs := make([]coefficient, n)
	for i := range coeffs {
		coeffs[i] = coefficient{
			amplitude: g.uniform(0.5, 2.0) / float64(i+1),
			frequency: float64(i + 1),
			phase:     g.uniform(0, 2*math.Pi),
		}
	}

	points := make([]Point, numPoints)
	for i := range points {
		t := float64(i) / float64(numPoints) * timeRange
		var x, y float64
		for _, c := range coeffs {
			x += c.amplitude * math.Cos(c.frequency*t+c.phase)
			y += c.amplitude * math.Sin(c.frequency*t+c.phase)
		}
		points[i] = Point{X: x, Y: y}
	}

	params := map[string]any{
		"trajectory_type":  "fourier",
		"num_points":       numPoints,
		"time_range":       math.Round(timeRange*10000) / 10000,
		"num_coefficients": n,
	}
	return points, params
}

func (g *Generator) splinePoints(numPoints int) ([]Point, map[string]any) {
	steps := numPoints
	if steps < 200 {
		steps = 200
	}
	nCtrl := 6 + g.rand.Intn(5)

	ctrlX := make([]float64, nCtrl)
	ctrlY := make([]float64, nCtrl)
	for i := 0; i < nCtrl; i++ {
		ctrlX[i] = g.uniform(-5, 5)
		ctrlY[i] = g.uniform(-5, 5)
	}

	xs := naturalSpline(ctrlX, steps)
	ys := naturalSpline(ctrlY, steps)

	points := make([]Point, steps)
	for i := range points {
		points[i] = Point{X: xs[i], Y: ys[i]}
	}

	params := map[string]any{
		"trajectory_type": "random_spline",
		"num_points":      steps,
		"control_points":  nCtrl,
	}
	return points, params
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rand.Float64()*(hi-lo)
}

// naturalSpline interpolates the knot values with a natural cubic spline over
// a uniform parameter and samples it at the requested number of steps.
func naturalSpline(knots []float64, steps int) []float64 {
	n := len(knots) - 1
	if n < 1 {
		out := make([]float64, steps)
		if len(knots) == 1 {
			for i := range out {
				out[i] = knots[0]
			}
		}
		return out
	}

	// Second derivatives at the knots, natural boundary conditions, solved
	// with the Thomas algorithm for unit knot spacing.
	m := make([]float64, n+1)
	c := make([]float64, n+1)
	d := make([]float64, n+1)
	for i := 1; i < n; i++ {
		rhs := 6 * (knots[i+1] - 2*knots[i] + knots[i-1])
		denom := 4.0
		if i > 1 {
			denom -= c[i-1]
			rhs -= d[i-1]
		}
		c[i] = 1 / denom
		d[i] = rhs / denom
	}
	for i := n - 1; i >= 1; i-- {
		m[i] = d[i] - c[i]*m[i+1]
	}

	out := make([]float64, steps)
	for s := 0; s < steps; s++ {
		u := float64(s) / float64(steps-1) * float64(n)
		i := int(u)
		if i >= n {
			i = n - 1
		}
		t := u - float64(i)

		a := knots[i]
		b := knots[i+1] - knots[i] - m[i]/3 - m[i+1]/6
		out[s] = a + t*(b+t*(m[i]/2+t*(m[i+1]-m[i])/6))
	}
	return out
}

// normalizeUnit rescales the path into [0,1] on each axis, with a degenerate
// axis mapped to 0.5 and 4-decimal rounding.
func normalizeUnit(points []Point) []Point {
	if len(points) == 0 {
		return nil
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	norm := make([]Point, len(points))
	for i, p := range points {
		nx, ny := 0.5, 0.5
		if maxX != minX {
			nx = (p.X - minX) / (maxX - minX)
		}
		if maxY != minY {
			ny = (p.Y - minY) / (maxY - minY)
		}
		norm[i] = Point{
			X: math.Round(nx*10000) / 10000,
			Y: math.Round(ny*10000) / 10000,
		}
	}
	return norm
}

package parhull

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/edaniels/golog"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/akmonengine/parhull/geom"
	"github.com/akmonengine/parhull/grid"
)

func spherePoints(n int, radius float64, seed int64) []mgl64.Vec3 {
	rng := rand.New(rand.NewSource(seed))
	points := make([]mgl64.Vec3, n)
	for i := range points {
		points[i] = mgl64.Vec3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}.Normalize().Mul(radius)
	}
	return points
}

func cubePoints(n int, seed int64) []mgl64.Vec3 {
	rng := rand.New(rand.NewSource(seed))
	points := make([]mgl64.Vec3, n)
	for i := range points {
		points[i] = mgl64.Vec3{rng.Float64(), rng.Float64(), rng.Float64()}.Mul(20).Sub(mgl64.Vec3{10, 10, 10})
	}
	return points
}

// checkConvex fails when an input point lies outside a hull facet by more than the slack.
func checkConvex(t *testing.T, points []mgl64.Vec3, hull *Hull) {
	t.Helper()
	for _, f := range hull.Facets {
		a := points[f[0]]
		area := geom.Area(a, points[f[1]], points[f[2]])
		for i, p := range points {
			if v := geom.SignedVolumeArea(a, area, p); v > geom.DefaultSlack {
				t.Fatalf("point %d is outside facet %v by %g", i, f, v)
			}
		}
	}
}

// checkConvexWithin fails when an input point lies farther than dist outside the plane of
// a hull facet.
func checkConvexWithin(t *testing.T, points []mgl64.Vec3, hull *Hull, dist float64) {
	t.Helper()
	for _, f := range hull.Facets {
		a := points[f[0]]
		area := geom.Area(a, points[f[1]], points[f[2]])
		if area.Len() == 0 {
			continue
		}
		normal := area.Normalize()
		for i, p := range points {
			if d := p.Sub(a).Dot(normal); d > dist {
				t.Fatalf("point %d is %g outside facet %v", i, d, f)
			}
		}
	}
}

// cylinderPoints samples the lateral surface of the unit cylinder between z=0 and z=1.
// Neighboring samples are almost coplanar with the facets between them.
func cylinderPoints(n int, seed int64) []mgl64.Vec3 {
	rng := rand.New(rand.NewSource(seed))
	points := make([]mgl64.Vec3, n)
	for i := range points {
		a := 2 * math.Pi * rng.Float64()
		points[i] = mgl64.Vec3{math.Cos(a), math.Sin(a), rng.Float64()}
	}
	return points
}

// twoRingPoints samples two unit circles, at z=0 and z=1.
func twoRingPoints(n int, seed int64) []mgl64.Vec3 {
	rng := rand.New(rand.NewSource(seed))
	points := make([]mgl64.Vec3, n)
	for i := range points {
		a := 2 * math.Pi * rng.Float64()
		points[i] = mgl64.Vec3{math.Cos(a), math.Sin(a), float64(i % 2)}
	}
	return points
}

// diskApexPoints samples the unit disk at z=0 and adds the apex of a cone above it.
func diskApexPoints(n int, seed int64) []mgl64.Vec3 {
	rng := rand.New(rand.NewSource(seed))
	points := make([]mgl64.Vec3, n, n+1)
	for i := range points {
		a := 2 * math.Pi * rng.Float64()
		r := math.Sqrt(rng.Float64())
		points[i] = mgl64.Vec3{r * math.Cos(a), r * math.Sin(a), 0}
	}
	return append(points, mgl64.Vec3{0, 0, 1})
}

func canonical(f [3]int) [3]int {
	for f[0] > f[1] || f[0] > f[2] {
		f = [3]int{f[1], f[2], f[0]}
	}
	return f
}

var tetra = []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

func TestHull3DTetrahedron(t *testing.T) {
	hull, err := Hull3D(tetra, Options{Logger: golog.NewTestLogger(t)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, hull.Vertices, test.ShouldResemble, []int{0, 1, 2, 3})
	test.That(t, hull.Facets, test.ShouldHaveLength, 4)
	test.That(t, hull.Rounds, test.ShouldEqual, 0)
	test.That(t, hull.Validate(), test.ShouldBeNil)
	checkConvex(t, tetra, hull)
}

func TestHull3DInteriorPoint(t *testing.T) {
	points := append(slices.Clone(tetra), mgl64.Vec3{0.1, 0.2, 0.1})

	b := NewBuilder(geom.NewVertices(points), Options{Logger: golog.NewTestLogger(t)})
	test.That(t, b.Step(), test.ShouldBeNil)
	for _, f := range b.Mesh().Facets() {
		test.That(t, f.Len(), test.ShouldEqual, 0)
	}

	hull, err := b.Run()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, hull.Vertices, test.ShouldResemble, []int{0, 1, 2, 3})
	test.That(t, hull.Facets, test.ShouldHaveLength, 4)
	checkConvex(t, points, hull)
}

func TestHull3DSphere(t *testing.T) {
	points := spherePoints(100, 1, 1)
	hull, err := Hull3D(points, Options{Workers: 4, Logger: golog.NewTestLogger(t)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, hull.Validate(), test.ShouldBeNil)
	checkConvex(t, points, hull)

	for _, v := range hull.Vertices {
		test.That(t, points[v].Len(), test.ShouldAlmostEqual, 1.0, 1e-9)
	}
	test.That(t, len(hull.Vertices), test.ShouldBeGreaterThan, 90)
	test.That(t, hull.Facets, test.ShouldHaveLength, 2*len(hull.Vertices)-4)

	seen := map[[3]int]bool{}
	for _, f := range hull.Facets {
		c := canonical(f)
		test.That(t, seen[c], test.ShouldBeFalse)
		seen[c] = true
		area := geom.Area(points[f[0]], points[f[1]], points[f[2]])
		test.That(t, area.Len(), test.ShouldBeGreaterThan, 0)
		// outward: the normal agrees with the direction of the facet from the center
		test.That(t, area.Dot(points[f[0]]), test.ShouldBeGreaterThan, 0)
	}
}

func TestHull3DRandom(t *testing.T) {
	tests := []struct {
		name   string
		points []mgl64.Vec3
		levels int
	}{
		{"cube 1000", cubePoints(1000, 2), 0},
		{"cube 5000 with grid", cubePoints(5000, 3), 8},
		{"sphere 2000", spherePoints(2000, 100, 4), 0},
		{"sphere 3000 with grid", spherePoints(3000, 100, 5), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serial, err := Hull3D(tt.points, Options{Workers: 1, GridLevels: tt.levels})
			test.That(t, err, test.ShouldBeNil)
			test.That(t, serial.Validate(), test.ShouldBeNil)
			checkConvex(t, tt.points, serial)

			par, err := Hull3D(tt.points, Options{Workers: 8, GridLevels: tt.levels, Verify: true})
			test.That(t, err, test.ShouldBeNil)
			test.That(t, par.Vertices, test.ShouldResemble, serial.Vertices)
			test.That(t, par.Facets, test.ShouldResemble, serial.Facets)
			test.That(t, par.Rounds, test.ShouldEqual, serial.Rounds)

			// another processing order, same vertex set
			other := 0
			if tt.levels == 0 {
				other = 6
			}
			reordered, err := Hull3D(tt.points, Options{Workers: 3, GridLevels: other})
			test.That(t, err, test.ShouldBeNil)
			test.That(t, reordered.Vertices, test.ShouldResemble, serial.Vertices)
			test.That(t, reordered.Validate(), test.ShouldBeNil)
		})
	}
}

func TestHull3DNearlyCoplanar(t *testing.T) {
	type input struct {
		name   string
		points []mgl64.Vec3
	}
	var tests []input
	for seed := int64(1); seed <= 5; seed++ {
		tests = append(tests,
			input{fmt.Sprintf("cylinder %d", seed), cylinderPoints(1000, seed)},
			input{fmt.Sprintf("two rings %d", seed), twoRingPoints(1000, seed)},
			input{fmt.Sprintf("disk and apex %d", seed), diskApexPoints(1000, seed)},
		)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serial, err := Hull3D(tt.points, Options{Workers: 1})
			test.That(t, err, test.ShouldBeNil)
			test.That(t, serial.Validate(), test.ShouldBeNil)
			checkConvexWithin(t, tt.points, serial, 1e-2)

			par, err := Hull3D(tt.points, Options{Workers: 8})
			test.That(t, err, test.ShouldBeNil)
			test.That(t, par.Validate(), test.ShouldBeNil)
			test.That(t, par.Facets, test.ShouldResemble, serial.Facets)

			// every round keeps the facet graph closed
			_, err = Hull3D(tt.points, Options{Workers: 8, GridLevels: 6, Verify: true})
			test.That(t, err, test.ShouldBeNil)
		})
	}
}

func TestHull3DNearlyCoplanarTightSlack(t *testing.T) {
	points := cylinderPoints(1000, 1)
	hull, err := Hull3D(points, Options{Workers: 4, Slack: 1e-12})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, hull.Validate(), test.ShouldBeNil)
	checkConvexWithin(t, points, hull, 1e-4)
}

func TestHull3DRoundsAreParallel(t *testing.T) {
	points := spherePoints(4000, 100, 6)
	hull, err := Hull3D(points, Options{Workers: 4})
	test.That(t, err, test.ShouldBeNil)
	// most rounds accept several apexes at once
	test.That(t, hull.Rounds, test.ShouldBeLessThan, len(hull.Vertices)/2)
}

func TestHull3DDuplicates(t *testing.T) {
	var corners []mgl64.Vec3
	for i := 0; i < 8; i++ {
		corners = append(corners, mgl64.Vec3{float64(i & 1), float64(i >> 1 & 1), float64(i >> 2 & 1)})
	}
	var points []mgl64.Vec3
	for copies := 0; copies < 3; copies++ {
		points = append(points, corners...)
		points = append(points, mgl64.Vec3{0.5, 0.5, 0.5})
	}

	for _, workers := range []int{1, 4} {
		hull, err := Hull3D(points, Options{Workers: workers})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, hull.Validate(), test.ShouldBeNil)
		test.That(t, hull.Vertices, test.ShouldHaveLength, 8)
		test.That(t, hull.Facets, test.ShouldHaveLength, 12)

		positions := map[mgl64.Vec3]bool{}
		for _, v := range hull.Vertices {
			positions[points[v]] = true
		}
		for _, c := range corners {
			test.That(t, positions[c], test.ShouldBeTrue)
		}
	}
}

func TestHull3DErrors(t *testing.T) {
	tests := []struct {
		name   string
		points []mgl64.Vec3
		opts   Options
		err    error
	}{
		{"empty", nil, Options{}, ErrTooFewPoints},
		{"three points", tetra[:3], Options{}, ErrTooFewPoints},
		{"coincident", []mgl64.Vec3{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}, {1, 1, 1}, {1, 1, 1}}, Options{}, ErrDegenerateSeed},
		{"collinear", []mgl64.Vec3{{0, 0, 0}, {1, 1, 1}, {2, 2, 2}, {-3, -3, -3}}, Options{}, ErrDegenerateSeed},
		{"coplanar", []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}, {0.3, 0.7, 0}}, Options{}, ErrDegenerateSeed},
		{"nan", []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, math.NaN(), 0}, {0, 0, 1}}, Options{}, ErrInvalidCoordinate},
		{"infinite", []mgl64.Vec3{{0, 0, 0}, {math.Inf(-1), 0, 0}, {0, 1, 0}, {0, 0, 1}}, Options{}, ErrInvalidCoordinate},
		{"cell overflow", tetra, Options{GridLevels: 4, CellSize: 1e-6}, grid.ErrCellOverflow},
		{"too many levels", tetra, Options{GridLevels: grid.MaxLevels + 1}, grid.ErrInvalidLevels},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hull, err := Hull3D(tt.points, tt.opts)
			test.That(t, hull, test.ShouldBeNil)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, errors.Is(err, tt.err), test.ShouldBeTrue)
		})
	}
}

func TestFromCoords(t *testing.T) {
	points, err := FromCoords([][]float64{{1, 2, 3}, {4, 5, 6}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, points, test.ShouldResemble, []mgl64.Vec3{{1, 2, 3}, {4, 5, 6}})

	_, err = FromCoords([][]float64{{1, 2, 3}, {4, 5}})
	test.That(t, errors.Is(err, ErrUnsupportedDimension), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "row 1")

	_, err = FromCoords([][]float64{{1, 2, 3, 4}})
	test.That(t, errors.Is(err, ErrUnsupportedDimension), test.ShouldBeTrue)

	_, err = FromCoords([][]float64{{1, math.Inf(1), 3}})
	test.That(t, errors.Is(err, ErrInvalidCoordinate), test.ShouldBeTrue)

	coords := make([][]float64, 0, len(tetra))
	for _, p := range tetra {
		coords = append(coords, []float64{p[0], p[1], p[2]})
	}
	hull, err := HullCoords(coords, DefaultOptions())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, hull.Vertices, test.ShouldResemble, []int{0, 1, 2, 3})

	_, err = HullCoords([][]float64{{1, 2}}, DefaultOptions())
	test.That(t, errors.Is(err, ErrUnsupportedDimension), test.ShouldBeTrue)
}

func TestValidate(t *testing.T) {
	hull := &Hull{Facets: [][3]int{{0, 2, 1}, {0, 1, 3}, {0, 3, 2}, {1, 2, 3}}}
	test.That(t, hull.Validate(), test.ShouldBeNil)

	hull.Facets[0] = [3]int{0, 1, 2}
	test.That(t, hull.Validate(), test.ShouldNotBeNil)
}

func BenchmarkHull3D(b *testing.B) {
	points := cubePoints(100000, 7)
	for _, workers := range []int{1, 4, 8} {
		opts := DefaultOptions()
		opts.Workers = workers
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := Hull3D(points, opts); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

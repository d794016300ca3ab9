package main

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/edaniels/golog"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/akmonengine/parhull"
	"github.com/akmonengine/parhull/geom"
)

// SamplePoints returns n points spread over a sphere of the given radius, with one in
// three pulled inside so the hull has something to discard.
func SamplePoints(n int, radius float64, seed int64) []mgl64.Vec3 {
	rng := rand.New(rand.NewSource(seed))
	points := make([]mgl64.Vec3, n)
	for i := range points {
		z := 2*rng.Float64() - 1
		phi := 2 * math.Pi * rng.Float64()
		r := math.Sqrt(1 - z*z)
		p := mgl64.Vec3{r * math.Cos(phi), r * math.Sin(phi), z}.Mul(radius)
		if i%3 == 0 {
			p = p.Mul(rng.Float64())
		}
		points[i] = p
	}
	return points
}

func main() {
	logger := golog.NewDevelopmentLogger("sphere")
	points := SamplePoints(5000, 100, 42)

	opts := parhull.DefaultOptions()
	opts.Verify = true
	opts.Logger = logger
	builder := parhull.NewBuilder(geom.NewVertices(points), opts)

	accepted, deferred := 0, 0
	builder.Events.Subscribe(parhull.APEX_ACCEPTED, func(event parhull.Event) {
		accepted++
	})
	builder.Events.Subscribe(parhull.APEX_DEFERRED, func(event parhull.Event) {
		deferred++
	})
	builder.Events.Subscribe(parhull.ROUND_DONE, func(event parhull.Event) {
		e := event.(parhull.RoundDoneEvent)
		fmt.Printf("round %3d: %4d accepted, %4d deferred, %5d discarded, %5d facets\n",
			e.Round, e.Accepted, e.Deferred, e.Discarded, e.LiveFacets)
	})

	hull, err := builder.Run()
	if err != nil {
		logger.Fatal(err)
	}
	if err := hull.Validate(); err != nil {
		logger.Fatal(err)
	}

	fmt.Printf("%d points, %d workers\n", len(points), opts.Workers)
	fmt.Printf("hull: %d vertices, %d facets in %d rounds\n", len(hull.Vertices), len(hull.Facets), hull.Rounds)
	fmt.Printf("apexes: %d accepted, %d deferrals\n", accepted, deferred)
}

package pointio

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// WriteInts writes a pbbs integer sequence, one value per line.
func WriteInts(w io.Writer, values []int) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, intHeader); err != nil {
		return err
	}
	for _, v := range values {
		if _, err := fmt.Fprintln(bw, v); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFacets writes one index triple per line.
func WriteFacets(w io.Writer, facets [][3]int) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, facetHeader); err != nil {
		return err
	}
	for _, f := range facets {
		if _, err := fmt.Fprintf(bw, "%d %d %d\n", f[0], f[1], f[2]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile creates path and hands it to write.
func WriteFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return write(f)
}

// SaveSTL writes the facets of a hull over points as an STL mesh.
func SaveSTL(path string, points []mgl64.Vec3, facets [][3]int) error {
	mesh := make([]*sdf.Triangle3, len(facets))
	for i, f := range facets {
		var tri sdf.Triangle3
		for k, idx := range f {
			if idx < 0 || idx >= len(points) {
				return errors.Errorf("facet %d refers to point %d of %d", i, idx, len(points))
			}
			p := points[idx]
			tri[k] = v3.Vec{X: p[0], Y: p[1], Z: p[2]}
		}
		mesh[i] = &tri
	}
	return errors.Wrapf(render.SaveSTL(path, mesh), "saving %s", path)
}

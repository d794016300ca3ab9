package main

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.viam.com/test"

	"github.com/akmonengine/parhull"
	"github.com/akmonengine/parhull/grid"
	"github.com/akmonengine/parhull/pointio"
)

func writePoints(t *testing.T, n int) string {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	var sb strings.Builder
	sb.WriteString("pbbs_sequencePoint3d\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "%f %f %f\n", rng.Float64(), rng.Float64(), rng.Float64())
	}
	path := filepath.Join(t.TempDir(), "points.txt")
	test.That(t, os.WriteFile(path, []byte(sb.String()), 0o600), test.ShouldBeNil)
	return path
}

func TestRun(t *testing.T) {
	in := writePoints(t, 500)
	dir := t.TempDir()
	out := filepath.Join(dir, "hull.txt")
	stl := filepath.Join(dir, "hull.stl")

	var buf bytes.Buffer
	err := newApp(&buf).Run([]string{"parhull", "-r", "2", "-w", "4", "--verify", "-o", out, "--stl", stl, in})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, strings.Count(buf.String(), "round-time = "), test.ShouldEqual, 2)
	test.That(t, buf.String(), test.ShouldContainSubstring, "vertices")

	content, err := os.ReadFile(out)
	test.That(t, err, test.ShouldBeNil)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	test.That(t, lines[0], test.ShouldEqual, "pbbs_sequenceInt")
	test.That(t, len(lines), test.ShouldBeGreaterThan, 4)

	_, err = os.Stat(stl)
	test.That(t, err, test.ShouldBeNil)
}

func TestRunFacets(t *testing.T) {
	in := writePoints(t, 100)
	out := filepath.Join(t.TempDir(), "facets.txt")

	err := newApp(&bytes.Buffer{}).Run([]string{"parhull", "--facets", "--levels", "0", "-o", out, in})
	test.That(t, err, test.ShouldBeNil)

	content, err := os.ReadFile(out)
	test.That(t, err, test.ShouldBeNil)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	test.That(t, lines[0], test.ShouldEqual, "pbbs_sequenceIntTriple")
	test.That(t, strings.Fields(lines[1]), test.ShouldHaveLength, 3)
}

func TestRunErrors(t *testing.T) {
	in := writePoints(t, 10)
	flat := filepath.Join(t.TempDir(), "flat.txt")
	test.That(t, os.WriteFile(flat, []byte("1 2\n3 4\n5 6\n7 8\n"), 0o600), test.ShouldBeNil)
	ragged := filepath.Join(t.TempDir(), "ragged.txt")
	test.That(t, os.WriteFile(ragged, []byte("1 2 3\n3 4\n"), 0o600), test.ShouldBeNil)

	tests := []struct {
		name string
		args []string
		err  error
	}{
		{"no input", []string{"parhull"}, nil},
		{"zero rounds", []string{"parhull", "-r", "0", in}, nil},
		{"two dimensions", []string{"parhull", flat}, parhull.ErrUnsupportedDimension},
		{"ragged", []string{"parhull", ragged}, pointio.ErrMalformedInput},
		{"cell too small", []string{"parhull", "--cell-size", "1e-9", in}, grid.ErrCellOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newApp(&bytes.Buffer{}).Run(tt.args)
			test.That(t, err, test.ShouldNotBeNil)
			if tt.err != nil {
				test.That(t, errors.Is(err, tt.err), test.ShouldBeTrue)
			}
		})
	}
}

func TestWorkersFromEnvironment(t *testing.T) {
	t.Setenv("PARHULL_WORKERS", "3")
	in := writePoints(t, 50)

	app := newApp(&bytes.Buffer{})
	var workers int
	action := app.Action
	app.Action = func(c *cli.Context) error {
		workers = c.Int(flagWorkers)
		return action(c)
	}
	test.That(t, app.Run([]string{"parhull", in}), test.ShouldBeNil)
	test.That(t, workers, test.ShouldEqual, 3)
}

func TestRunMainExitCode(t *testing.T) {
	in := writePoints(t, 20)

	logger, logs := golog.NewObservedTestLogger(t)
	test.That(t, runMain([]string{"parhull", in}, &bytes.Buffer{}, logger), test.ShouldEqual, 0)
	test.That(t, logs.FilterMessageSnippet("failed").Len(), test.ShouldEqual, 0)

	test.That(t, runMain([]string{"parhull", "-r", "0", in}, &bytes.Buffer{}, logger), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessageSnippet("failed").Len(), test.ShouldEqual, 1)
}

// Package pointio reads point sets and writes hull results in the plain text formats the
// parhull command works with.
package pointio

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// ErrMalformedInput is returned for an input file that cannot be parsed.
var ErrMalformedInput = errors.New("malformed point file")

const (
	pointHeader = "pbbs_sequencePoint"
	intHeader   = "pbbs_sequenceInt"
	facetHeader = "pbbs_sequenceIntTriple"
)

// ReadFile reads the rows of coordinates of a point file: ASCII PCD for a .pcd
// extension, whitespace or comma separated text otherwise.
func ReadFile(path string) (rows [][]float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	if strings.EqualFold(filepath.Ext(path), ".pcd") {
		rows, err = ReadPCD(f)
	} else {
		rows, err = ReadText(f)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return rows, nil
}

// ReadText reads one point per line. An optional pbbs_sequencePoint<d> header fixes the
// dimension, otherwise the first row does. Blank lines and lines starting with # are
// skipped.
func ReadText(r io.Reader) ([][]float64, error) {
	var rows [][]float64
	dim := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if strings.HasPrefix(text, pointHeader) {
			if len(rows) > 0 {
				return nil, errors.Wrapf(ErrMalformedInput, "line %d: header after data", line)
			}
			d, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(text, pointHeader), "d"))
			if err != nil || d < 1 {
				return nil, errors.Wrapf(ErrMalformedInput, "line %d: bad header %q", line, text)
			}
			dim = d
			continue
		}

		row, err := parseFloats(strings.FieldsFunc(text, isSeparator))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if dim == 0 {
			dim = len(row)
		}
		if len(row) != dim {
			return nil, errors.Wrapf(ErrMalformedInput, "line %d: %d values, want %d", line, len(row), dim)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadPCD reads the x, y and z fields of an ASCII point cloud file.
func ReadPCD(r io.Reader) ([][]float64, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	axes := []int{-1, -1, -1}
	fields, points := 0, -1
	line := 0
	for scanner.Scan() {
		line++
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 || strings.HasPrefix(tokens[0], "#") {
			continue
		}

		switch strings.ToUpper(tokens[0]) {
		case "VERSION", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT":
		case "FIELDS":
			fields = len(tokens) - 1
			for i, name := range tokens[1:] {
				switch name {
				case "x":
					axes[0] = i
				case "y":
					axes[1] = i
				case "z":
					axes[2] = i
				}
			}
		case "POINTS":
			n, err := strconv.Atoi(tokens[len(tokens)-1])
			if err != nil || n < 0 {
				return nil, errors.Wrapf(ErrMalformedInput, "line %d: bad point count", line)
			}
			points = n
		case "DATA":
			if len(tokens) < 2 || tokens[1] != "ascii" {
				return nil, errors.Wrapf(ErrMalformedInput, "line %d: only ascii data is supported", line)
			}
			for _, a := range axes {
				if a < 0 {
					return nil, errors.Wrapf(ErrMalformedInput, "line %d: FIELDS lacks x, y or z", line)
				}
			}
			return readPCDData(scanner, line, axes, fields, points)
		default:
			return nil, errors.Wrapf(ErrMalformedInput, "line %d: unexpected %q before DATA", line, tokens[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, errors.Wrap(ErrMalformedInput, "missing DATA line")
}

func readPCDData(scanner *bufio.Scanner, line int, axes []int, fields, points int) ([][]float64, error) {
	rows := make([][]float64, 0, max(points, 0))
	for scanner.Scan() {
		line++
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 {
			continue
		}
		if len(tokens) != fields {
			return nil, errors.Wrapf(ErrMalformedInput, "line %d: %d fields, want %d", line, len(tokens), fields)
		}
		row, err := parseFloats([]string{tokens[axes[0]], tokens[axes[1]], tokens[axes[2]]})
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if points >= 0 && len(rows) != points {
		return nil, errors.Wrapf(ErrMalformedInput, "header announces %d points, read %d", points, len(rows))
	}
	return rows, nil
}

func isSeparator(r rune) bool {
	return r == ',' || r == ' ' || r == '\t'
}

func parseFloats(tokens []string) ([]float64, error) {
	row := make([]float64, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedInput, "value %q", tok)
		}
		row[i] = v
	}
	return row, nil
}

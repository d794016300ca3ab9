package parhull

import "github.com/pkg/errors"

var (
	// ErrUnsupportedDimension is returned for an input row that is not a 3-d point.
	ErrUnsupportedDimension = errors.New("unsupported point dimension")
	// ErrInvalidCoordinate is returned for a NaN or infinite coordinate.
	ErrInvalidCoordinate = errors.New("coordinate is not finite")
	// ErrTooFewPoints is returned when the input holds fewer than 4 points.
	ErrTooFewPoints = errors.New("a 3-d hull needs at least 4 points")
	// ErrDegenerateSeed is returned when the input has no four affinely independent points.
	ErrDegenerateSeed = errors.New("no non-degenerate seed simplex")
	// ErrNotDone is returned when reading the hull of a builder that has not finished.
	ErrNotDone = errors.New("hull construction is not finished")
)

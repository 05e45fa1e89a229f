package matrix

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateLocation  = errors.New("location already added")
	ErrEmptyLocationID    = errors.New("location has an empty id")
	ErrBuilderFinalized   = errors.New("builder already finalized")
	ErrLocationNotFound   = errors.New("location not found")
	ErrUnrecordedDistance = errors.New("distance not recorded")
	ErrInvalidDistance    = errors.New("oracle returned an invalid distance")
)

// UnrecordedDistanceError reports a lookup for a destination that was never
// measured against the origin. It signals a caller bug.
type UnrecordedDistanceError struct {
	Origin      string
	Destination string
}

func (e *UnrecordedDistanceError) Error() string {
	return fmt.Sprintf("no distance recorded from %s to %s", e.Origin, e.Destination)
}

func (e *UnrecordedDistanceError) Is(target error) bool {
	return target == ErrUnrecordedDistance
}

// LocationNotFoundError reports a lookup for a location the matrix does not hold.
type LocationNotFoundError struct {
	ID string
}

func (e *LocationNotFoundError) Error() string {
	return fmt.Sprintf("location %s not in matrix", e.ID)
}

func (e *LocationNotFoundError) Is(target error) bool {
	return target == ErrLocationNotFound
}

// Failure records one pair the oracle could not compute. The matrix holds
// Unreachable for that pair.
type Failure struct {
	Origin      Location
	Destination Location
	Err         error
}

func (f Failure) String() string {
	return fmt.Sprintf("%s -> %s: %v", f.Origin.ID, f.Destination.ID, f.Err)
}

package pipeline

import (
	"errors"
	"fmt"
)

// ErrInvalidHorizon is returned when fewer than one forecast month is requested.
var ErrInvalidHorizon = errors.New("pipeline: forecast months must be a positive integer")

// ErrNoRegions is returned by the region ranking when no row has a price.
var ErrNoRegions = errors.New("pipeline: no region has an average price")

// SelectionError means the requested region and property type matched no rows.
type SelectionError struct {
	Region       string
	PropertyType string
}

func (e *SelectionError) Error() string {
	pt := e.PropertyType
	if pt == "" {
		pt = "<none>"
	}
	return fmt.Sprintf("no rows for region=%q & property_type=%s", e.Region, pt)
}

package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the recoverable failure classes. None of them leave the
// engine in an unusable state.
var (
	ErrRouteNotFound     = errors.New("route not found")
	ErrNoCurrentRoute    = errors.New("no current route selected")
	ErrNothingImported   = errors.New("no routes imported")
	ErrNoIdentifiers     = errors.New("no valid identifiers")
	ErrExportUnavailable = errors.New("spreadsheet export unavailable")
)

// RouteNotFoundError reports a lookup for a route id absent from the collection.
type RouteNotFoundError struct {
	RouteID string
}

func (e *RouteNotFoundError) Error() string {
	return fmt.Sprintf("route %q not found", e.RouteID)
}

// Is lets errors.Is(err, ErrRouteNotFound) match.
func (e *RouteNotFoundError) Is(target error) bool {
	return target == ErrRouteNotFound
}

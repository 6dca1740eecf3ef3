package domain

import (
	"slices"
	"strings"
)

// RouteCollection maps route ids to routes in insertion order and tracks the
// current route. It is not safe for concurrent use; callers serialize access.
type RouteCollection struct {
	routes    map[string]*Route
	order     []string
	currentID string
}

func NewRouteCollection() *RouteCollection {
	return &RouteCollection{routes: map[string]*Route{}}
}

// CreateOrGet returns the route for id, creating an empty one on first reference.
func (c *RouteCollection) CreateOrGet(routeID string) *Route {
	routeID = strings.TrimSpace(routeID)
	if r, ok := c.routes[routeID]; ok {
		return r
	}
	r := NewRoute(routeID)
	c.Put(r)
	return r
}

func (c *RouteCollection) Get(routeID string) (*Route, bool) {
	r, ok := c.routes[strings.TrimSpace(routeID)]
	return r, ok
}

// Put inserts or replaces r, keeping the original insertion position of an
// existing id.
func (c *RouteCollection) Put(r *Route) {
	if _, ok := c.routes[r.RouteID]; !ok {
		c.order = append(c.order, r.RouteID)
	}
	c.routes[r.RouteID] = r
}

// Delete removes the route and clears the current pointer if it referenced it.
func (c *RouteCollection) Delete(routeID string) error {
	routeID = strings.TrimSpace(routeID)
	if _, ok := c.routes[routeID]; !ok {
		return &RouteNotFoundError{RouteID: routeID}
	}

	delete(c.routes, routeID)
	c.order = slices.DeleteFunc(c.order, func(id string) bool { return id == routeID })
	if c.currentID == routeID {
		c.currentID = ""
	}
	return nil
}

func (c *RouteCollection) Clear() {
	c.routes = map[string]*Route{}
	c.order = nil
	c.currentID = ""
}

// SetCurrent makes routeID the current route. The pointer is unchanged on error.
func (c *RouteCollection) SetCurrent(routeID string) error {
	routeID = strings.TrimSpace(routeID)
	if _, ok := c.routes[routeID]; !ok {
		return &RouteNotFoundError{RouteID: routeID}
	}
	c.currentID = routeID
	return nil
}

func (c *RouteCollection) Current() (*Route, bool) {
	if c.currentID == "" {
		return nil, false
	}
	r, ok := c.routes[c.currentID]
	return r, ok
}

func (c *RouteCollection) CurrentID() string { return c.currentID }

func (c *RouteCollection) Len() int { return len(c.routes) }

// List returns routes ordered by route id.
func (c *RouteCollection) List() []*Route {
	ids := slices.Clone(c.order)
	slices.Sort(ids)
	return c.pick(ids)
}

// Ordered returns routes in insertion order.
func (c *RouteCollection) Ordered() []*Route {
	return c.pick(c.order)
}

func (c *RouteCollection) pick(ids []string) []*Route {
	out := make([]*Route, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.routes[id])
	}
	return out
}

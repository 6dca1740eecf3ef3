package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func routeIDs(routes []*Route) []string {
	out := make([]string, 0, len(routes))
	for _, r := range routes {
		out = append(out, r.RouteID)
	}
	return out
}

func TestRouteCollection(t *testing.T) {
	t.Run("create or get is lazy and stable", func(t *testing.T) {
		c := NewRouteCollection()
		a := c.CreateOrGet("200")
		b := c.CreateOrGet("200")
		assert.Same(t, a, b)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("list is lexical, ordered keeps insertion", func(t *testing.T) {
		c := NewRouteCollection()
		c.CreateOrGet("300")
		c.CreateOrGet("1000")
		c.CreateOrGet("200")

		assert.Equal(t, []string{"1000", "200", "300"}, routeIDs(c.List()))
		assert.Equal(t, []string{"300", "1000", "200"}, routeIDs(c.Ordered()))
	})

	t.Run("set current requires existing route", func(t *testing.T) {
		c := NewRouteCollection()
		c.CreateOrGet("100")
		require.NoError(t, c.SetCurrent("100"))

		err := c.SetCurrent("999")
		require.ErrorIs(t, err, ErrRouteNotFound)
		assert.Equal(t, "100", c.CurrentID())
	})

	t.Run("delete clears current pointer", func(t *testing.T) {
		c := NewRouteCollection()
		c.CreateOrGet("100")
		c.CreateOrGet("200")
		require.NoError(t, c.SetCurrent("100"))

		require.NoError(t, c.Delete("100"))
		_, ok := c.Current()
		assert.False(t, ok)
		assert.Equal(t, []string{"200"}, routeIDs(c.Ordered()))

		var nf *RouteNotFoundError
		require.ErrorAs(t, c.Delete("100"), &nf)
		assert.Equal(t, "100", nf.RouteID)
	})

	t.Run("clear drops everything", func(t *testing.T) {
		c := NewRouteCollection()
		c.CreateOrGet("100")
		require.NoError(t, c.SetCurrent("100"))
		c.Clear()

		assert.Zero(t, c.Len())
		assert.Empty(t, c.CurrentID())
	})
}

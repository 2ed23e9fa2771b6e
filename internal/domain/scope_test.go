package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScope(t *testing.T) {
	s := ScopeFor("nh")
	assert.True(t, s.IsScoped())
	id, ok := s.GameID()
	assert.True(t, ok)
	assert.Equal(t, "nh", id)
	assert.Equal(t, "nh", s.String())

	u := Unscoped()
	assert.False(t, u.IsScoped())
	id, ok = u.GameID()
	assert.False(t, ok)
	assert.Empty(t, id)
	assert.Equal(t, "unscoped", u.String())

	// The zero value is the unscoped scope.
	var zero Scope
	assert.Equal(t, u, zero)
}

package handles

import (
	"testing"

	"github.com/demolens/tickstate/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestResolveOwner(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(m *Map)
		entity core.EntityID
		want   core.EntityID
		found  bool
	}{
		{
			name:   "nothing registered",
			setup:  func(m *Map) {},
			entity: 50,
		},
		{
			name: "owner without alias",
			setup: func(m *Map) {
				m.RegisterOwner(50, 0x1007)
			},
			entity: 50,
		},
		{
			name: "alias without owner",
			setup: func(m *Map) {
				m.RegisterAlias(7, 0x1007)
			},
			entity: 50,
		},
		{
			name: "owner then alias",
			setup: func(m *Map) {
				m.RegisterOwner(50, 0x1007)
				m.RegisterAlias(7, 0x1007)
			},
			entity: 50,
			want:   7,
			found:  true,
		},
		{
			name: "alias then owner",
			setup: func(m *Map) {
				m.RegisterAlias(7, 0x1007)
				m.RegisterOwner(50, 0x1007)
			},
			entity: 50,
			want:   7,
			found:  true,
		},
		{
			name: "unrelated alias does not match",
			setup: func(m *Map) {
				m.RegisterOwner(50, 0x1007)
				m.RegisterAlias(51, 0x2033)
			},
			entity: 50,
		},
		{
			name: "only one hop is followed",
			setup: func(m *Map) {
				m.RegisterOwner(50, 0x1033)
				m.RegisterAlias(51, 0x1033)
				m.RegisterOwner(51, 0x1007)
				m.RegisterAlias(7, 0x1007)
			},
			entity: 50,
			want:   51,
			found:  true,
		},
		{
			name: "later owner replaces earlier",
			setup: func(m *Map) {
				m.RegisterOwner(50, 0x1007)
				m.RegisterAlias(7, 0x1007)
				m.RegisterAlias(8, 0x1008)
				m.RegisterOwner(50, 0x1008)
			},
			entity: 50,
			want:   8,
			found:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			tt.setup(m)

			got, ok := m.ResolveOwner(tt.entity)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, m.OwnerOrZero(tt.entity))
		})
	}
}

// A weapon's owner resolves as soon as the alias arrives, and stays
// unresolved until then.
func TestResolveOwnerAfterLateAlias(t *testing.T) {
	m := New()
	m.RegisterOwner(50, 0x1007)
	m.RegisterAlias(51, 0x1033)

	_, ok := m.ResolveOwner(50)
	assert.False(t, ok)

	m.RegisterAlias(7, 0x1007)
	id, ok := m.ResolveOwner(50)
	assert.True(t, ok)
	assert.Equal(t, core.EntityID(7), id)

	owners, aliases := m.Len()
	assert.Equal(t, 1, owners)
	assert.Equal(t, 2, aliases)
}

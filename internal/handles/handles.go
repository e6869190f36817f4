// Package handles resolves the opaque entity handles carried by owner
// properties into entity ids.
package handles

import "github.com/demolens/tickstate/pkg/core"

// Handle is an opaque protocol reference to another entity.
type Handle uint32

// Map holds the two indirection tables built while a recording is decoded.
// It is append-only for the lifetime of one recording and is not safe for
// concurrent use.
type Map struct {
	owners  map[core.EntityID]Handle // entity -> handle of its owner
	aliases map[Handle]core.EntityID // handle -> entity that answers to it
}

func New() *Map {
	return &Map{
		owners:  make(map[core.EntityID]Handle),
		aliases: make(map[Handle]core.EntityID),
	}
}

// RegisterOwner records that entity claims owner as its owner handle.
func (m *Map) RegisterOwner(entity core.EntityID, owner Handle) {
	m.owners[entity] = owner
}

// RegisterAlias records that entity can be referenced by handle.
func (m *Map) RegisterAlias(entity core.EntityID, handle Handle) {
	m.aliases[handle] = entity
}

// ResolveOwner follows the owner handle of entity to the entity registered
// under it. Both steps must be known.
func (m *Map) ResolveOwner(entity core.EntityID) (core.EntityID, bool) {
	owner, ok := m.owners[entity]
	if !ok {
		return 0, false
	}
	return m.ResolveHandle(owner)
}

// ResolveHandle returns the entity registered under handle.
func (m *Map) ResolveHandle(handle Handle) (core.EntityID, bool) {
	id, ok := m.aliases[handle]
	return id, ok
}

// OwnerOrZero is ResolveOwner with the miss mapped to the zero entity id.
func (m *Map) OwnerOrZero(entity core.EntityID) core.EntityID {
	id, _ := m.ResolveOwner(entity)
	return id
}

// Len returns the number of registered owners and aliases.
func (m *Map) Len() (owners, aliases int) {
	return len(m.owners), len(m.aliases)
}

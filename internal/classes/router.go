// Package classes maps the server class table of a recording to the entity
// kinds the engine decodes.
package classes

import "github.com/demolens/tickstate/pkg/core"

// Kind selects the decoder for an entity update.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindPlayer
	KindPlayerResource
	KindWorld
	KindSentry
	KindDispenser
	KindTeleporter
	KindMedigun
	KindWeapon
	KindProjectile
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindPlayerResource:
		return "player_resource"
	case KindWorld:
		return "world"
	case KindSentry:
		return "sentry"
	case KindDispenser:
		return "dispenser"
	case KindTeleporter:
		return "teleporter"
	case KindMedigun:
		return "medigun"
	case KindWeapon:
		return "weapon"
	case KindProjectile:
		return "projectile"
	default:
		return "unknown"
	}
}

// Route is everything the engine needs to know about one server class.
type Route struct {
	Name       string
	Kind       Kind
	Class      core.Class          // weapons only
	Slot       core.WeaponSlot     // weapons only
	Projectile core.ProjectileType // projectiles only
}

// Router holds the class table of the current recording.
type Router struct {
	names  []string
	routes []Route
}

func NewRouter() *Router {
	return &Router{}
}

// SetClassTable replaces the class table and derives the route of every class.
func (r *Router) SetClassTable(names []string) {
	r.names = append(r.names[:0], names...)
	r.routes = make([]Route, len(names))
	for i, name := range names {
		r.routes[i] = routeFor(name)
	}
}

// ClassName returns the name of the class at index, or "" when out of range.
func (r *Router) ClassName(index int) string {
	if index < 0 || index >= len(r.names) {
		return ""
	}
	return r.names[index]
}

// Route returns the route of the class at index. Out of range indices route
// to KindUnknown.
func (r *Router) Route(index int) Route {
	if index < 0 || index >= len(r.routes) {
		return Route{}
	}
	return r.routes[index]
}

// Len returns the number of classes in the table.
func (r *Router) Len() int {
	return len(r.names)
}

func routeFor(name string) Route {
	route := Route{Name: name}
	switch name {
	case "CTFPlayer":
		route.Kind = KindPlayer
	case "CTFPlayerResource":
		route.Kind = KindPlayerResource
	case "CWorld":
		route.Kind = KindWorld
	case "CObjectSentrygun":
		route.Kind = KindSentry
	case "CObjectDispenser":
		route.Kind = KindDispenser
	case "CObjectTeleporter":
		route.Kind = KindTeleporter
	case "CWeaponMedigun":
		route.Kind = KindMedigun
		route.Class, route.Slot = core.ClassMedic, core.SlotSecondary
	default:
		if w, ok := weapons[name]; ok {
			route.Kind = KindWeapon
			route.Class, route.Slot = w.class, w.slot
		} else if p, ok := core.ProjectileTypeFromClassName(name); ok {
			route.Kind = KindProjectile
			route.Projectile = p
		}
	}
	return route
}

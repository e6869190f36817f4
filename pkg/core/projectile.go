// pkg/core/projectile.go
package core

import "github.com/golang/geo/r3"

// ProjectileType is the kind of a projectile entity.
type ProjectileType uint8

const (
	ProjectileUnknown ProjectileType = iota
	ProjectileRocket
	ProjectileGrenadePipe
	ProjectileStickyBomb
	ProjectileCrossbowBolt
	ProjectileHuntsmanArrow
	ProjectileBallOrnament
	ProjectileFlare
	ProjectileBisonBolt
)

var projectileNames = [...]string{
	ProjectileUnknown:       "unknown",
	ProjectileRocket:        "rocket",
	ProjectileGrenadePipe:   "pipe",
	ProjectileStickyBomb:    "sticky",
	ProjectileCrossbowBolt:  "crossbow_bolt",
	ProjectileHuntsmanArrow: "arrow",
	ProjectileBallOrnament:  "ball_ornament",
	ProjectileFlare:         "flare",
	ProjectileBisonBolt:     "bison_bolt",
}

func (t ProjectileType) String() string {
	if int(t) >= len(projectileNames) {
		return projectileNames[ProjectileUnknown]
	}
	return projectileNames[t]
}

// ProjectileTypeFromClassName maps a networked projectile class to its type.
// The second return value is false for classes that are not projectiles.
func ProjectileTypeFromClassName(name string) (ProjectileType, bool) {
	switch name {
	case "CTFProjectile_Rocket", "CTFProjectile_SentryRocket":
		return ProjectileRocket, true
	case "CTFGrenadePipebombProjectile":
		return ProjectileGrenadePipe, true
	case "CTFProjectile_Arrow":
		return ProjectileHuntsmanArrow, true
	case "CTFProjectile_HealingBolt":
		return ProjectileCrossbowBolt, true
	case "CTFProjectile_Flare":
		return ProjectileFlare, true
	case "CTFProjectile_EnergyRing":
		return ProjectileBisonBolt, true
	case "CTFBall_Ornament":
		return ProjectileBallOrnament, true
	default:
		return ProjectileUnknown, false
	}
}

// Projectile is the reconstructed state of one projectile entity.
type Projectile struct {
	Entity   EntityID
	Shooter  UserID // best effort, 0 when unresolved
	Team     Team
	Kind     ProjectileType
	Position r3.Vector
}

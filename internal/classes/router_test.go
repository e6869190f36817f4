package classes

import (
	"testing"

	"github.com/demolens/tickstate/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestRouter_ClassName(t *testing.T) {
	r := NewRouter()
	assert.Equal(t, "", r.ClassName(0))

	r.SetClassTable([]string{"CWorld", "CTFPlayer"})
	assert.Equal(t, "CWorld", r.ClassName(0))
	assert.Equal(t, "CTFPlayer", r.ClassName(1))
	assert.Equal(t, "", r.ClassName(2))
	assert.Equal(t, "", r.ClassName(-1))
	assert.Equal(t, 2, r.Len())
}

func TestRouter_SetClassTableReplaces(t *testing.T) {
	r := NewRouter()
	r.SetClassTable([]string{"CTFPlayer", "CWorld", "CObjectSentrygun"})
	r.SetClassTable([]string{"CObjectDispenser"})

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, KindDispenser, r.Route(0).Kind)
	assert.Equal(t, KindUnknown, r.Route(1).Kind)
}

func TestRouter_Route(t *testing.T) {
	tests := []struct {
		name  string
		class string
		check func(t *testing.T, route Route)
	}{
		{
			name:  "player",
			class: "CTFPlayer",
			check: func(t *testing.T, route Route) {
				assert.Equal(t, KindPlayer, route.Kind)
			},
		},
		{
			name:  "resource",
			class: "CTFPlayerResource",
			check: func(t *testing.T, route Route) {
				assert.Equal(t, KindPlayerResource, route.Kind)
			},
		},
		{
			name:  "buildings",
			class: "CObjectTeleporter",
			check: func(t *testing.T, route Route) {
				assert.Equal(t, KindTeleporter, route.Kind)
			},
		},
		{
			name:  "medigun",
			class: "CWeaponMedigun",
			check: func(t *testing.T, route Route) {
				assert.Equal(t, KindMedigun, route.Kind)
				assert.Equal(t, core.ClassMedic, route.Class)
				assert.Equal(t, core.SlotSecondary, route.Slot)
			},
		},
		{
			name:  "class weapon",
			class: "CTFRocketLauncher_DirectHit",
			check: func(t *testing.T, route Route) {
				assert.Equal(t, KindWeapon, route.Kind)
				assert.Equal(t, core.ClassSoldier, route.Class)
				assert.Equal(t, core.SlotPrimary, route.Slot)
			},
		},
		{
			name:  "spy watch",
			class: "CTFWeaponInvis",
			check: func(t *testing.T, route Route) {
				assert.Equal(t, core.ClassSpy, route.Class)
				assert.Equal(t, core.SlotPDA1, route.Slot)
			},
		},
		{
			name:  "sticky and pipe share a class",
			class: "CTFGrenadePipebombProjectile",
			check: func(t *testing.T, route Route) {
				assert.Equal(t, KindProjectile, route.Kind)
				assert.Equal(t, core.ProjectileGrenadePipe, route.Projectile)
			},
		},
		{
			name:  "multi class shotgun is not tracked",
			class: "CTFShotgun",
			check: func(t *testing.T, route Route) {
				assert.Equal(t, KindUnknown, route.Kind)
			},
		},
		{
			name:  "irrelevant class",
			class: "CFuncRespawnRoom",
			check: func(t *testing.T, route Route) {
				assert.Equal(t, KindUnknown, route.Kind)
				assert.Equal(t, "CFuncRespawnRoom", route.Name)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter()
			r.SetClassTable([]string{"CWorld", tt.class})
			tt.check(t, r.Route(1))
		})
	}
}

func TestRouter_RouteOutOfRange(t *testing.T) {
	r := NewRouter()
	r.SetClassTable([]string{"CTFPlayer"})
	assert.Equal(t, Route{}, r.Route(5))
	assert.Equal(t, "unknown", r.Route(5).Kind.String())
}

func TestWeaponClass(t *testing.T) {
	class, slot, ok := WeaponClass("CTFKnife")
	assert.True(t, ok)
	assert.Equal(t, core.ClassSpy, class)
	assert.Equal(t, core.SlotMelee, slot)

	_, _, ok = WeaponClass("CWeaponMedigun")
	assert.False(t, ok)
}

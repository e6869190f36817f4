package parser

import (
	"github.com/demolens/tickstate/internal/handles"
	"github.com/demolens/tickstate/pkg/core"
	"github.com/demolens/tickstate/pkg/streaming"
)

var (
	medigunHealing      = propID{"DT_WeaponMedigun", "m_bHealing"}
	medigunHolstered    = propID{"DT_WeaponMedigun", "m_bHolstered"}
	medigunTarget       = propID{"DT_WeaponMedigun", "m_hHealingTarget"}
	medigunLastTarget   = propID{"DT_WeaponMedigun", "m_hLastHealingTarget"}
	localChargeLevel    = propID{"DT_LocalTFWeaponMedigunData", "m_flChargeLevel"}
	nonLocalChargeLevel = propID{"DT_TFWeaponMedigunDataNonLocal", "m_flChargeLevel"}
)

// registerOwner consumes the owner handle properties of an update and
// reports whether prop was one.
func (p *Parser) registerOwner(entity core.EntityID, prop streaming.Property) bool {
	switch idOf(prop) {
	case baseOwnerEntity, weaponOwner:
		if h := handleOf(prop.Value); h != 0 {
			p.handles.RegisterOwner(entity, h)
		}
		return true
	}
	return false
}

// ParseMedigun applies a medigun update. Owner and heal target are resolved
// after the whole property list has been read.
func (p *Parser) ParseMedigun(u streaming.EntityUpdate) {
	if u.Kind == streaming.UpdateDelete {
		p.store.RemoveMedigun(u.Entity)
		delete(p.healTargets, u.Entity)
		return
	}

	var lastTarget handles.Handle
	p.store.UpdateMedigun(u.Entity, func(m *core.Medigun) {
		for _, prop := range u.Props {
			if p.registerOwner(u.Entity, prop) {
				continue
			}
			switch idOf(prop) {
			case baseTeam:
				m.Team = core.TeamFromInt(prop.Value.AsInt())
			case medigunHealing:
				m.IsHealing = prop.Value.AsBool()
			case medigunHolstered:
				m.IsHolstered = prop.Value.AsBool()
			case medigunTarget:
				p.healTargets[u.Entity] = handleOf(prop.Value)
			case medigunLastTarget:
				lastTarget = handleOf(prop.Value)
			case localChargeLevel, nonLocalChargeLevel:
				m.Charge = prop.Value.AsFloat()
			}
		}

		m.Owner = p.handles.OwnerOrZero(u.Entity)
		m.HealTarget = 0
		if h, ok := p.healTargets[u.Entity]; ok {
			m.HealTarget, _ = p.handles.ResolveHandle(h)
		}
		if m.HealTarget != 0 {
			m.LastHealTarget = m.HealTarget
		} else if id, ok := p.handles.ResolveHandle(lastTarget); ok && lastTarget != 0 {
			m.LastHealTarget = id
		}
		p.mirrorMedic(*m)
	})
}

// mirrorMedic copies the healing state onto the owning medic.
func (p *Parser) mirrorMedic(m core.Medigun) {
	if m.Owner == 0 {
		return
	}
	player, ok := p.store.FindPlayer(m.Owner)
	if !ok || player.ClassInfo == nil || player.ClassInfo.Medic == nil {
		return
	}
	medic := player.ClassInfo.Medic
	medic.IsHealing = m.IsHealing
	medic.HealTarget = m.HealTarget
	medic.LastHealTarget = m.LastHealTarget
}

// ParseWeapon applies an update of a single class weapon.
func (p *Parser) ParseWeapon(u streaming.EntityUpdate, class core.Class, slot core.WeaponSlot) {
	if u.Kind == streaming.UpdateDelete {
		p.store.RemoveWeapon(u.Entity)
		return
	}
	p.store.UpdateWeapon(u.Entity, class, slot, func(w *core.Weapon) {
		for _, prop := range u.Props {
			if p.registerOwner(u.Entity, prop) {
				continue
			}
			if idOf(prop) == baseTeam {
				w.Team = core.TeamFromInt(prop.Value.AsInt())
			}
		}
		w.Owner = p.handles.OwnerOrZero(u.Entity)
	})
}

var (
	rocketOrigin   = propID{"DT_TFBaseRocket", "m_vecOrigin"}
	grenadeOrigin  = propID{"DT_TFWeaponBaseGrenadeProj", "m_vecOrigin"}
	grenadeThrower = propID{"DT_BaseGrenade", "m_hThrower"}
	pipebombType   = propID{"DT_TFProjectile_Pipebomb", "m_iType"}
)

// pipebombRemote is the m_iType of a sticky bomb.
const pipebombRemote = 1

// ParseProjectile applies a projectile update. Projectiles are created on
// first sight and never removed.
func (p *Parser) ParseProjectile(u streaming.EntityUpdate, kind core.ProjectileType) {
	if u.Kind == streaming.UpdateDelete {
		return
	}
	p.store.UpdateProjectile(u.Entity, kind, func(pr *core.Projectile) {
		for _, prop := range u.Props {
			if p.registerOwner(u.Entity, prop) {
				continue
			}
			switch idOf(prop) {
			case grenadeThrower:
				if h := handleOf(prop.Value); h != 0 {
					p.handles.RegisterOwner(u.Entity, h)
				}
			case rocketOrigin, grenadeOrigin, baseOrigin:
				pr.Position = prop.Value.AsVector()
			case baseTeam:
				pr.Team = core.TeamFromInt(prop.Value.AsInt())
			case pipebombType:
				if kind == core.ProjectileGrenadePipe && prop.Value.AsInt() == pipebombRemote {
					pr.Kind = core.ProjectileStickyBomb
				}
			}
		}
		if shooter := p.userIDOfEntity(p.handles.OwnerOrZero(u.Entity)); shooter != 0 {
			pr.Shooter = shooter
		}
	})
}

// pkg/core/weapon.go
package core

// Medigun is the state of a healing weapon. Owner and targets are player
// entity ids, 0 while unresolved.
type Medigun struct {
	Entity         EntityID
	Owner          EntityID
	Team           Team
	Charge         float32 // 0..1
	HealTarget     EntityID
	LastHealTarget EntityID
	IsHealing      bool
	IsHolstered    bool
}

// Weapon is a class specific weapon whose owner has been tracked.
type Weapon struct {
	Entity EntityID
	Class  Class
	Slot   WeaponSlot
	Team   Team
	Owner  EntityID // 0 while unresolved
}

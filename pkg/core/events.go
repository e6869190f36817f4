// pkg/core/events.go
package core

// Kill is recorded for every player death.
type Kill struct {
	Tick              Tick
	DeadID            UserID
	DeadEntity        EntityID
	AttackerID        UserID
	InflictorID       EntityID
	AssisterID        *UserID // nil when nobody assisted
	Weapon            string
	WeaponID          uint16
	DeadRocketJumping bool
}

// Capture is recorded when a control point is captured.
type Capture struct {
	Tick    Tick
	CPIndex uint8
	CPName  string
	Team    Team
	Cappers []UserID
}

// Ubercharge is recorded when a medic deploys a charge.
type Ubercharge struct {
	Tick     Tick
	MedicID  UserID
	UberedID UserID
}

// Round is a bounded competitive segment. End is 0 while the round is open.
type Round struct {
	Start  Tick
	End    Tick
	Winner Team
}

// IsOpen reports whether the round has not ended yet.
func (r Round) IsOpen() bool {
	return r.End == 0
}

// Contains reports whether t falls inside the round. Open rounds extend forever.
func (r Round) Contains(t Tick) bool {
	if t < r.Start {
		return false
	}
	return r.IsOpen() || t <= r.End
}

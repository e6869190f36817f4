package parser

import (
	"io"
	"log/slog"
	"testing"

	"github.com/demolens/tickstate/internal/handles"
	"github.com/demolens/tickstate/internal/state"
	"github.com/demolens/tickstate/pkg/core"
	"github.com/demolens/tickstate/pkg/streaming"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() (*Parser, *state.Store, *handles.Map) {
	store := state.NewStore()
	hm := handles.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewParser(logger, store, hm), store, hm
}

func prop(table, name string, v streaming.Value) streaming.Property {
	return streaming.Property{Table: table, Name: name, Value: v}
}

func update(entity core.EntityID, kind streaming.UpdateKind, props ...streaming.Property) streaming.EntityUpdate {
	return streaming.EntityUpdate{Entity: entity, Kind: kind, Props: props}
}

func TestParsePlayer(t *testing.T) {
	tests := []struct {
		name    string
		updates []streaming.EntityUpdate
		check   func(t *testing.T, p core.Player)
	}{
		{
			name: "health on enter",
			updates: []streaming.EntityUpdate{
				update(7, streaming.UpdateEnter, prop("DT_BasePlayer", "m_iHealth", streaming.IntValue(100))),
			},
			check: func(t *testing.T, p core.Player) {
				assert.Equal(t, core.EntityID(7), p.Entity)
				assert.Equal(t, uint16(100), p.Health)
				assert.Nil(t, p.Info)
			},
		},
		{
			name: "local and non local origin are synonyms",
			updates: []streaming.EntityUpdate{
				update(7, streaming.UpdateEnter,
					prop("DT_TFLocalPlayerExclusive", "m_vecOrigin", streaming.VectorXYValue(10, 20)),
					prop("DT_TFLocalPlayerExclusive", "m_vecOrigin[2]", streaming.FloatValue(30)),
				),
				update(7, streaming.UpdateUpdate,
					prop("DT_TFNonLocalPlayerExclusive", "m_vecOrigin", streaming.VectorXYValue(11, 21)),
				),
			},
			check: func(t *testing.T, p core.Player) {
				assert.Equal(t, r3.Vector{X: 11, Y: 21, Z: 30}, p.Position)
			},
		},
		{
			name: "angles life state and sim time",
			updates: []streaming.EntityUpdate{
				update(7, streaming.UpdateEnter,
					prop("DT_TFNonLocalPlayerExclusive", "m_angEyeAngles[1]", streaming.FloatValue(90)),
					prop("DT_TFNonLocalPlayerExclusive", "m_angEyeAngles[0]", streaming.FloatValue(-12.5)),
					prop("DT_BasePlayer", "m_lifeState", streaming.IntValue(2)),
					prop("DT_BasePlayer", "m_iMaxHealth", streaming.IntValue(125)),
					prop("DT_BaseEntity", "m_flSimulationTime", streaming.IntValue(321)),
					prop("DT_BaseEntity", "m_iTeamNum", streaming.IntValue(3)),
				),
			},
			check: func(t *testing.T, p core.Player) {
				assert.Equal(t, float32(90), p.ViewAngle)
				assert.Equal(t, float32(-12.5), p.PitchAngle)
				assert.Equal(t, core.LifeDeath, p.State)
				assert.False(t, p.IsAlive())
				assert.Equal(t, uint16(125), p.MaxHealth)
				assert.Equal(t, uint16(321), p.SimTime)
				assert.Equal(t, core.TeamBlue, p.Team)
			},
		},
		{
			name: "wrongly typed value falls back to zero",
			updates: []streaming.EntityUpdate{
				update(7, streaming.UpdateEnter, prop("DT_BasePlayer", "m_iHealth", streaming.IntValue(100))),
				update(7, streaming.UpdateUpdate, prop("DT_BasePlayer", "m_iHealth", streaming.StringValue("full"))),
			},
			check: func(t *testing.T, p core.Player) {
				assert.Zero(t, p.Health)
			},
		},
		{
			name: "unknown properties are ignored",
			updates: []streaming.EntityUpdate{
				update(7, streaming.UpdateEnter,
					prop("DT_TFPlayerShared", "m_nPlayerCond", streaming.IntValue(4)),
					prop("DT_BasePlayer", "m_iHealth", streaming.IntValue(70)),
				),
			},
			check: func(t *testing.T, p core.Player) {
				assert.Equal(t, uint16(70), p.Health)
			},
		},
		{
			name: "delete keeps the player",
			updates: []streaming.EntityUpdate{
				update(7, streaming.UpdateEnter, prop("DT_BasePlayer", "m_iHealth", streaming.IntValue(100))),
				update(7, streaming.UpdateDelete),
			},
			check: func(t *testing.T, p core.Player) {
				assert.Equal(t, uint16(100), p.Health)
			},
		},
		{
			name: "class sets class info",
			updates: []streaming.EntityUpdate{
				update(7, streaming.UpdateEnter, prop("DT_TFPlayerClassShared", "m_iClass", streaming.IntValue(5))),
			},
			check: func(t *testing.T, p core.Player) {
				assert.Equal(t, core.ClassMedic, p.Class)
				require.NotNil(t, p.ClassInfo)
				assert.NotNil(t, p.ClassInfo.Medic)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, store, _ := newTestParser()
			for _, u := range tt.updates {
				p.ParsePlayer(u)
			}
			snap := store.Snapshot()
			require.Len(t, snap.Players, 1)
			tt.check(t, snap.Players[0])
		})
	}
}

func TestParsePlayerResource(t *testing.T) {
	p, store, _ := newTestParser()
	store.Player(3).Info = &core.UserInfo{EntityID: 3, UserID: 40}
	store.Player(4) // no identity block yet

	p.ParsePlayerResource(update(60, streaming.UpdateUpdate,
		prop("m_iTeam", "003", streaming.IntValue(2)),
		prop("m_iMaxHealth", "3", streaming.IntValue(150)),
		prop("m_iPlayerClass", "3", streaming.IntValue(1)),
		prop("m_iChargeLevel", "3", streaming.IntValue(45)),
		prop("m_iPing", "3", streaming.IntValue(38)),
		prop("m_iPing", "4", streaming.IntValue(99)),
		prop("m_iScore", "3", streaming.IntValue(12)),
		prop("m_iPing", "not-a-number", streaming.IntValue(1)),
	))

	snap := store.Snapshot()
	scout, ok := snap.PlayerByEntity(3)
	require.True(t, ok)
	assert.Equal(t, core.TeamRed, scout.Team)
	assert.Equal(t, core.TeamRed, scout.Info.Team)
	assert.Equal(t, uint16(150), scout.MaxHealth)
	assert.Equal(t, core.ClassScout, scout.Class)
	assert.Equal(t, uint8(1), scout.Info.Classes.Get(core.ClassScout))
	assert.Equal(t, uint8(45), scout.Charge)
	assert.Equal(t, uint16(38), scout.Ping)

	other, ok := snap.PlayerByEntity(4)
	require.True(t, ok)
	assert.Zero(t, other.Ping)
}

func TestParsePlayerResourceCountsClassChanges(t *testing.T) {
	p, store, _ := newTestParser()
	store.Player(3).Info = &core.UserInfo{EntityID: 3}

	for _, class := range []int64{1, 1, 3, 1} {
		p.ParsePlayerResource(update(60, streaming.UpdateUpdate,
			prop("m_iPlayerClass", "3", streaming.IntValue(class))))
	}

	info := store.Snapshot().Players[0].Info
	assert.Equal(t, uint8(2), info.Classes.Get(core.ClassScout))
	assert.Equal(t, uint8(1), info.Classes.Get(core.ClassSoldier))
}

func TestParseWorld(t *testing.T) {
	p, store, _ := newTestParser()

	p.ParseWorld(update(0, streaming.UpdateEnter,
		prop("DT_WORLD", "m_WorldMins", streaming.VectorValue(-100, -200, -50))))
	assert.Nil(t, store.Snapshot().World)

	p.ParseWorld(update(0, streaming.UpdateEnter,
		prop("DT_WORLD", "m_WorldMins", streaming.VectorValue(-100, -200, -50)),
		prop("DT_WORLD", "m_WorldMaxs", streaming.VectorValue(100, 200, 50)),
	))
	world := store.Snapshot().World
	require.NotNil(t, world)
	assert.Equal(t, r3.Vector{X: -100, Y: -200, Z: -50}, world.BoundMin)
	assert.Equal(t, r3.Vector{X: 100, Y: 200, Z: 50}, world.BoundMax)
}

func TestParseBuilding(t *testing.T) {
	common := []streaming.Property{
		prop("DT_BaseEntity", "m_vecOrigin", streaming.VectorValue(1, 2, 3)),
		prop("DT_BaseEntity", "m_iTeamNum", streaming.IntValue(2)),
		prop("DT_BaseEntity", "m_angRotation", streaming.VectorValue(0, 45, 0)),
		prop("DT_BaseObject", "m_bHasSapper", streaming.IntValue(1)),
		prop("DT_BaseObject", "m_bBuilding", streaming.IntValue(0)),
		prop("DT_BaseObject", "m_iUpgradeLevel", streaming.IntValue(3)),
		prop("DT_BaseObject", "m_hBuilder", streaming.IntValue(0x2007)),
		prop("DT_BaseObject", "m_iMaxHealth", streaming.IntValue(216)),
		prop("DT_BaseObject", "m_iHealth", streaming.IntValue(200)),
	}

	tests := []struct {
		name  string
		kind  core.BuildingKind
		extra []streaming.Property
		check func(t *testing.T, b core.Building)
	}{
		{
			name: "sentry",
			kind: core.BuildingSentry,
			extra: []streaming.Property{
				prop("DT_BaseObject", "m_bMiniBuilding", streaming.IntValue(1)),
				prop("DT_ObjectSentrygun", "m_bPlayerControlled", streaming.IntValue(1)),
				prop("DT_ObjectSentrygun", "m_hAutoAimTarget", streaming.IntValue(0x2008)),
				prop("DT_ObjectSentrygun", "m_iAmmoShells", streaming.IntValue(144)),
				prop("DT_ObjectSentrygun", "m_iAmmoRockets", streaming.IntValue(20)),
			},
			check: func(t *testing.T, b core.Building) {
				require.NotNil(t, b.Sentry)
				assert.True(t, b.Sentry.IsMini)
				assert.True(t, b.Sentry.PlayerControlled)
				assert.Equal(t, core.UserID(12), b.Sentry.AutoAimTarget)
				assert.Equal(t, uint16(144), b.Sentry.Shells)
				assert.Equal(t, uint16(20), b.Sentry.Rockets)
			},
		},
		{
			name: "dispenser",
			kind: core.BuildingDispenser,
			extra: []streaming.Property{
				prop("DT_ObjectDispenser", "m_iAmmoMetal", streaming.IntValue(400)),
				prop("DT_ObjectDispenser", "healing_array", streaming.ArrayValue(streaming.IntValue(4), streaming.IntValue(9))),
			},
			check: func(t *testing.T, b core.Building) {
				require.NotNil(t, b.Dispenser)
				assert.Equal(t, uint16(400), b.Dispenser.Metal)
				assert.Equal(t, []core.UserID{4, 9}, b.Dispenser.Healing)
			},
		},
		{
			name: "teleporter exit",
			kind: core.BuildingTeleporter,
			extra: []streaming.Property{
				prop("DT_ObjectTeleporter", "m_flRechargeTime", streaming.FloatValue(12.5)),
				prop("DT_ObjectTeleporter", "m_flCurrentRechargeDuration", streaming.FloatValue(10)),
				prop("DT_ObjectTeleporter", "m_iTimesUsed", streaming.IntValue(6)),
				prop("DT_ObjectTeleporter", "m_bMatchBuilding", streaming.IntValue(88)),
				prop("DT_ObjectTeleporter", "m_flYawToExit", streaming.FloatValue(180)),
				prop("DT_BaseObject", "m_iObjectMode", streaming.IntValue(1)),
			},
			check: func(t *testing.T, b core.Building) {
				require.NotNil(t, b.Teleporter)
				assert.False(t, b.Teleporter.IsEntrance)
				assert.Equal(t, core.EntityID(88), b.Teleporter.OtherEnd)
				assert.Equal(t, float32(12.5), b.Teleporter.RechargeTime)
				assert.Equal(t, float32(10), b.Teleporter.RechargeDuration)
				assert.Equal(t, uint16(6), b.Teleporter.TimesUsed)
				assert.Equal(t, float32(180), b.Teleporter.YawToExit)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, store, hm := newTestParser()
			store.Player(7).Info = &core.UserInfo{EntityID: 7, UserID: 11}
			store.Player(8).Info = &core.UserInfo{EntityID: 8, UserID: 12}
			hm.RegisterAlias(7, 0x2007)
			hm.RegisterAlias(8, 0x2008)

			props := append(append([]streaming.Property{}, common...), tt.extra...)
			p.ParseBuilding(update(30, streaming.UpdateEnter, props...), tt.kind)

			b, ok := store.Snapshot().Buildings[30]
			require.True(t, ok)
			assert.Equal(t, tt.kind, b.Kind)
			assert.Equal(t, r3.Vector{X: 1, Y: 2, Z: 3}, b.Position)
			assert.Equal(t, core.TeamRed, b.Team)
			assert.Equal(t, float32(45), b.Angle)
			assert.True(t, b.Sapped)
			assert.False(t, b.Building)
			assert.Equal(t, uint8(3), b.Level)
			assert.Equal(t, core.UserID(11), b.Builder)
			assert.Equal(t, uint16(216), b.MaxHealth)
			assert.Equal(t, uint16(200), b.Health)
			tt.check(t, b)
		})
	}
}

func TestParseBuildingResolvesHandlesLater(t *testing.T) {
	p, store, hm := newTestParser()

	// builder and target handles arrive before anything aliases them
	p.ParseBuilding(update(100, streaming.UpdateEnter,
		prop("DT_BaseObject", "m_hBuilder", streaming.IntValue(0x1007)),
		prop("DT_ObjectSentrygun", "m_hAutoAimTarget", streaming.IntValue(0x1009)),
		prop("DT_BaseObject", "m_iHealth", streaming.IntValue(150)),
	), core.BuildingSentry)

	b := store.Snapshot().Buildings[100]
	assert.Zero(t, b.Builder)
	require.NotNil(t, b.Sentry)
	assert.Zero(t, b.Sentry.AutoAimTarget)

	hm.RegisterAlias(7, 0x1007)
	hm.RegisterAlias(9, 0x1009)
	store.Player(7).Info = &core.UserInfo{EntityID: 7, UserID: 42}
	store.Player(9).Info = &core.UserInfo{EntityID: 9, UserID: 43}

	// a health only delta picks up both
	p.ParseBuilding(update(100, streaming.UpdateUpdate,
		prop("DT_BaseObject", "m_iHealth", streaming.IntValue(120)),
	), core.BuildingSentry)

	b = store.Snapshot().Buildings[100]
	assert.Equal(t, core.UserID(42), b.Builder)
	assert.Equal(t, core.UserID(43), b.Sentry.AutoAimTarget)
	assert.Equal(t, uint16(120), b.Health)

	// the target handle is cleared when the sentry loses it
	p.ParseBuilding(update(100, streaming.UpdateUpdate,
		prop("DT_ObjectSentrygun", "m_hAutoAimTarget", streaming.IntValue(0xFFFFFF)),
	), core.BuildingSentry)

	b = store.Snapshot().Buildings[100]
	assert.Equal(t, core.UserID(42), b.Builder)
	assert.Zero(t, b.Sentry.AutoAimTarget)

	// a new building on the same entity does not inherit the old handles
	p.ParseBuilding(update(100, streaming.UpdateDelete), core.BuildingSentry)
	p.ParseBuilding(update(100, streaming.UpdateEnter,
		prop("DT_BaseObject", "m_iHealth", streaming.IntValue(100)),
	), core.BuildingDispenser)

	b = store.Snapshot().Buildings[100]
	assert.Zero(t, b.Builder)
}

func TestParseBuildingDelete(t *testing.T) {
	p, store, _ := newTestParser()
	p.ParseBuilding(update(30, streaming.UpdateEnter,
		prop("DT_BaseObject", "m_iHealth", streaming.IntValue(100))), core.BuildingSentry)
	require.Contains(t, store.Snapshot().Buildings, core.EntityID(30))

	// properties on a delete are not applied and do not recreate it
	p.ParseBuilding(update(30, streaming.UpdateDelete,
		prop("DT_BaseObject", "m_iHealth", streaming.IntValue(5))), core.BuildingSentry)
	assert.NotContains(t, store.Snapshot().Buildings, core.EntityID(30))
}

func TestParseMedigun(t *testing.T) {
	p, store, hm := newTestParser()
	store.Player(7).SetClass(core.ClassMedic)
	store.Player(9)

	// owner and target handles arrive before anything aliases them
	p.ParseMedigun(update(50, streaming.UpdateEnter,
		prop("DT_BaseCombatWeapon", "m_hOwner", streaming.IntValue(0x1007)),
		prop("DT_BaseEntity", "m_iTeamNum", streaming.IntValue(3)),
		prop("DT_WeaponMedigun", "m_hHealingTarget", streaming.IntValue(0x1009)),
		prop("DT_WeaponMedigun", "m_bHealing", streaming.IntValue(1)),
		prop("DT_TFWeaponMedigunDataNonLocal", "m_flChargeLevel", streaming.FloatValue(0.5)),
	))

	m := store.Snapshot().Mediguns[50]
	assert.Zero(t, m.Owner)
	assert.Zero(t, m.HealTarget)
	assert.Equal(t, core.TeamBlue, m.Team)
	assert.True(t, m.IsHealing)
	assert.Equal(t, float32(0.5), m.Charge)

	hm.RegisterAlias(7, 0x1007)
	hm.RegisterAlias(9, 0x1009)

	// a later update re-resolves both
	p.ParseMedigun(update(50, streaming.UpdateUpdate,
		prop("DT_LocalTFWeaponMedigunData", "m_flChargeLevel", streaming.FloatValue(0.75))))

	snap := store.Snapshot()
	m = snap.Mediguns[50]
	assert.Equal(t, core.EntityID(7), m.Owner)
	assert.Equal(t, core.EntityID(9), m.HealTarget)
	assert.Equal(t, core.EntityID(9), m.LastHealTarget)
	assert.Equal(t, float32(0.75), m.Charge)

	medic, ok := snap.PlayerByEntity(7)
	require.True(t, ok)
	require.NotNil(t, medic.ClassInfo.Medic)
	assert.True(t, medic.ClassInfo.Medic.IsHealing)
	assert.Equal(t, core.EntityID(9), medic.ClassInfo.Medic.HealTarget)

	// target dropped, last target kept
	p.ParseMedigun(update(50, streaming.UpdateUpdate,
		prop("DT_WeaponMedigun", "m_hHealingTarget", streaming.IntValue(0)),
		prop("DT_WeaponMedigun", "m_bHealing", streaming.IntValue(0))))
	m = store.Snapshot().Mediguns[50]
	assert.Zero(t, m.HealTarget)
	assert.Equal(t, core.EntityID(9), m.LastHealTarget)

	p.ParseMedigun(update(50, streaming.UpdateDelete))
	assert.NotContains(t, store.Snapshot().Mediguns, core.EntityID(50))
}

func TestParseWeapon(t *testing.T) {
	p, store, hm := newTestParser()

	p.ParseWeapon(update(60, streaming.UpdateEnter,
		prop("DT_BaseEntity", "m_hOwnerEntity", streaming.IntValue(0x3007)),
		prop("DT_BaseEntity", "m_iTeamNum", streaming.IntValue(2)),
	), core.ClassSoldier, core.SlotPrimary)

	w := store.Snapshot().Weapons[60]
	assert.Equal(t, core.ClassSoldier, w.Class)
	assert.Equal(t, core.SlotPrimary, w.Slot)
	assert.Equal(t, core.TeamRed, w.Team)
	assert.Zero(t, w.Owner)

	hm.RegisterAlias(7, 0x3007)
	p.ParseWeapon(update(60, streaming.UpdateUpdate), core.ClassSoldier, core.SlotPrimary)
	assert.Equal(t, core.EntityID(7), store.Snapshot().Weapons[60].Owner)

	p.ParseWeapon(update(60, streaming.UpdateDelete), core.ClassSoldier, core.SlotPrimary)
	assert.Empty(t, store.Snapshot().Weapons)
}

func TestParseProjectile(t *testing.T) {
	tests := []struct {
		name  string
		kind  core.ProjectileType
		props []streaming.Property
		check func(t *testing.T, pr core.Projectile)
	}{
		{
			name: "rocket with resolved shooter",
			kind: core.ProjectileRocket,
			props: []streaming.Property{
				prop("DT_TFBaseRocket", "m_vecOrigin", streaming.VectorValue(5, 6, 7)),
				prop("DT_BaseEntity", "m_hOwnerEntity", streaming.IntValue(0x4007)),
				prop("DT_BaseEntity", "m_iTeamNum", streaming.IntValue(3)),
			},
			check: func(t *testing.T, pr core.Projectile) {
				assert.Equal(t, core.ProjectileRocket, pr.Kind)
				assert.Equal(t, r3.Vector{X: 5, Y: 6, Z: 7}, pr.Position)
				assert.Equal(t, core.UserID(21), pr.Shooter)
				assert.Equal(t, core.TeamBlue, pr.Team)
			},
		},
		{
			name: "sticky bomb",
			kind: core.ProjectileGrenadePipe,
			props: []streaming.Property{
				prop("DT_TFWeaponBaseGrenadeProj", "m_vecOrigin", streaming.VectorValue(1, 1, 1)),
				prop("DT_BaseGrenade", "m_hThrower", streaming.IntValue(0x4007)),
				prop("DT_TFProjectile_Pipebomb", "m_iType", streaming.IntValue(1)),
			},
			check: func(t *testing.T, pr core.Projectile) {
				assert.Equal(t, core.ProjectileStickyBomb, pr.Kind)
				assert.Equal(t, core.UserID(21), pr.Shooter)
			},
		},
		{
			name: "pipe stays a pipe",
			kind: core.ProjectileGrenadePipe,
			props: []streaming.Property{
				prop("DT_TFProjectile_Pipebomb", "m_iType", streaming.IntValue(0)),
			},
			check: func(t *testing.T, pr core.Projectile) {
				assert.Equal(t, core.ProjectileGrenadePipe, pr.Kind)
				assert.Zero(t, pr.Shooter)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, store, hm := newTestParser()
			store.Player(7).Info = &core.UserInfo{EntityID: 7, UserID: 21}
			hm.RegisterAlias(7, 0x4007)

			p.ParseProjectile(update(70, streaming.UpdateEnter, tt.props...), tt.kind)

			pr, ok := store.Snapshot().Projectiles[70]
			require.True(t, ok)
			assert.Equal(t, core.EntityID(70), pr.Entity)
			tt.check(t, pr)
		})
	}
}

// Projectiles are not removed on delete; they stay until the recording ends.
func TestParseProjectileDeleteIsIgnored(t *testing.T) {
	p, store, _ := newTestParser()
	p.ParseProjectile(update(70, streaming.UpdateEnter), core.ProjectileFlare)
	p.ParseProjectile(update(70, streaming.UpdateDelete), core.ProjectileFlare)
	assert.Contains(t, store.Snapshot().Projectiles, core.EntityID(70))
}

func TestParseUserInfo(t *testing.T) {
	tests := []struct {
		name    string
		entry   streaming.StringEntry
		check   func(t *testing.T, store *state.Store)
		wantErr bool
	}{
		{
			name: "full entry",
			entry: streaming.StringEntry{
				Table: UserInfoTable,
				Index: 2,
				Text:  "2",
				Extra: EncodeUserInfo("Jerma", 17, "[U:1:22202]"),
			},
			check: func(t *testing.T, store *state.Store) {
				p, ok := store.FindPlayer(3)
				require.True(t, ok)
				require.NotNil(t, p.Info)
				assert.Equal(t, "Jerma", p.Info.Name)
				assert.Equal(t, core.UserID(17), p.Info.UserID)
				assert.Equal(t, "[U:1:22202]", p.Info.SteamID)
				assert.Equal(t, uint64(76561197960287930), p.Info.SteamID64)
				assert.Equal(t, core.EntityID(3), p.Info.EntityID)
			},
		},
		{
			name: "bot without steam id",
			entry: streaming.StringEntry{
				Table: UserInfoTable,
				Index: 0,
				Extra: EncodeUserInfo("Bot", 2, "BOT"),
			},
			check: func(t *testing.T, store *state.Store) {
				p, ok := store.FindPlayer(1)
				require.True(t, ok)
				assert.Equal(t, "BOT", p.Info.SteamID)
				assert.Zero(t, p.Info.SteamID64)
			},
		},
		{
			name:  "other table",
			entry: streaming.StringEntry{Table: "downloadables", Index: 1, Extra: []byte{1, 2, 3}},
			check: func(t *testing.T, store *state.Store) {
				assert.Empty(t, store.Snapshot().Players)
			},
		},
		{
			name:  "no extra data",
			entry: streaming.StringEntry{Table: UserInfoTable, Index: 1, Text: "1"},
			check: func(t *testing.T, store *state.Store) {
				assert.Empty(t, store.Snapshot().Players)
			},
		},
		{
			name:    "truncated extra data",
			entry:   streaming.StringEntry{Table: UserInfoTable, Index: 1, Extra: []byte("short")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, store, _ := newTestParser()
			err := p.ParseUserInfo(tt.entry)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, store)
		})
	}
}

func TestParseUserInfoKeepsClassHistory(t *testing.T) {
	p, store, _ := newTestParser()
	require.NoError(t, p.ParseUserInfo(streaming.StringEntry{
		Table: UserInfoTable, Index: 4, Extra: EncodeUserInfo("a", 9, "BOT"),
	}))
	store.Player(5).Info.Classes[core.ClassPyro] = 3

	require.NoError(t, p.ParseUserInfo(streaming.StringEntry{
		Table: UserInfoTable, Index: 4, Extra: EncodeUserInfo("renamed", 9, "BOT"),
	}))

	info := store.Snapshot().Players[0].Info
	assert.Equal(t, "renamed", info.Name)
	assert.Equal(t, uint8(3), info.Classes.Get(core.ClassPyro))
}

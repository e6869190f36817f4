package classes

import "github.com/demolens/tickstate/pkg/core"

type weaponClass struct {
	class core.Class
	slot  core.WeaponSlot
}

// weapons lists the networked weapon classes usable by exactly one class.
// Multi-class items such as shotguns and the pain train are left out.
var weapons = map[string]weaponClass{
	// scout
	"CTFScattergun":            {core.ClassScout, core.SlotPrimary},
	"CTFSodaPopper":            {core.ClassScout, core.SlotPrimary},
	"CTFPEPBrawlerBlaster":     {core.ClassScout, core.SlotPrimary},
	"CTFPistol_ScoutPrimary":   {core.ClassScout, core.SlotPrimary},
	"CTFPistol_ScoutSecondary": {core.ClassScout, core.SlotSecondary},
	"CTFPistol_Scout":          {core.ClassScout, core.SlotSecondary},
	"CTFLunchBox_Drink":        {core.ClassScout, core.SlotSecondary},
	"CTFCleaver":               {core.ClassScout, core.SlotSecondary},
	"CTFJarMilk":               {core.ClassScout, core.SlotSecondary},
	"CTFBat":                   {core.ClassScout, core.SlotMelee},
	"CTFBat_Fish":              {core.ClassScout, core.SlotMelee},
	"CTFBat_Wood":              {core.ClassScout, core.SlotMelee},
	"CTFBat_Giftwrap":          {core.ClassScout, core.SlotMelee},

	// soldier
	"CTFRocketLauncher":           {core.ClassSoldier, core.SlotPrimary},
	"CTFRocketLauncher_AirStrike": {core.ClassSoldier, core.SlotPrimary},
	"CTFRocketLauncher_DirectHit": {core.ClassSoldier, core.SlotPrimary},
	"CTFRocketLauncher_Mortar":    {core.ClassSoldier, core.SlotPrimary},
	"CTFParticleCannon":           {core.ClassSoldier, core.SlotPrimary},
	"CTFShotgun_Soldier":          {core.ClassSoldier, core.SlotSecondary},
	"CTFBuffItem":                 {core.ClassSoldier, core.SlotSecondary},
	"CTFParachute_Secondary":      {core.ClassSoldier, core.SlotSecondary},
	"CTFRaygun":                   {core.ClassSoldier, core.SlotSecondary},
	"CTFShovel":                   {core.ClassSoldier, core.SlotMelee},

	// pyro
	"CTFFlameThrower":     {core.ClassPyro, core.SlotPrimary},
	"CTFWeaponFlameBall":  {core.ClassPyro, core.SlotPrimary},
	"CTFFlareGun":         {core.ClassPyro, core.SlotSecondary},
	"CTFFlareGun_Revenge": {core.ClassPyro, core.SlotSecondary},
	"CTFShotgun_Pyro":     {core.ClassPyro, core.SlotSecondary},
	"CTFJarGas":           {core.ClassPyro, core.SlotSecondary},
	"CTFFireAxe":          {core.ClassPyro, core.SlotMelee},
	"CTFSlap":             {core.ClassPyro, core.SlotMelee},
	"CTFBreakableSign":    {core.ClassPyro, core.SlotMelee},

	// demoman
	"CTFGrenadeLauncher":   {core.ClassDemoman, core.SlotPrimary},
	"CTFCannon":            {core.ClassDemoman, core.SlotPrimary},
	"CTFParachute_Primary": {core.ClassDemoman, core.SlotPrimary},
	"CTFPipebombLauncher":  {core.ClassDemoman, core.SlotSecondary},
	"CTFBottle":            {core.ClassDemoman, core.SlotMelee},
	"CTFStickBomb":         {core.ClassDemoman, core.SlotMelee},
	"CTFSword":             {core.ClassDemoman, core.SlotMelee},

	// heavy
	"CTFMinigun":     {core.ClassHeavy, core.SlotPrimary},
	"CTFShotgun_HWG": {core.ClassHeavy, core.SlotSecondary},
	"CTFLunchBox":    {core.ClassHeavy, core.SlotSecondary},
	"CTFFists":       {core.ClassHeavy, core.SlotMelee},

	// engineer
	"CTFShotgun_Revenge":            {core.ClassEngineer, core.SlotPrimary},
	"CTFShotgunBuildingRescue":      {core.ClassEngineer, core.SlotPrimary},
	"CTFMechanicalArm":              {core.ClassEngineer, core.SlotSecondary},
	"CTFLaserPointer":               {core.ClassEngineer, core.SlotSecondary},
	"CTFWrench":                     {core.ClassEngineer, core.SlotMelee},
	"CTFRobotArm":                   {core.ClassEngineer, core.SlotMelee},
	"CTFWeaponPDA":                  {core.ClassEngineer, core.SlotPDA1},
	"CTFWeaponPDA_Engineer_Build":   {core.ClassEngineer, core.SlotPDA1},
	"CTFWeaponPDA_Engineer_Destroy": {core.ClassEngineer, core.SlotPDA2},

	// medic, the medigun has its own decoder
	"CTFSyringeGun": {core.ClassMedic, core.SlotPrimary},
	"CTFCrossbow":   {core.ClassMedic, core.SlotPrimary},
	"CTFBonesaw":    {core.ClassMedic, core.SlotMelee},

	// sniper
	"CTFSniperRifle":        {core.ClassSniper, core.SlotPrimary},
	"CTFSniperRifleClassic": {core.ClassSniper, core.SlotPrimary},
	"CTFSniperRifleDecap":   {core.ClassSniper, core.SlotPrimary},
	"CTFCompoundBow":        {core.ClassSniper, core.SlotPrimary},
	"CTFSMG":                {core.ClassSniper, core.SlotSecondary},
	"CTFChargedSMG":         {core.ClassSniper, core.SlotSecondary},
	"CTFJar":                {core.ClassSniper, core.SlotSecondary},
	"CTFClub":               {core.ClassSniper, core.SlotMelee},

	// spy
	"CTFRevolver":      {core.ClassSpy, core.SlotPrimary},
	"CTFWeaponSapper":  {core.ClassSpy, core.SlotSecondary},
	"CTFKnife":         {core.ClassSpy, core.SlotMelee},
	"CTFWeaponInvis":   {core.ClassSpy, core.SlotPDA1},
	"CTFWeaponPDA_Spy": {core.ClassSpy, core.SlotPDA2},
}

// WeaponClass returns the class and slot of a single class weapon.
func WeaponClass(name string) (core.Class, core.WeaponSlot, bool) {
	w, ok := weapons[name]
	return w.class, w.slot, ok
}

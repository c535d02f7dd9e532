package model

type Season string

const (
	SeasonAutumn Season = "autumn"
	SeasonWinter Season = "winter"
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
)

func (s Season) Valid() bool {
	switch s {
	case SeasonAutumn, SeasonWinter, SeasonSpring, SeasonSummer:
		return true
	}
	return false
}

// Intent is the play style the host advertises.
type Intent string

const (
	IntentSocial      Intent = "social"
	IntentCooperative Intent = "cooperative"
	IntentCompetitive Intent = "competitive"
	IntentMadness     Intent = "madness"
)

// Role is the character prefab a participant plays. Modded servers publish
// prefabs outside of the base game list, so unknown values are kept as-is.
type Role string

const (
	RoleUnknown      Role = ""
	RoleWilson       Role = "wilson"
	RoleWillow       Role = "willow"
	RoleWendy        Role = "wendy"
	RoleWolfgang     Role = "wolfgang"
	RoleWX78         Role = "wx78"
	RoleWickerbottom Role = "wickerbottom"
	RoleWes          Role = "wes"
	RoleWaxwell      Role = "waxwell"
	RoleWoodie       Role = "woodie"
	RoleWathgrithr   Role = "wathgrithr"
	RoleWebber       Role = "webber"
	RoleWinona       Role = "winona"
	RoleWortox       Role = "wortox"
	RoleWormwood     Role = "wormwood"
	RoleWarly        Role = "warly"
	RoleWurt         Role = "wurt"
	RoleWalter       Role = "walter"
	RoleWanda        Role = "wanda"
	RoleWonkey       Role = "wonkey"
)

var knownRoles = map[Role]struct{}{
	RoleWilson: {}, RoleWillow: {}, RoleWendy: {}, RoleWolfgang: {}, RoleWX78: {},
	RoleWickerbottom: {}, RoleWes: {}, RoleWaxwell: {}, RoleWoodie: {}, RoleWathgrithr: {},
	RoleWebber: {}, RoleWinona: {}, RoleWortox: {}, RoleWormwood: {}, RoleWarly: {},
	RoleWurt: {}, RoleWalter: {}, RoleWanda: {}, RoleWonkey: {},
}

// Known reports whether the role belongs to the base game roster.
func (r Role) Known() bool {
	_, ok := knownRoles[r]
	return ok
}

type VersionType string

const (
	VersionRelease VersionType = "Release"
	VersionTest    VersionType = "Test"
)

func (t VersionType) Valid() bool { return t == VersionRelease || t == VersionTest }

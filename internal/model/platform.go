package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Platform is a set of client ecosystems a session is reachable from. A single
// value may carry several flags at once.
type Platform uint8

const (
	PlatformSteam  Platform = 1
	PlatformPSN    Platform = 2
	PlatformRail   Platform = 4
	PlatformXBone  Platform = 16
	PlatformSwitch Platform = 32
)

// AllPlatforms lists every individual platform flag. Discovery iterates over
// it when the caller does not restrict the platforms.
var AllPlatforms = []Platform{
	PlatformSteam,
	PlatformPSN,
	PlatformRail,
	PlatformXBone,
	PlatformSwitch,
}

const knownPlatforms = PlatformSteam | PlatformPSN | PlatformRail | PlatformXBone | PlatformSwitch

var platformNames = map[Platform]string{
	PlatformSteam:  "Steam",
	PlatformPSN:    "PSN",
	PlatformRail:   "Rail",
	PlatformXBone:  "XBone",
	PlatformSwitch: "Switch",
}

func (p Platform) Has(flag Platform) bool { return flag != 0 && p&flag == flag }

// Valid reports whether p is non-empty and holds only known flags.
func (p Platform) Valid() bool { return p != 0 && p&^knownPlatforms == 0 }

// Flags splits a combined value into its individual flags, in AllPlatforms order.
func (p Platform) Flags() []Platform {
	var flags []Platform
	for _, flag := range AllPlatforms {
		if p.Has(flag) {
			flags = append(flags, flag)
		}
	}
	return flags
}

func (p Platform) String() string {
	if name, ok := platformNames[p]; ok {
		return name
	}
	flags := p.Flags()
	if len(flags) == 0 || !p.Valid() {
		return fmt.Sprintf("Platform(%d)", uint8(p))
	}
	names := make([]string, len(flags))
	for i, flag := range flags {
		names[i] = platformNames[flag]
	}
	return strings.Join(names, "|")
}

// ParsePlatform accepts a flag name (case-insensitive) or several names joined
// with "|".
func ParsePlatform(s string) (Platform, error) {
	var p Platform
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		found := false
		for flag, name := range platformNames {
			if strings.EqualFold(name, part) {
				p |= flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown platform: %q", part)
		}
	}
	return p, nil
}

// ExpandPlatforms returns the individual flags of every value, or AllPlatforms
// when no value is given.
func ExpandPlatforms(platforms []Platform) []Platform {
	if len(platforms) == 0 {
		return AllPlatforms
	}
	var flags []Platform
	seen := Platform(0)
	for _, p := range platforms {
		for _, flag := range p.Flags() {
			if seen.Has(flag) {
				continue
			}
			seen |= flag
			flags = append(flags, flag)
		}
	}
	return flags
}

func (p Platform) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts either the numeric bitmask used by the directory or a
// flag name.
func (p *Platform) UnmarshalJSON(data []byte) error {
	var n uint8
	if err := json.Unmarshal(data, &n); err == nil {
		*p = Platform(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("platform must be a number or a name: %w", err)
	}
	v, err := ParsePlatform(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

package model

import (
	"fmt"
	"net/netip"
)

// RowKey addresses one session in the directory. Row identifiers are only
// unique within a region.
type RowKey struct {
	RowID  string `json:"rowId"`
	Region Region `json:"region"`
}

func (k RowKey) String() string { return fmt.Sprintf("%s@%s", k.RowID, k.Region) }

// LobbySummary is a session discovered in the lobby listing.
type LobbySummary struct {
	RowID           string     `json:"rowId"`
	Region          Region     `json:"region"`
	Name            string     `json:"name"`
	Addr            netip.Addr `json:"addr"`
	Port            int        `json:"port"`
	Host            string     `json:"host"`
	Connected       int        `json:"connected"`
	MaxConnections  int        `json:"maxConnections"`
	V               int        `json:"v"`
	AllowNewPlayers bool       `json:"allowNewPlayers"`
	ClanOnly        bool       `json:"clanOnly"`
	ClientHosted    bool       `json:"clientHosted"`
	Dedicated       bool       `json:"dedicated"`
	FO              bool       `json:"fo"`
	LANOnly         bool       `json:"lanOnly"`
	Mods            bool       `json:"mods"`
	Password        bool       `json:"password"`
	PVP             bool       `json:"pvp"`
	ServerPaused    bool       `json:"serverPaused"`
	Platform        Platform   `json:"platform"`
	Session         string     `json:"session"`
	GUID            string     `json:"guid"`
	Intent          Intent     `json:"intent"`
	SteamRoom       string     `json:"steamRoom"`

	Tags        string               `json:"tags,omitempty"`
	Mode        string               `json:"mode,omitempty"`
	Season      Season               `json:"season,omitempty"`
	SteamID     string               `json:"steamId,omitempty"`
	Secondaries map[string]Secondary `json:"secondaries,omitempty"`
}

func (l *LobbySummary) Key() RowKey { return RowKey{RowID: l.RowID, Region: l.Region} }

// ConnectCode returns the console command joining the session.
func (l *LobbySummary) ConnectCode() string {
	return fmt.Sprintf("c_connect('%s', %d)", l.Addr, l.Port)
}

// Secondary describes a secondary shard (e.g. caves) of a session.
type Secondary struct {
	ID      string     `json:"id"`
	Port    int        `json:"port,omitempty"`
	Addr    netip.Addr `json:"addr,omitzero"`
	SteamID string     `json:"steamId,omitempty"`
}

// SessionDetail is the full record of one session, read by its row identifier.
type SessionDetail struct {
	LobbySummary

	Tick          int64  `json:"tick"`
	ClientModsOff bool   `json:"clientModsOff"`
	NAT           int    `json:"nat"`
	Data          string `json:"data,omitempty"`
	WorldGen      string `json:"worldgen,omitempty"`
	ModsInfo      []any  `json:"modsInfo,omitempty"`
	Description   string `json:"desc,omitempty"`

	Players []Participant `json:"players"`
	// PlayersErr is set when the participant blob could not be decoded. The
	// rest of the record stays valid.
	PlayersErr error `json:"-" cbor:"-"`
}

// Participant is a player connected to a session.
type Participant struct {
	Name   string     `json:"name"`
	UserID string     `json:"userId,omitempty"`
	Prefab Role       `json:"prefab,omitempty"`
	NetID  *int64     `json:"netId,omitempty"`
	IP     netip.Addr `json:"ip,omitzero"`
}

// KeysOf returns the row keys of the given lobbies.
func KeysOf(lobbies []LobbySummary) []RowKey {
	keys := make([]RowKey, len(lobbies))
	for i := range lobbies {
		keys[i] = lobbies[i].Key()
	}
	return keys
}

package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ValidationError rejects a single record. It never affects sibling records.
type ValidationError struct {
	RowID  string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	switch {
	case e.RowID != "" && e.Field != "":
		return fmt.Sprintf("invalid record %s: %s: %s", e.RowID, e.Field, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("invalid field %s: %s", e.Field, e.Reason)
	default:
		return "invalid record: " + e.Reason
	}
}

type secondaryRecord struct {
	ID      *string `json:"id"`
	Port    *int    `json:"port"`
	Addr    *string `json:"__addr"`
	SteamID *string `json:"steamid"`
}

// lobbyRecord mirrors the directory payload. Pointers mark required fields so
// that absent values can be told apart from zero values.
type lobbyRecord struct {
	RowID           *string   `json:"__rowId"`
	Name            *string   `json:"name"`
	Addr            *string   `json:"__addr"`
	Port            *int      `json:"port"`
	Host            *string   `json:"host"`
	Connected       *int      `json:"connected"`
	MaxConnections  *int      `json:"maxconnections"`
	V               *int      `json:"v"`
	AllowNewPlayers *bool     `json:"allownewplayers"`
	ClanOnly        *bool     `json:"clanonly"`
	ClientHosted    *bool     `json:"clienthosted"`
	Dedicated       *bool     `json:"dedicated"`
	FO              *bool     `json:"fo"`
	LANOnly         *bool     `json:"lanonly"`
	Mods            *bool     `json:"mods"`
	Password        *bool     `json:"password"`
	PVP             *bool     `json:"pvp"`
	ServerPaused    *bool     `json:"serverpaused"`
	Platform        *Platform `json:"platform"`
	Session         *string   `json:"session"`
	GUID            *string   `json:"guid"`
	Intent          *string   `json:"intent"`
	SteamRoom       *string   `json:"steamroom"`

	Tags        *string                    `json:"tags"`
	Mode        *string                    `json:"mode"`
	Season      *string                    `json:"season"`
	SteamID     *string                    `json:"steamid"`
	Secondaries map[string]secondaryRecord `json:"secondaries"`
}

type roomRecord struct {
	lobbyRecord

	Tick          *int64  `json:"tick"`
	ClientModsOff *bool   `json:"clientmodsoff"`
	NAT           *int    `json:"nat"`
	Data          *string `json:"data"`
	WorldGen      *string `json:"worldgen"`
	ModsInfo      []any   `json:"mods_info"`
	Desc          *string `json:"desc"`
	Players       *string `json:"players"`
}

type requiredField struct {
	name    string
	present bool
}

func firstMissing(fields []requiredField) string {
	for _, f := range fields {
		if !f.present {
			return f.name
		}
	}
	return ""
}

func unmarshalRecord(raw []byte, v any) error {
	err := json.Unmarshal(raw, v)
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &ValidationError{Field: typeErr.Field, Reason: "expected " + typeErr.Type.String()}
	}
	return &ValidationError{Reason: err.Error()}
}

// DecodeLobbySummary validates one raw lobby listing record. The region is
// attached from the request context because the payload never carries it.
func DecodeLobbySummary(raw []byte, region Region) (LobbySummary, error) {
	var rec lobbyRecord
	if err := unmarshalRecord(raw, &rec); err != nil {
		return LobbySummary{}, err
	}
	return rec.summary(region)
}

// DecodeSessionDetail validates one raw session record and decodes its player
// list. A malformed player list is reported through PlayersErr only.
func DecodeSessionDetail(raw []byte, region Region) (SessionDetail, error) {
	var rec roomRecord
	if err := unmarshalRecord(raw, &rec); err != nil {
		return SessionDetail{}, err
	}

	summary, err := rec.summary(region)
	if err != nil {
		return SessionDetail{}, err
	}

	missing := firstMissing([]requiredField{
		{"tick", rec.Tick != nil},
		{"clientmodsoff", rec.ClientModsOff != nil},
		{"nat", rec.NAT != nil},
	})
	if missing != "" {
		return SessionDetail{}, &ValidationError{RowID: summary.RowID, Field: missing, Reason: "field required"}
	}
	for i, v := range rec.ModsInfo {
		switch v.(type) {
		case nil, string, bool:
		default:
			return SessionDetail{}, &ValidationError{
				RowID:  summary.RowID,
				Field:  fmt.Sprintf("mods_info[%d]", i),
				Reason: fmt.Sprintf("unexpected %T", v),
			}
		}
	}

	detail := SessionDetail{
		LobbySummary:  summary,
		Tick:          *rec.Tick,
		ClientModsOff: *rec.ClientModsOff,
		NAT:           *rec.NAT,
		Data:          deref(rec.Data),
		WorldGen:      deref(rec.WorldGen),
		ModsInfo:      rec.ModsInfo,
		Description:   deref(rec.Desc),
	}
	detail.Players, detail.PlayersErr = DecodeParticipants(deref(rec.Players))
	if detail.PlayersErr != nil {
		detail.Players = []Participant{}
	}
	return detail, nil
}

func (rec *lobbyRecord) summary(region Region) (LobbySummary, error) {
	missing := firstMissing([]requiredField{
		{"__rowId", rec.RowID != nil},
		{"name", rec.Name != nil},
		{"__addr", rec.Addr != nil},
		{"port", rec.Port != nil},
		{"host", rec.Host != nil},
		{"connected", rec.Connected != nil},
		{"maxconnections", rec.MaxConnections != nil},
		{"v", rec.V != nil},
		{"allownewplayers", rec.AllowNewPlayers != nil},
		{"clanonly", rec.ClanOnly != nil},
		{"clienthosted", rec.ClientHosted != nil},
		{"dedicated", rec.Dedicated != nil},
		{"fo", rec.FO != nil},
		{"lanonly", rec.LANOnly != nil},
		{"mods", rec.Mods != nil},
		{"password", rec.Password != nil},
		{"pvp", rec.PVP != nil},
		{"serverpaused", rec.ServerPaused != nil},
		{"platform", rec.Platform != nil},
		{"session", rec.Session != nil},
		{"guid", rec.GUID != nil},
		{"intent", rec.Intent != nil},
		{"steamroom", rec.SteamRoom != nil},
	})
	rowID := deref(rec.RowID)
	if missing != "" {
		return LobbySummary{}, &ValidationError{RowID: rowID, Field: missing, Reason: "field required"}
	}
	if !region.Valid() {
		return LobbySummary{}, &ValidationError{RowID: rowID, Field: "region", Reason: fmt.Sprintf("unknown region %q", region)}
	}

	addr, err := parseIPv4(*rec.Addr)
	if err != nil {
		return LobbySummary{}, &ValidationError{RowID: rowID, Field: "__addr", Reason: err.Error()}
	}
	if !rec.Platform.Valid() {
		return LobbySummary{}, &ValidationError{RowID: rowID, Field: "platform", Reason: fmt.Sprintf("unknown platform %d", uint8(*rec.Platform))}
	}
	season := Season(deref(rec.Season))
	if season != "" && !season.Valid() {
		return LobbySummary{}, &ValidationError{RowID: rowID, Field: "season", Reason: fmt.Sprintf("unknown season %q", season)}
	}

	var secondaries map[string]Secondary
	if rec.Secondaries != nil {
		secondaries = make(map[string]Secondary, len(rec.Secondaries))
		for name, s := range rec.Secondaries {
			if s.ID == nil {
				return LobbySummary{}, &ValidationError{RowID: rowID, Field: "secondaries." + name + ".id", Reason: "field required"}
			}
			sec := Secondary{ID: *s.ID, SteamID: deref(s.SteamID)}
			if s.Port != nil {
				sec.Port = *s.Port
			}
			if s.Addr != nil {
				if sec.Addr, err = parseIPv4(*s.Addr); err != nil {
					return LobbySummary{}, &ValidationError{RowID: rowID, Field: "secondaries." + name + ".__addr", Reason: err.Error()}
				}
			}
			secondaries[name] = sec
		}
	}

	return LobbySummary{
		RowID:           rowID,
		Region:          region,
		Name:            *rec.Name,
		Addr:            addr,
		Port:            *rec.Port,
		Host:            *rec.Host,
		Connected:       *rec.Connected,
		MaxConnections:  *rec.MaxConnections,
		V:               *rec.V,
		AllowNewPlayers: *rec.AllowNewPlayers,
		ClanOnly:        *rec.ClanOnly,
		ClientHosted:    *rec.ClientHosted,
		Dedicated:       *rec.Dedicated,
		FO:              *rec.FO,
		LANOnly:         *rec.LANOnly,
		Mods:            *rec.Mods,
		Password:        *rec.Password,
		PVP:             *rec.PVP,
		ServerPaused:    *rec.ServerPaused,
		Platform:        *rec.Platform,
		Session:         *rec.Session,
		GUID:            *rec.GUID,
		Intent:          Intent(*rec.Intent),
		SteamRoom:       *rec.SteamRoom,
		Tags:            deref(rec.Tags),
		Mode:            deref(rec.Mode),
		Season:          season,
		SteamID:         deref(rec.SteamID),
		Secondaries:     secondaries,
	}, nil
}

func deref[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}

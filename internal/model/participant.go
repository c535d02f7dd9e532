package model

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"slices"
	"strconv"
	"strings"

	"github.com/dimspell/lobbywatch/internal/luatable"
)

// DecodeParticipants decodes the player list the game embeds as Lua table text
// into the "players" field of a session. Empty text yields an empty list. A
// non-nil error is always a *luatable.DecodeError and means the list is
// unavailable; it never affects the other fields of the session.
func DecodeParticipants(text string) ([]Participant, error) {
	if strings.TrimSpace(text) == "" {
		return []Participant{}, nil
	}

	tree, err := luatable.Parse(text)
	if err != nil {
		return nil, err
	}

	var entries []any
	switch node := tree.(type) {
	case []any:
		entries = node
	case map[string]any:
		if len(node) == 0 {
			return []Participant{}, nil
		}
		if _, ok := node["name"]; ok {
			// A single player table.
			entries = []any{node}
		} else {
			keys := make([]string, 0, len(node))
			for k := range node {
				keys = append(keys, k)
			}
			slices.SortFunc(keys, func(a, b string) int {
				i, errA := strconv.Atoi(a)
				j, errB := strconv.Atoi(b)
				if errA == nil && errB == nil {
					return i - j
				}
				return strings.Compare(a, b)
			})
			for _, k := range keys {
				entries = append(entries, node[k])
			}
		}
	default:
		return nil, shapeError(&ValidationError{Field: "players", Reason: fmt.Sprintf("unexpected %T", tree)})
	}

	players := make([]Participant, 0, len(entries))
	for i, entry := range entries {
		fields, ok := entry.(map[string]any)
		if !ok {
			return nil, shapeError(&ValidationError{Field: fmt.Sprintf("players[%d]", i), Reason: "not a table"})
		}
		p, err := participantFrom(fields)
		if err != nil {
			return nil, shapeError(fmt.Errorf("players[%d]: %w", i, err))
		}
		players = append(players, p)
	}
	return players, nil
}

func shapeError(err error) error {
	return &luatable.DecodeError{Msg: "unexpected player list", Err: err}
}

func participantFrom(fields map[string]any) (Participant, error) {
	var p Participant

	name, ok := fields["name"].(string)
	if !ok {
		return p, &ValidationError{Field: "name", Reason: "required string"}
	}
	p.Name = name

	for _, key := range []string{"userid", "kuid"} {
		if v, ok := fields[key]; ok && v != nil {
			s, ok := v.(string)
			if !ok {
				return p, &ValidationError{Field: key, Reason: "expected string"}
			}
			p.UserID = s
			break
		}
	}

	if v, ok := fields["prefab"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return p, &ValidationError{Field: "prefab", Reason: "expected string"}
		}
		p.Prefab = Role(s)
	}

	for _, key := range []string{"netid", "id"} {
		v, ok := fields[key]
		if !ok || v == nil {
			continue
		}
		var raw string
		switch n := v.(type) {
		case json.Number:
			raw = n.String()
		case string:
			raw = n
		default:
			return p, &ValidationError{Field: key, Reason: "expected number"}
		}
		if raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return p, &ValidationError{Field: key, Reason: "expected integer"}
			}
			p.NetID = &id
		}
		break
	}

	if v, ok := fields["ip"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return p, &ValidationError{Field: "ip", Reason: "expected string"}
		}
		addr, err := parseIPv4(s)
		if err != nil {
			return p, &ValidationError{Field: "ip", Reason: err.Error()}
		}
		p.IP = addr
	}

	return p, nil
}

func parseIPv4(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("invalid IPv4 address %q", s)
	}
	if !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("not an IPv4 address %q", s)
	}
	return addr, nil
}

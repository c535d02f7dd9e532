// Package cluster reads and writes the cluster.ini and server.ini files of a
// dedicated server cluster.
package cluster

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"

	"github.com/go-ini/ini"
)

const (
	ClusterFile = "cluster.ini"
	ServerFile  = "server.ini"

	DefaultMasterPort         = 10888
	DefaultAuthenticationPort = 8766
	DefaultMasterServerPort   = 27016
	DefaultServerPort         = 10999
)

type ClusterMisc struct {
	MaxSnapshots   int  `ini:"max_snapshots"`
	ConsoleEnabled bool `ini:"console_enabled"`
}

type ClusterShard struct {
	ShardEnabled bool   `ini:"shard_enabled"`
	BindIP       string `ini:"bind_ip"`
	MasterIP     string `ini:"master_ip"`
	MasterPort   int    `ini:"master_port"`
	ClusterKey   string `ini:"cluster_key"`
}

type ClusterSteam struct {
	SteamGroupOnly   bool  `ini:"steam_group_only"`
	SteamGroupID     int64 `ini:"steam_group_id"`
	SteamGroupAdmins bool  `ini:"steam_group_admins"`
}

type ClusterNetwork struct {
	ClusterName        string `ini:"cluster_name"`
	ClusterPassword    string `ini:"cluster_password"`
	ClusterDescription string `ini:"cluster_description"`
	TickRate           int    `ini:"tick_rate"`
	OfflineCluster     bool   `ini:"offline_cluster"`
	LANOnlyCluster     bool   `ini:"lan_only_cluster"`
	AutosaverEnabled   bool   `ini:"autosaver_enabled"`
	WhitelistSlots     int    `ini:"whitelist_slots"`
	ClusterLanguage    string `ini:"cluster_language"`
}

type ClusterGameplay struct {
	MaxPlayers     int  `ini:"max_players"`
	PVP            bool `ini:"pvp"`
	PauseWhenEmpty bool `ini:"pause_when_empty"`
	VoteEnabled    bool `ini:"vote_enabled"`
}

// ClusterConfig is the content of cluster.ini.
type ClusterConfig struct {
	Misc     ClusterMisc     `ini:"MISC"`
	Shard    ClusterShard    `ini:"SHARD"`
	Steam    ClusterSteam    `ini:"STEAM"`
	Network  ClusterNetwork  `ini:"NETWORK"`
	Gameplay ClusterGameplay `ini:"GAMEPLAY"`
}

func DefaultClusterConfig() *ClusterConfig {
	return &ClusterConfig{
		Misc: ClusterMisc{
			MaxSnapshots:   6,
			ConsoleEnabled: true,
		},
		Shard: ClusterShard{
			BindIP:     "127.0.0.1",
			MasterIP:   "127.0.0.1",
			MasterPort: DefaultMasterPort,
			ClusterKey: "defaultPass",
		},
		Network: ClusterNetwork{
			TickRate:         15,
			AutosaverEnabled: true,
			ClusterLanguage:  "en",
		},
		Gameplay: ClusterGameplay{
			MaxPlayers:     16,
			PauseWhenEmpty: true,
			VoteEnabled:    true,
		},
	}
}

func (c *ClusterConfig) Validate() error {
	for name, ip := range map[string]string{"bind_ip": c.Shard.BindIP, "master_ip": c.Shard.MasterIP} {
		addr, err := netip.ParseAddr(ip)
		if err != nil || !addr.Is4() {
			return fmt.Errorf("%s: invalid IPv4 address %q", name, ip)
		}
	}
	if c.Shard.MasterPort < 1 || c.Shard.MasterPort > 65535 {
		return fmt.Errorf("master_port: out of range: %d", c.Shard.MasterPort)
	}
	return nil
}

type ServerShard struct {
	IsMaster bool   `ini:"is_master"`
	Name     string `ini:"name"`
	ID       int    `ini:"id"`
}

type ServerSteam struct {
	AuthenticationPort int `ini:"authentication_port"`
	MasterServerPort   int `ini:"master_server_port"`
}

type ServerNetwork struct {
	ServerPort int `ini:"server_port"`
}

type ServerAccount struct {
	EncodeUserPath bool `ini:"encode_user_path"`
}

// ServerConfig is the content of the server.ini of one shard.
type ServerConfig struct {
	Shard   ServerShard   `ini:"SHARD"`
	Steam   ServerSteam   `ini:"STEAM"`
	Network ServerNetwork `ini:"NETWORK"`
	Account ServerAccount `ini:"ACCOUNT"`
}

func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Shard: ServerShard{
			IsMaster: true,
			Name:     "[SHDMASTER]",
			ID:       1,
		},
		Steam: ServerSteam{
			AuthenticationPort: DefaultAuthenticationPort,
			MasterServerPort:   DefaultMasterServerPort,
		},
		Network: ServerNetwork{
			ServerPort: DefaultServerPort,
		},
	}
}

// LoadClusterConfig reads cluster.ini. Missing keys keep their defaults.
func LoadClusterConfig(path string) (*ClusterConfig, error) {
	cfg := DefaultClusterConfig()
	if err := load(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}

// LoadServerConfig reads server.ini. Missing keys keep their defaults.
func LoadServerConfig(path string) (*ServerConfig, error) {
	cfg := DefaultServerConfig()
	if err := load(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ClusterConfig) Save(path string) error { return save(path, c) }

func (c *ServerConfig) Save(path string) error { return save(path, c) }

func load(path string, v any) error {
	f, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, path)
	if err != nil {
		return fmt.Errorf("could not read %s: %w", path, err)
	}
	if err := f.StrictMapTo(v); err != nil {
		return fmt.Errorf("could not decode %s: %w", path, err)
	}
	return nil
}

// save writes v with upper case section names. Booleans are always written as
// "true" or "false", which is the only spelling the game accepts.
func save(path string, v any) error {
	f := ini.Empty()
	if err := f.ReflectFrom(v); err != nil {
		return fmt.Errorf("could not encode %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return f.SaveTo(path)
}

package cluster

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dimspell/lobbywatch/internal/app/logger/logging"
	"github.com/dimspell/lobbywatch/internal/model"
)

// PermissionFiles are created empty next to cluster.ini when missing.
var PermissionFiles = []string{"adminlist.txt", "whitelist.txt", "blocklist.txt"}

// Shard is one server process of a cluster, stored in its own directory.
type Shard struct {
	Name   string
	Dir    string
	Config *ServerConfig
}

// Cluster is a directory holding cluster.ini and one directory per shard.
type Cluster struct {
	Dir    string
	Config *ClusterConfig
	Shards []*Shard
}

// New returns a cluster with default settings and one master shard named
// "Master".
func New(dir string) *Cluster {
	return &Cluster{
		Dir:    dir,
		Config: DefaultClusterConfig(),
		Shards: []*Shard{{
			Name:   "Master",
			Dir:    filepath.Join(dir, "Master"),
			Config: DefaultServerConfig(),
		}},
	}
}

// Load reads cluster.ini and the server.ini of every shard directory.
func Load(dir string) (*Cluster, error) {
	cfg, err := LoadClusterConfig(filepath.Join(dir, ClusterFile))
	if err != nil {
		return nil, err
	}
	c := &Cluster{Dir: dir, Config: cfg}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		shardDir := filepath.Join(dir, entry.Name())
		path := filepath.Join(shardDir, ServerFile)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			slog.Debug("Skipped a directory without server.ini", "dir", shardDir)
			continue
		}
		serverCfg, err := LoadServerConfig(path)
		if err != nil {
			return nil, err
		}
		c.Shards = append(c.Shards, &Shard{Name: entry.Name(), Dir: shardDir, Config: serverCfg})
	}
	return c, nil
}

// Save writes cluster.ini and the server.ini of every shard.
func (c *Cluster) Save() error {
	if err := c.Config.Save(filepath.Join(c.Dir, ClusterFile)); err != nil {
		return err
	}
	for _, shard := range c.Shards {
		if err := shard.Config.Save(filepath.Join(shard.Dir, ServerFile)); err != nil {
			return fmt.Errorf("shard %s: %w", shard.Name, err)
		}
	}
	return nil
}

// Master returns the master shard, or nil.
func (c *Cluster) Master() *Shard {
	for _, shard := range c.Shards {
		if shard.Config.Shard.IsMaster {
			return shard
		}
	}
	return nil
}

// Lobby finds the listing of the cluster among lobbies. A listing matches when
// it carries the cluster name and the server port of the master shard.
func (c *Cluster) Lobby(lobbies []model.LobbySummary) (model.LobbySummary, bool) {
	master := c.Master()
	if master == nil {
		return model.LobbySummary{}, false
	}
	for _, lobby := range lobbies {
		if lobby.Name == c.Config.Network.ClusterName && lobby.Port == master.Config.Network.ServerPort {
			return lobby, true
		}
	}
	return model.LobbySummary{}, false
}

// AutoConfig assigns ports so that several clusters of one master and its
// secondaries can run on the same host. Cluster number n moves every port by
// n, the master upwards and the secondaries downwards.
func (c *Cluster) AutoConfig(offset int) {
	c.Config.Shard.MasterPort = DefaultMasterPort - offset

	shards := slices.Clone(c.Shards)
	slices.SortStableFunc(shards, func(a, b *Shard) int {
		switch {
		case a.Config.Shard.IsMaster == b.Config.Shard.IsMaster:
			return 0
		case a.Config.Shard.IsMaster:
			return -1
		}
		return 1
	})

	for i, shard := range shards {
		abs := offset + i
		delta := -abs
		if shard.Config.Shard.IsMaster {
			delta = abs
		}

		cfg := shard.Config
		cfg.Shard.ID = abs
		base, _, _ := strings.Cut(cfg.Shard.Name, "-")
		cfg.Shard.Name = fmt.Sprintf("%s-%d", base, abs)
		cfg.Steam.AuthenticationPort = DefaultAuthenticationPort + delta
		cfg.Steam.MasterServerPort = DefaultMasterServerPort + delta
		cfg.Network.ServerPort = DefaultServerPort + 1 + delta

		slog.Debug("Configured shard",
			"shard", shard.Name,
			"id", cfg.Shard.ID,
			"port", cfg.Network.ServerPort)
	}
}

// EnsureFiles creates the permission files that do not exist yet.
func (c *Cluster) EnsureFiles() error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return err
	}
	for _, name := range PermissionFiles {
		f, err := os.OpenFile(filepath.Join(c.Dir, name), os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			slog.Error("Could not create a permission file", "file", name, logging.Error(err))
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

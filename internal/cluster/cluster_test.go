package cluster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dimspell/lobbywatch/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCluster_SaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Cluster_1")

	c := New(dir)
	caves := DefaultServerConfig()
	caves.Shard.IsMaster = false
	caves.Shard.Name = "Caves"
	c.Shards = append(c.Shards, &Shard{Name: "Caves", Dir: filepath.Join(dir, "Caves"), Config: caves})
	require.NoError(t, c.Save())
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "save"), 0o755))

	loaded, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, loaded.Shards, 2)
	assert.Equal(t, c.Config, loaded.Config)

	master := loaded.Master()
	require.NotNil(t, master)
	assert.Equal(t, "Master", master.Name)
}

func TestCluster_AutoConfig(t *testing.T) {
	c := New(t.TempDir())
	caves := DefaultServerConfig()
	caves.Shard.IsMaster = false
	caves.Shard.Name = "Caves"
	// The secondary is listed first on purpose; the master is numbered first.
	c.Shards = append([]*Shard{{Name: "Caves", Config: caves}}, c.Shards...)

	c.AutoConfig(1)

	assert.Equal(t, 10887, c.Config.Shard.MasterPort)

	master := c.Master().Config
	assert.Equal(t, 1, master.Shard.ID)
	assert.Equal(t, "[SHDMASTER]-1", master.Shard.Name)
	assert.Equal(t, 8767, master.Steam.AuthenticationPort)
	assert.Equal(t, 27017, master.Steam.MasterServerPort)
	assert.Equal(t, 11001, master.Network.ServerPort)

	assert.Equal(t, 2, caves.Shard.ID)
	assert.Equal(t, "Caves-2", caves.Shard.Name)
	assert.Equal(t, 8764, caves.Steam.AuthenticationPort)
	assert.Equal(t, 27014, caves.Steam.MasterServerPort)
	assert.Equal(t, 10998, caves.Network.ServerPort)

	c.AutoConfig(1)
	assert.Equal(t, "Caves-2", caves.Shard.Name)
}

func TestCluster_EnsureFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "adminlist.txt"), []byte("KU_admin\n"), 0o644))

	require.NoError(t, New(dir).EnsureFiles())

	for _, name := range PermissionFiles {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	raw, err := os.ReadFile(filepath.Join(dir, "adminlist.txt"))
	require.NoError(t, err)
	assert.Equal(t, "KU_admin\n", string(raw))
}

func TestCluster_Lobby(t *testing.T) {
	c := New(t.TempDir())
	c.Config.Network.ClusterName = "Test World"
	c.AutoConfig(2)

	lobbies := []model.LobbySummary{
		{RowID: "other-name", Name: "Another World", Port: 11002},
		{RowID: "other-port", Name: "Test World", Port: 10999},
		{RowID: "match", Name: "Test World", Port: 11002},
	}

	lobby, ok := c.Lobby(lobbies)
	require.True(t, ok)
	assert.Equal(t, "match", lobby.RowID)

	_, ok = c.Lobby(lobbies[:2])
	assert.False(t, ok)

	c.Shards = nil
	_, ok = c.Lobby(lobbies)
	assert.False(t, ok)
}

package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/dimspell/lobbywatch/internal/cluster"
	"github.com/urfave/cli/v3"
)

func ClusterCommand() *cli.Command {
	dirFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:  "dir",
			Value: defaultClusterDir,
			Usage: "Cluster directory holding cluster.ini",
		}
	}

	initCmd := &cli.Command{
		Name:  "init",
		Usage: "Write a cluster.ini and the server.ini of its shards",
		Flags: []cli.Flag{
			dirFlag(),
			&cli.StringFlag{
				Name:  "name",
				Usage: "Cluster name shown in the lobby",
			},
			&cli.StringFlag{
				Name:  "password",
				Usage: "Cluster password",
			},
			&cli.IntFlag{
				Name:  "max-players",
				Value: cluster.DefaultClusterConfig().Gameplay.MaxPlayers,
				Usage: "Maximum number of players",
			},
			&cli.BoolFlag{
				Name:  "caves",
				Usage: "Add a secondary shard for the caves",
			},
			&cli.IntFlag{
				Name:  "offset",
				Value: 1,
				Usage: "Cluster number on this host, used to assign ports",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing cluster.ini",
			},
		},
	}
	initCmd.Action = func(ctx context.Context, c *cli.Command) error {
		dir := c.String("dir")
		path := filepath.Join(dir, cluster.ClusterFile)
		if _, err := os.Stat(path); err == nil && !c.Bool("force") {
			return errors.New(path + " already exists, use --force to overwrite it")
		}

		cl := cluster.New(dir)
		cl.Config.Network.ClusterName = c.String("name")
		cl.Config.Network.ClusterPassword = c.String("password")
		cl.Config.Gameplay.MaxPlayers = c.Int("max-players")
		if c.Bool("caves") {
			caves := cluster.DefaultServerConfig()
			caves.Shard.IsMaster = false
			caves.Shard.Name = "Caves"
			cl.Config.Shard.ShardEnabled = true
			cl.Shards = append(cl.Shards, &cluster.Shard{
				Name:   "Caves",
				Dir:    filepath.Join(dir, "Caves"),
				Config: caves,
			})
		}
		cl.AutoConfig(c.Int("offset"))

		if err := cl.Config.Validate(); err != nil {
			return err
		}
		if err := cl.Save(); err != nil {
			return err
		}
		if err := cl.EnsureFiles(); err != nil {
			return err
		}
		slog.Info("Wrote the cluster configuration", "dir", dir, "shards", len(cl.Shards))
		return nil
	}

	showCmd := &cli.Command{
		Name:  "show",
		Usage: "Print the configuration of a cluster",
		Flags: slices.Concat([]cli.Flag{dirFlag()}, outputFlags()),
	}
	showCmd.Action = func(ctx context.Context, c *cli.Command) error {
		cl, err := cluster.Load(c.String("dir"))
		if err != nil {
			return err
		}
		return writeResult(c, cl)
	}

	lobbyCmd := &cli.Command{
		Name:        "lobby",
		Usage:       "Print the lobby listing of a running cluster",
		Description: "Lists the lobbies and prints the one matching the cluster name and the server port of the master shard",
		Flags:       slices.Concat([]cli.Flag{dirFlag()}, clientFlags(), queryFlags(), outputFlags()),
	}
	lobbyCmd.Action = func(ctx context.Context, c *cli.Command) error {
		cl, err := cluster.Load(c.String("dir"))
		if err != nil {
			return err
		}
		q, err := selectQuery(c)
		if err != nil {
			return err
		}

		client, err := newClient(c, nil)
		if err != nil {
			return err
		}
		defer client.Close()

		lobbies, err := lobbyKeys(ctx, client, q)
		if err != nil {
			return err
		}
		lobby, ok := cl.Lobby(lobbies.Lobbies)
		if !ok {
			return fmt.Errorf("cluster %q is not listed in the lobby", cl.Config.Network.ClusterName)
		}
		return writeResult(c, lobby)
	}

	return &cli.Command{
		Name:     "cluster",
		Usage:    "Manage the configuration files of a dedicated server cluster",
		Commands: []*cli.Command{initCmd, showCmd, lobbyCmd},
	}
}

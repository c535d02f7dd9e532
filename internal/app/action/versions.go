package action

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dimspell/lobbywatch/internal/model"
	"github.com/urfave/cli/v3"
)

func VersionsCommand() *cli.Command {
	cmd := &cli.Command{
		Name:  "versions",
		Usage: "List the published game updates",
		Flags: slices.Concat(clientFlags(), outputFlags()),
	}

	cmd.Action = func(ctx context.Context, c *cli.Command) error {
		client, err := newClient(c, nil)
		if err != nil {
			return err
		}
		defer client.Close()

		versions, err := client.Versions(ctx)
		if err != nil {
			return err
		}
		return writeResult(c, versions)
	}

	return cmd
}

func BuildCommand() *cli.Command {
	cmd := &cli.Command{
		Name:  "build",
		Usage: "Print the latest build number",
		Flags: slices.Concat(clientFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:  "type",
				Value: "release",
				Usage: "Build type (release, test)",
			},
		}),
	}

	cmd.Action = func(ctx context.Context, c *cli.Command) error {
		versionType := strings.ToLower(c.String("type"))
		known := func(t model.VersionType) bool { return strings.EqualFold(string(t), versionType) }
		if !slices.ContainsFunc([]model.VersionType{model.VersionRelease, model.VersionTest}, known) {
			return fmt.Errorf("unknown build type: %q", versionType)
		}

		client, err := newClient(c, nil)
		if err != nil {
			return err
		}
		defer client.Close()

		build, err := client.LatestBuild(ctx, versionType)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(output(c), build)
		return err
	}

	return cmd
}

package action

import (
	"context"
	"slices"

	"github.com/urfave/cli/v3"
)

func RegionsCommand() *cli.Command {
	cmd := &cli.Command{
		Name:  "regions",
		Usage: "List the regions advertised by the lobby directory",
		Flags: slices.Concat(clientFlags(), outputFlags()),
	}

	cmd.Action = func(ctx context.Context, c *cli.Command) error {
		client, err := newClient(c, nil)
		if err != nil {
			return err
		}
		defer client.Close()

		regions, err := client.Regions(ctx)
		if err != nil {
			return err
		}
		return writeResult(c, regions)
	}

	return cmd
}

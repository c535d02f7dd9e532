package action

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dimspell/lobbywatch/internal/klei"
	"github.com/dimspell/lobbywatch/internal/model"
	"github.com/urfave/cli/v3"
)

func RoomsCommand() *cli.Command {
	cmd := &cli.Command{
		Name:  "rooms",
		Usage: "Read the detail records of sessions",
		Description: "Reads the given sessions (--row id@region). Without rows every session " +
			"of the selected regions and platforms is discovered first",
		Flags: slices.Concat(clientFlags(), queryFlags(), outputFlags(), []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "row",
				Usage: "Session to read as row-id@region, may be repeated",
			},
		}),
	}

	cmd.Action = func(ctx context.Context, c *cli.Command) error {
		keys, err := parseRowKeys(c.StringSlice("row"))
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

		var discovery *klei.Report
		if keys == nil && (len(q.Regions) > 0 || len(q.Platforms) > 0) {
			lobbies, err := lobbyKeys(ctx, client, q)
			if err != nil {
				return err
			}
			keys = model.KeysOf(lobbies.Lobbies)
			discovery = &lobbies.Report
		}

		result, err := client.Rooms(ctx, keys)
		if err != nil {
			return err
		}
		if discovery != nil {
			result.Discovery = discovery
		}
		if result.AllFailed() {
			return errAllFailed
		}
		return writeResult(c, result)
	}

	return cmd
}

// parseRowKeys reads "row-id@region" values. It returns nil for no values.
func parseRowKeys(values []string) ([]model.RowKey, error) {
	if len(values) == 0 {
		return nil, nil
	}
	keys := make([]model.RowKey, 0, len(values))
	for _, v := range values {
		rowID, region, ok := strings.Cut(v, "@")
		if !ok || rowID == "" {
			return nil, fmt.Errorf("invalid row %q, expected row-id@region", v)
		}
		r, err := model.ParseRegion(region)
		if err != nil {
			return nil, err
		}
		keys = append(keys, model.RowKey{RowID: rowID, Region: r})
	}
	return keys, nil
}

package action

import (
	"context"
	"errors"
	"slices"

	"github.com/dimspell/lobbywatch/internal/klei"
	"github.com/urfave/cli/v3"
)

var errAllFailed = errors.New("every request failed, no data could be fetched")

func LobbiesCommand() *cli.Command {
	cmd := &cli.Command{
		Name:        "lobbies",
		Usage:       "List the sessions of the lobby directory",
		Description: "Fetches the lobby listing of every selected region and platform and prints the valid records",
		Flags:       slices.Concat(clientFlags(), queryFlags(), outputFlags()),
	}

	cmd.Action = func(ctx context.Context, c *cli.Command) error {
		q, err := selectQuery(c)
		if err != nil {
			return err
		}

		client, err := newClient(c, nil)
		if err != nil {
			return err
		}
		defer client.Close()

		result, err := client.Lobbies(ctx, q)
		if err != nil {
			return err
		}
		if result.Report.AllFailed() {
			return errAllFailed
		}
		return writeResult(c, result)
	}

	return cmd
}

// lobbyKeys lists the sessions of q so that their rooms can be read.
func lobbyKeys(ctx context.Context, client *klei.Client, q klei.LobbyQuery) (*klei.LobbyResult, error) {
	result, err := client.Lobbies(ctx, q)
	if err != nil {
		return nil, err
	}
	if result.Report.AllFailed() {
		return nil, errAllFailed
	}
	return result, nil
}

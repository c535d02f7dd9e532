package klei

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dimspell/lobbywatch/internal/app/logger/logging"
	"github.com/dimspell/lobbywatch/internal/model"
	"github.com/google/uuid"
)

type RoomResult struct {
	Rooms  []model.SessionDetail `json:"rooms"`
	Report Report                `json:"report"`
	// Discovery is the report of the lobby listing that produced the keys.
	// It is nil when the keys were given by the caller.
	Discovery *Report `json:"discovery,omitempty"`
}

// AllFailed reports whether no room could be read because every unit of the
// detail stage, or of the discovery that preceded it, failed.
func (r *RoomResult) AllFailed() bool {
	if r.Discovery != nil && r.Discovery.AllFailed() {
		return true
	}
	return r.Report.AllFailed()
}

type roomQuery struct {
	GameID string  `json:"__gameId"`
	Token  *string `json:"__token"`
	Query  struct {
		RowID string `json:"__rowId"`
	} `json:"query"`
}

// Rooms reads the detail record of every key. With nil keys it lists all
// lobbies first and reads every discovered session. Keys that are not found
// or fail validation are absent from the result and only counted in the
// report.
func (c *Client) Rooms(ctx context.Context, keys []model.RowKey) (*RoomResult, error) {
	var discovery *Report
	if keys == nil {
		lobbies, err := c.Lobbies(ctx, LobbyQuery{})
		if err != nil {
			return nil, err
		}
		keys = model.KeysOf(lobbies.Lobbies)
		discovery = &lobbies.Report
	}

	stage := c.Config.Room
	logger := slog.With(logging.RunID(uuid.NewString()), logging.Stage(string(StageRoom)))
	logger.Debug("Reading rooms", "keys", len(keys), "concurrency", stage.Concurrency)

	gate := NewGate(stage.Concurrency)
	col := newCollector[model.SessionDetail](c.Config.Events)
	group, groupCtx := newGroup(ctx, stage.Retry.Mode)

	for _, key := range keys {
		group.Go(func() error {
			return c.fetchRoom(groupCtx, logger, gate, stage.Retry, key, col)
		})
	}

	err := group.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, &BatchError{Stage: StageRoom, Err: err}
	}

	rooms, report := col.result()
	logger.Info("Read rooms",
		"rooms", len(rooms),
		"units", report.Units,
		"notFound", report.Count(OutcomeNotFound),
		"failed", report.Count(OutcomeTransportFailed),
		"rejected", report.Rejected)
	return &RoomResult{Rooms: rooms, Report: report, Discovery: discovery}, nil
}

func (c *Client) fetchRoom(
	ctx context.Context,
	logger *slog.Logger,
	gate *Gate,
	policy RetryPolicy,
	key model.RowKey,
	col *collector[model.SessionDetail],
) error {
	ev := UnitEvent{Stage: StageRoom, Region: key.Region, RowID: key.RowID}
	if !key.Region.Valid() {
		ev.Outcome = OutcomeValidationFailed
		ev.Rejected = 1
		ev.Err = &model.ValidationError{RowID: key.RowID, Field: "region", Reason: fmt.Sprintf("unknown region %q", key.Region)}
		logger.Debug("Rejected room key", logging.RowID(key.RowID), logging.Error(ev.Err))
		col.record(ev)
		return nil
	}

	if err := gate.Acquire(ctx); err != nil {
		return err
	}
	defer gate.Release()

	started := time.Now()
	url := c.Config.Endpoints.room(key.Region)

	query := roomQuery{GameID: c.Config.GameID}
	if c.Config.Token != "" {
		query.Token = &c.Config.Token
	}
	query.Query.RowID = key.RowID

	var env envelope
	attempts, err := policy.Do(ctx, key.String(), func() error {
		env = envelope{}
		return c.postJSON(ctx, url, query, &env)
	})
	ev.Attempts = attempts
	ev.Duration = time.Since(started)

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ev.Outcome = OutcomeTransportFailed
		ev.Err = err
		col.record(ev)
		if policy.Mode == Strict {
			return fmt.Errorf("%s: %w", key, err)
		}
		logger.Debug("Could not fetch the room",
			logging.RowID(key.RowID),
			logging.Region(key.Region),
			"attempts", attempts,
			logging.Error(err))
		return nil
	}

	if len(env.GET) == 0 {
		ev.Outcome = OutcomeNotFound
		col.record(ev)
		return nil
	}

	room, err := model.DecodeSessionDetail(env.GET[0], key.Region)
	if err != nil {
		ev.Outcome = OutcomeValidationFailed
		ev.Rejected = 1
		ev.Err = err
		logger.Debug("Rejected room record",
			logging.RowID(key.RowID),
			logging.Region(key.Region),
			logging.Error(err))
		col.record(ev)
		return nil
	}
	if room.PlayersErr != nil {
		logger.Debug("Player list unavailable",
			logging.RowID(key.RowID),
			logging.Region(key.Region),
			logging.Error(room.PlayersErr))
	}

	ev.Outcome = OutcomeOK
	ev.Accepted = 1
	col.record(ev, room)
	return nil
}

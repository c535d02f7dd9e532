package klei

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dimspell/lobbywatch/internal/app/logger/logging"
	"github.com/dimspell/lobbywatch/internal/model"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// LobbyQuery restricts discovery. Empty fields mean "all".
type LobbyQuery struct {
	Regions   []model.Region
	Platforms []model.Platform
}

type LobbyResult struct {
	Lobbies []model.LobbySummary `json:"lobbies"`
	Report  Report               `json:"report"`
}

// Lobbies lists the sessions of every (region, platform) pair of the query.
// Pairs are fetched concurrently, bounded by the lobby stage gate. Records
// failing validation are dropped, the rest is returned in no particular order.
func (c *Client) Lobbies(ctx context.Context, q LobbyQuery) (*LobbyResult, error) {
	regions := q.Regions
	if len(regions) == 0 {
		regions = model.AllRegions
	}
	platforms := model.ExpandPlatforms(q.Platforms)

	stage := c.Config.Lobby
	logger := slog.With(logging.RunID(uuid.NewString()), logging.Stage(string(StageLobby)))
	logger.Debug("Listing lobbies",
		"regions", len(regions),
		"platforms", len(platforms),
		"concurrency", stage.Concurrency)

	gate := NewGate(stage.Concurrency)
	col := newCollector[model.LobbySummary](c.Config.Events)
	group, groupCtx := newGroup(ctx, stage.Retry.Mode)

	for _, region := range regions {
		for _, platform := range platforms {
			group.Go(func() error {
				return c.fetchLobbies(groupCtx, logger, gate, stage.Retry, region, platform, col)
			})
		}
	}

	err := group.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, &BatchError{Stage: StageLobby, Err: err}
	}

	lobbies, report := col.result()
	logger.Info("Listed lobbies",
		"lobbies", len(lobbies),
		"units", report.Units,
		"failed", report.Count(OutcomeTransportFailed),
		"rejected", report.Rejected)
	return &LobbyResult{Lobbies: lobbies, Report: report}, nil
}

func (c *Client) fetchLobbies(
	ctx context.Context,
	logger *slog.Logger,
	gate *Gate,
	policy RetryPolicy,
	region model.Region,
	platform model.Platform,
	col *collector[model.LobbySummary],
) error {
	if err := gate.Acquire(ctx); err != nil {
		return err
	}
	defer gate.Release()

	started := time.Now()
	url := c.Config.Endpoints.lobby(region, platform)
	ev := UnitEvent{Stage: StageLobby, Region: region, Platform: platform}

	var env envelope
	attempts, err := policy.Do(ctx, url, func() error {
		env = envelope{}
		return c.getJSON(ctx, url, &env)
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
			return fmt.Errorf("%s %s: %w", region, platform, err)
		}
		logger.Warn("Could not fetch the lobby list",
			logging.Region(region),
			logging.Platform(platform),
			"attempts", attempts,
			logging.Error(err))
		return nil
	}

	lobbies := make([]model.LobbySummary, 0, len(env.GET))
	for _, raw := range env.GET {
		lobby, err := model.DecodeLobbySummary(raw, region)
		if err != nil {
			ev.Rejected++
			logger.Debug("Rejected lobby record",
				logging.Region(region),
				logging.Platform(platform),
				logging.Error(err))
			continue
		}
		lobbies = append(lobbies, lobby)
	}

	ev.Outcome = OutcomeOK
	ev.Accepted = len(lobbies)
	col.record(ev, lobbies...)
	return nil
}

// newGroup returns a group whose context is cancelled on the first error in
// strict mode. In lenient mode units never fail, so siblings stay isolated.
func newGroup(ctx context.Context, mode FailureMode) (*errgroup.Group, context.Context) {
	if mode == Strict {
		return errgroup.WithContext(ctx)
	}
	return &errgroup.Group{}, ctx
}

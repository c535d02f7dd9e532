package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dimspell/lobbywatch/internal/app/logger/logging"
	"github.com/dimspell/lobbywatch/internal/klei"
	"github.com/dimspell/lobbywatch/internal/model"
	"github.com/go-chi/chi/v5"
)

// ListLobbies handles GET /api/lobbies?region=&platform=. Both parameters may
// be repeated; omitted ones mean all.
func (c *Console) ListLobbies() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := lobbyQueryFrom(r)
		if err != nil {
			renderError(w, r, http.StatusBadRequest, err)
			return
		}

		result, err := c.Client.Lobbies(r.Context(), q)
		if err != nil {
			c.renderPipelineError(w, r, err)
			return
		}
		render(w, r, result)
	}
}

// ListRooms handles GET /api/rooms?region=&row=. Without rows every session
// of the selected regions is read.
func (c *Console) ListRooms() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := lobbyQueryFrom(r)
		if err != nil {
			renderError(w, r, http.StatusBadRequest, err)
			return
		}

		rows := r.URL.Query()["row"]
		var (
			keys      []model.RowKey
			discovery *klei.Report
		)
		switch {
		case len(rows) > 0 && len(q.Regions) != 1:
			renderError(w, r, http.StatusBadRequest, errors.New("rows require exactly one region"))
			return
		case len(rows) > 0:
			keys = make([]model.RowKey, 0, len(rows))
			for _, row := range rows {
				keys = append(keys, model.RowKey{RowID: row, Region: q.Regions[0]})
			}
		default:
			lobbies, err := c.Client.Lobbies(r.Context(), q)
			if err != nil {
				c.renderPipelineError(w, r, err)
				return
			}
			keys = model.KeysOf(lobbies.Lobbies)
			discovery = &lobbies.Report
		}

		result, err := c.Client.Rooms(r.Context(), keys)
		if err != nil {
			c.renderPipelineError(w, r, err)
			return
		}
		if discovery != nil {
			result.Discovery = discovery
		}
		render(w, r, result)
	}
}

func (c *Console) ListRegions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		regions, err := c.Client.Regions(r.Context())
		if err != nil {
			c.renderPipelineError(w, r, err)
			return
		}
		render(w, r, map[string][]string{"regions": regions})
	}
}

func (c *Console) ListVersions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		versions, err := c.Client.Versions(r.Context())
		if err != nil {
			c.renderPipelineError(w, r, err)
			return
		}
		render(w, r, map[string][]model.Version{"versions": versions})
	}
}

func (c *Console) LatestBuild() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		versionType := chi.URLParam(r, "type")
		build, err := c.Client.LatestBuild(r.Context(), versionType)
		if err != nil {
			c.renderPipelineError(w, r, err)
			return
		}
		render(w, r, map[string]any{"type": versionType, "build": build})
	}
}

func (c *Console) renderPipelineError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		status = http.StatusGatewayTimeout
	}
	slog.Warn("Could not serve the request", "path", r.URL.Path, logging.Error(err))
	renderError(w, r, status, err)
}

func lobbyQueryFrom(r *http.Request) (klei.LobbyQuery, error) {
	params := r.URL.Query()

	regions, err := model.ParseRegions(params["region"])
	if err != nil {
		return klei.LobbyQuery{}, err
	}

	var platforms []model.Platform
	for _, name := range params["platform"] {
		p, err := model.ParsePlatform(name)
		if err != nil {
			return klei.LobbyQuery{}, fmt.Errorf("platform: %w", err)
		}
		platforms = append(platforms, p)
	}
	return klei.LobbyQuery{Regions: regions, Platforms: platforms}, nil
}

package klei

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dimspell/lobbywatch/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowIDs(lobbies []model.LobbySummary) []string {
	ids := make([]string, len(lobbies))
	for i, l := range lobbies {
		ids[i] = l.RowID
	}
	sort.Strings(ids)
	return ids
}

func TestClient_Lobbies_FansOutOverEveryPair(t *testing.T) {
	defer verifyNoLeaks(t)

	const k = 4
	rt := newMockTransport(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(req, http.StatusOK, `{"GET":[]}`), nil
	})
	rt.delay = 10 * time.Millisecond

	c := newTestClient(t, rt, WithLobbyStage(StageConfig{Concurrency: k, Retry: DefaultRetryPolicy()}))

	result, err := c.Lobbies(context.Background(), LobbyQuery{})
	require.NoError(t, err)

	n, m := len(model.AllRegions), len(model.AllPlatforms)
	assert.Equal(t, n*m, rt.Distinct())
	assert.Equal(t, n*m, rt.TotalCalls())
	assert.Equal(t, n*m, result.Report.Units)
	assert.LessOrEqual(t, int(rt.maxInFlight.Load()), k)
	assert.Greater(t, int(rt.maxInFlight.Load()), 1)
	assert.Empty(t, result.Lobbies)
	assert.NotNil(t, result.Lobbies)
}

func TestClient_Lobbies_ExpandsCombinedPlatforms(t *testing.T) {
	rt := newMockTransport(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(req, http.StatusOK, `{"GET":[]}`), nil
	})
	c := newTestClient(t, rt)

	_, err := c.Lobbies(context.Background(), LobbyQuery{
		Regions:   []model.Region{model.RegionEUCentral},
		Platforms: []model.Platform{model.PlatformSteam | model.PlatformSwitch},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, rt.Calls("http://lobby.test/eu-central-1-Steam.json.gz"))
	assert.Equal(t, 1, rt.Calls("http://lobby.test/eu-central-1-Switch.json.gz"))
	assert.Equal(t, 2, rt.TotalCalls())
}

func TestClient_Lobbies_DropsInvalidRecords(t *testing.T) {
	defer verifyNoLeaks(t)

	body := envelopeOf(t, lobbyRecord("a"), invalidLobbyRecord("bad"), lobbyRecord("b"), lobbyRecord("c"))
	rt := newMockTransport(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(req, http.StatusOK, body), nil
	})
	c := newTestClient(t, rt)

	result, err := c.Lobbies(context.Background(), LobbyQuery{
		Regions:   []model.Region{model.RegionAPEast},
		Platforms: []model.Platform{model.PlatformSteam},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, rowIDs(result.Lobbies))
	assert.Equal(t, 3, result.Report.Accepted)
	assert.Equal(t, 1, result.Report.Rejected)
	assert.Equal(t, 1, result.Report.Count(OutcomeOK))
	for _, l := range result.Lobbies {
		assert.Equal(t, model.RegionAPEast, l.Region)
	}
}

func TestClient_Lobbies_RetriesTransientFailures(t *testing.T) {
	const retries = 3
	var attempts atomic.Int32
	body := envelopeOf(t, lobbyRecord("a"))

	rt := newMockTransport(func(req *http.Request) (*http.Response, error) {
		if attempts.Add(1) <= retries {
			if attempts.Load()%2 == 0 {
				return jsonResponse(req, http.StatusBadGateway, ""), nil
			}
			return nil, errConnReset
		}
		return jsonResponse(req, http.StatusOK, body), nil
	})
	c := newTestClient(t, rt, WithLobbyStage(StageConfig{
		Concurrency: 1,
		Retry:       RetryPolicy{Retries: retries},
	}))

	result, err := c.Lobbies(context.Background(), LobbyQuery{
		Regions:   []model.Region{model.RegionUSEast},
		Platforms: []model.Platform{model.PlatformPSN},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, rowIDs(result.Lobbies))
	assert.Equal(t, int32(retries+1), attempts.Load())
}

func alwaysFailing(failingURL string, body string) func(req *http.Request) (*http.Response, error) {
	return func(req *http.Request) (*http.Response, error) {
		if req.URL.String() == failingURL {
			return nil, errConnReset
		}
		return jsonResponse(req, http.StatusOK, body), nil
	}
}

func TestClient_Lobbies_LenientIsolatesFailedUnits(t *testing.T) {
	defer verifyNoLeaks(t)

	failing := "http://lobby.test/us-east-1-Rail.json.gz"
	rt := newMockTransport(alwaysFailing(failing, envelopeOf(t, lobbyRecord("a"))))
	c := newTestClient(t, rt)

	result, err := c.Lobbies(context.Background(), LobbyQuery{
		Regions:   []model.Region{model.RegionUSEast},
		Platforms: []model.Platform{model.PlatformSteam, model.PlatformRail, model.PlatformXBone},
	})
	require.NoError(t, err)

	assert.Len(t, result.Lobbies, 2)
	assert.Equal(t, DefaultRetries+1, rt.Calls(failing))
	assert.Equal(t, 1, result.Report.Count(OutcomeTransportFailed))
	assert.Equal(t, 2, result.Report.Count(OutcomeOK))
	assert.False(t, result.Report.AllFailed())
}

func TestClient_Lobbies_StrictAbortsTheBatch(t *testing.T) {
	defer verifyNoLeaks(t)

	failing := "http://lobby.test/us-east-1-Rail.json.gz"
	rt := newMockTransport(alwaysFailing(failing, envelopeOf(t, lobbyRecord("a"))))
	c := newTestClient(t, rt, WithLobbyStage(StageConfig{
		Concurrency: DefaultLobbyConcurrency,
		Retry:       RetryPolicy{Retries: 1, Mode: Strict},
	}))

	result, err := c.Lobbies(context.Background(), LobbyQuery{
		Regions:   []model.Region{model.RegionUSEast},
		Platforms: []model.Platform{model.PlatformSteam, model.PlatformRail, model.PlatformXBone},
	})
	assert.Nil(t, result)

	var batchErr *BatchError
	require.True(t, errors.As(err, &batchErr), "got %v", err)
	assert.Equal(t, StageLobby, batchErr.Stage)
	assert.ErrorIs(t, err, errConnReset)
	assert.Equal(t, 2, rt.Calls(failing))
}

func TestClient_Lobbies_AllFailed(t *testing.T) {
	rt := newMockTransport(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(req, http.StatusServiceUnavailable, ""), nil
	})
	c := newTestClient(t, rt, WithLobbyStage(StageConfig{Concurrency: 5, Retry: RetryPolicy{Retries: 0}}))

	result, err := c.Lobbies(context.Background(), LobbyQuery{Regions: []model.Region{model.RegionAPSoutheast}})
	require.NoError(t, err)

	assert.Empty(t, result.Lobbies)
	assert.True(t, result.Report.AllFailed())
	assert.Equal(t, len(model.AllPlatforms), result.Report.Count(OutcomeTransportFailed))
}

func TestClient_Lobbies_MalformedEnvelopeIsNotRetried(t *testing.T) {
	rt := newMockTransport(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(req, http.StatusOK, `{"GET": {"not": "a list"}}`), nil
	})
	c := newTestClient(t, rt)

	result, err := c.Lobbies(context.Background(), LobbyQuery{
		Regions:   []model.Region{model.RegionAPEast},
		Platforms: []model.Platform{model.PlatformSteam},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rt.TotalCalls())
	assert.Equal(t, 1, result.Report.Count(OutcomeTransportFailed))
}

func TestClient_Lobbies_Cancelled(t *testing.T) {
	defer verifyNoLeaks(t)

	rt := newMockTransport(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(req, http.StatusOK, `{"GET":[]}`), nil
	})
	rt.delay = time.Second
	c := newTestClient(t, rt, WithLobbyStage(StageConfig{Concurrency: 2, Retry: DefaultRetryPolicy()}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	started := time.Now()
	_, err := c.Lobbies(ctx, LobbyQuery{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), 500*time.Millisecond)
	assert.LessOrEqual(t, rt.TotalCalls(), 2)
}

// One region, two platforms: the first answers 3 valid and 1 invalid record,
// the second fails once and then answers 2 valid records.
func TestClient_Lobbies_EndToEnd(t *testing.T) {
	defer verifyNoLeaks(t)

	var p2Attempts atomic.Int32
	p1Body := envelopeOf(t, lobbyRecord("p1-a"), lobbyRecord("p1-b"), invalidLobbyRecord("p1-bad"), lobbyRecord("p1-c"))
	p2Body := envelopeOf(t, lobbyRecord("p2-a"), lobbyRecord("p2-b"))

	rt := newMockTransport(func(req *http.Request) (*http.Response, error) {
		switch {
		case strings.HasSuffix(req.URL.Path, "-Steam.json.gz"):
			return jsonResponse(req, http.StatusOK, p1Body), nil
		case strings.HasSuffix(req.URL.Path, "-PSN.json.gz"):
			if p2Attempts.Add(1) == 1 {
				return nil, errConnReset
			}
			return jsonResponse(req, http.StatusOK, p2Body), nil
		}
		return jsonResponse(req, http.StatusNotFound, ""), nil
	})
	c := newTestClient(t, rt)

	result, err := c.Lobbies(context.Background(), LobbyQuery{
		Regions:   []model.Region{model.RegionEUCentral},
		Platforms: []model.Platform{model.PlatformSteam, model.PlatformPSN},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"p1-a", "p1-b", "p1-c", "p2-a", "p2-b"}, rowIDs(result.Lobbies))
	assert.Equal(t, 1, result.Report.Rejected)
	assert.Equal(t, 2, result.Report.Count(OutcomeOK))
}

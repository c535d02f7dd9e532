package console

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dimspell/lobbywatch/internal/klei"
	"github.com/dimspell/lobbywatch/internal/wire"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})))
}

const lobbyJSON = `{
	"__rowId": %q, "name": "World", "__addr": "198.51.100.10", "port": 10999,
	"host": "KU_host", "connected": 2, "maxconnections": 6, "v": 654321,
	"allownewplayers": true, "clanonly": false, "clienthosted": false,
	"dedicated": true, "fo": false, "lanonly": false, "mods": false,
	"password": false, "pvp": false, "serverpaused": false, "platform": 1,
	"session": "S", "guid": "1", "intent": "social", "steamroom": "0",
	"tick": 15, "clientmodsoff": false, "nat": 5,
	"players": "return {{name=\"Alice\",prefab=\"wendy\"}}"
}`

// directory fakes the lobby service. Only us-east-1 Steam lists a session.
type directory struct {
	lobbyCalls atomic.Int32
	roomCalls  atomic.Int32
}

func (d *directory) handler() http.Handler {
	mux := chi.NewRouter()
	mux.Get("/lobby/{listing}", func(w http.ResponseWriter, r *http.Request) {
		d.lobbyCalls.Add(1)
		if chi.URLParam(r, "listing") == "us-east-1-Steam.json.gz" {
			io.WriteString(w, `{"GET":[`+strings.Replace(lobbyJSON, "%q", `"row1"`, 1)+`]}`)
			return
		}
		io.WriteString(w, `{"GET":[]}`)
	})
	mux.Post("/room/{region}/lobby/read", func(w http.ResponseWriter, r *http.Request) {
		d.roomCalls.Add(1)
		var q struct {
			Query struct {
				RowID string `json:"__rowId"`
			} `json:"query"`
		}
		_ = json.NewDecoder(r.Body).Decode(&q)
		if q.Query.RowID != "row1" || chi.URLParam(r, "region") != "us-east-1" {
			io.WriteString(w, `{"GET":[]}`)
			return
		}
		io.WriteString(w, `{"GET":[`+strings.Replace(lobbyJSON, "%q", `"row1"`, 1)+`]}`)
	})
	mux.Get("/regions.json", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"LobbyRegions":[{"Region":"us-east-1"}]}`)
	})
	mux.Get("/builds.json", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"release":["650003","650001"]}`)
	})
	return mux
}

func newTestConsole(t *testing.T) (*httptest.Server, *directory) {
	t.Helper()

	dir := &directory{}
	upstream := httptest.NewServer(dir.handler())
	t.Cleanup(upstream.Close)

	client, err := klei.NewClient(
		klei.WithTimeout(5*time.Second),
		klei.WithEndpoints(klei.Endpoints{
			LobbyURL:   upstream.URL + "/lobby/{region}-{platform}.json.gz",
			RoomURL:    upstream.URL + "/room/{region}/lobby/read",
			RegionURL:  upstream.URL + "/regions.json",
			VersionURL: upstream.URL + "/versions",
			BuildURL:   upstream.URL + "/builds.json",
		}),
	)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	c, err := NewConsole(client, WithVersion("test"))
	require.NoError(t, err)

	ts := httptest.NewServer(c.HttpRouter())
	t.Cleanup(ts.Close)
	return ts, dir
}

func get(t *testing.T, url string, header ...string) (*http.Response, []byte) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestConsole_Handlers(t *testing.T) {
	ts, dir := newTestConsole(t)

	t.Run("GET /_health", func(t *testing.T) {
		resp, body := get(t, ts.URL+"/_health")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"status":"OK","version":"test"}`, string(body))
	})

	t.Run("GET /_metrics", func(t *testing.T) {
		resp, body := get(t, ts.URL+"/_metrics")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), "lobbywatch_uptime_seconds")
	})

	t.Run("GET /api/lobbies", func(t *testing.T) {
		before := dir.lobbyCalls.Load()
		resp, body := get(t, ts.URL+"/api/lobbies?region=us-east-1&platform=Steam")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int32(1), dir.lobbyCalls.Load()-before)

		var result klei.LobbyResult
		require.NoError(t, json.Unmarshal(body, &result))
		require.Len(t, result.Lobbies, 1)
		assert.Equal(t, "row1", result.Lobbies[0].RowID)
		assert.Equal(t, 1, result.Report.Units)
	})

	t.Run("GET /api/lobbies with an unknown region", func(t *testing.T) {
		resp, body := get(t, ts.URL+"/api/lobbies?region=mars-1")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, string(body), "unknown region")
	})

	t.Run("GET /api/rooms by row", func(t *testing.T) {
		resp, body := get(t, ts.URL+"/api/rooms?region=us-east-1&row=row1&row=row2")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result struct {
			Rooms []struct {
				RowID   string `json:"rowId"`
				Players []struct {
					Name string `json:"name"`
				} `json:"players"`
			} `json:"rooms"`
			Report struct {
				Units    int            `json:"units"`
				Outcomes map[string]int `json:"outcomes"`
			} `json:"report"`
		}
		require.NoError(t, json.Unmarshal(body, &result))
		require.Len(t, result.Rooms, 1)
		assert.Equal(t, "Alice", result.Rooms[0].Players[0].Name)
		assert.Equal(t, 2, result.Report.Units)
		assert.Equal(t, 1, result.Report.Outcomes["not_found"])
	})

	t.Run("GET /api/rooms needs one region for rows", func(t *testing.T) {
		resp, _ := get(t, ts.URL+"/api/rooms?row=row1")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("GET /api/rooms discovers sessions", func(t *testing.T) {
		before := dir.roomCalls.Load()
		resp, body := get(t, ts.URL+"/api/rooms?region=us-east-1", "Accept", "application/cbor")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/cbor", resp.Header.Get("Content-Type"))
		assert.Equal(t, int32(1), dir.roomCalls.Load()-before)

		var result klei.RoomResult
		require.NoError(t, wire.NewCBORCodec().Unmarshal(body, &result))
		require.Len(t, result.Rooms, 1)
		assert.Equal(t, "row1", result.Rooms[0].RowID)
	})

	t.Run("GET /api/regions", func(t *testing.T) {
		resp, body := get(t, ts.URL+"/api/regions")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"regions":["us-east-1"]}`, string(body))
	})

	t.Run("GET /api/builds/release", func(t *testing.T) {
		resp, body := get(t, ts.URL+"/api/builds/release")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"type":"release","build":650003}`, string(body))
	})

	t.Run("GET /api/builds/beta", func(t *testing.T) {
		resp, _ := get(t, ts.URL+"/api/builds/beta")
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	})

	t.Run("CORS", func(t *testing.T) {
		resp, _ := get(t, ts.URL+"/api/regions", "Origin", "http://example.com")
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	})
}

func TestNewConsole_InvalidOptions(t *testing.T) {
	client, err := klei.NewClient()
	require.NoError(t, err)
	defer client.Close()

	_, err = NewConsole(client, WithBindAddr(""))
	assert.Error(t, err)
	_, err = NewConsole(client, WithRequestTimeout(0))
	assert.Error(t, err)
}

func TestConsole_Graceful(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	newConsole := func(t *testing.T, addr string) *Console {
		client, err := klei.NewClient()
		require.NoError(t, err)
		c, err := NewConsole(client, WithBindAddr(addr))
		require.NoError(t, err)
		return c
	}

	t.Run("Shuts down when the context ends", func(t *testing.T) {
		c := newConsole(t, "127.0.0.1:0")
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start, shutdown := c.Handlers()
		assert.NoError(t, c.Graceful(ctx, start, shutdown))
	})

	t.Run("Shuts down when the server cannot start", func(t *testing.T) {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer l.Close()

		c := newConsole(t, l.Addr().String())
		start, shutdown := c.Handlers()

		var shutdowns atomic.Int32
		err = c.Graceful(context.Background(), start, func(ctx context.Context) error {
			shutdowns.Add(1)
			return shutdown(ctx)
		})
		assert.Error(t, err)
		assert.Equal(t, int32(1), shutdowns.Load())
	})
}

package klei

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})))
}

// verifyNoLeaks checks for leaked goroutines. Event consumers of closed
// dispatchers are ignored: they exit on the next broadcast, which may never
// come once the dispatcher is closed.
func verifyNoLeaks(t *testing.T) {
	t.Helper()
	goleak.VerifyNone(t,
		goleak.IgnoreAnyFunction("github.com/kelindar/event.(*consumer[...]).Listen"),
		goleak.IgnoreAnyFunction("github.com/kelindar/event.(*group[...]).Process"),
	)
}

var errConnReset = errors.New("connection reset by peer")

// mockTransport answers requests in-process and counts how many of them are
// in flight at the same time.
type mockTransport struct {
	handler func(req *http.Request) (*http.Response, error)
	delay   time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	mu    sync.Mutex
	calls map[string]int
}

func newMockTransport(handler func(req *http.Request) (*http.Response, error)) *mockTransport {
	return &mockTransport{handler: handler, calls: make(map[string]int)}
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		peak := m.maxInFlight.Load()
		if n <= peak || m.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	m.mu.Lock()
	m.calls[req.URL.String()]++
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}
	return m.handler(req)
}

func (m *mockTransport) Calls(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[url]
}

func (m *mockTransport) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func (m *mockTransport) Distinct() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func jsonResponse(req *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}

func envelopeOf(t *testing.T, records ...map[string]any) string {
	t.Helper()
	if records == nil {
		records = []map[string]any{}
	}
	out, err := json.Marshal(map[string]any{"GET": records})
	require.NoError(t, err)
	return string(out)
}

var testEndpoints = Endpoints{
	LobbyURL:   "http://lobby.test/{region}-{platform}.json.gz",
	RoomURL:    "http://{region}.room.test/lobby/read",
	RegionURL:  "http://lobby.test/regioncapabilities-v2.json",
	VersionURL: "http://forums.test/game-updates/dst",
	BuildURL:   "http://builds.test/builds.json",
}

func newTestClient(t *testing.T, rt http.RoundTripper, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithEndpoints(testEndpoints),
		WithTransport(rt),
		WithTimeout(5 * time.Second),
	}, opts...)
	c, err := NewClient(opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func lobbyRecord(rowID string) map[string]any {
	return map[string]any{
		"__rowId":         rowID,
		"name":            "Server " + rowID,
		"__addr":          "198.51.100.10",
		"port":            10999,
		"host":            "KU_host",
		"connected":       1,
		"maxconnections":  6,
		"v":               654321,
		"allownewplayers": true,
		"clanonly":        false,
		"clienthosted":    false,
		"dedicated":       true,
		"fo":              false,
		"lanonly":         false,
		"mods":            false,
		"password":        false,
		"pvp":             false,
		"serverpaused":    false,
		"platform":        1,
		"session":         "SESSION",
		"guid":            "1",
		"intent":          "social",
		"steamroom":       "0",
	}
}

func invalidLobbyRecord(rowID string) map[string]any {
	rec := lobbyRecord(rowID)
	delete(rec, "__addr")
	return rec
}

func roomRecord(rowID string) map[string]any {
	rec := lobbyRecord(rowID)
	rec["tick"] = 15
	rec["clientmodsoff"] = false
	rec["nat"] = 5
	rec["players"] = `return {{name="Alice",prefab="wilson"},{name="Bob"}}`
	return rec
}

// rowIDOf extracts the row identifier from a room query.
func rowIDOf(req *http.Request) string {
	var q roomQuery
	if err := json.NewDecoder(req.Body).Decode(&q); err != nil {
		return ""
	}
	return q.Query.RowID
}

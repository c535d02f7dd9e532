package klei

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dimspell/lobbywatch/internal/model"
	"github.com/kelindar/event"
)

const (
	DefaultPoolSize         = 500
	DefaultLobbyConcurrency = 20
	DefaultRoomConcurrency  = 10000
	DefaultTimeout          = 30 * time.Second
	DefaultGameID           = "DontStarveTogether"
)

// Endpoints holds the URL templates of the directory service. LobbyURL
// expands {region} and {platform}, RoomURL expands {region}.
type Endpoints struct {
	LobbyURL   string
	RoomURL    string
	RegionURL  string
	VersionURL string
	BuildURL   string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		LobbyURL:   "https://lobby-v2-cdn.klei.com/{region}-{platform}.json.gz",
		RoomURL:    "https://lobby-v2-{region}.klei.com/lobby/read",
		RegionURL:  "https://lobby-v2-cdn.klei.com/regioncapabilities-v2.json",
		VersionURL: "https://forums.kleientertainment.com/game-updates/dst",
		BuildURL:   "https://s3.amazonaws.com/dstbuilds/builds.json",
	}
}

func (e Endpoints) lobby(region model.Region, platform model.Platform) string {
	return strings.NewReplacer(
		"{region}", region.String(),
		"{platform}", platform.String(),
	).Replace(e.LobbyURL)
}

func (e Endpoints) room(region model.Region) string {
	return strings.ReplaceAll(e.RoomURL, "{region}", region.String())
}

// StageConfig bounds one pipeline stage.
type StageConfig struct {
	Concurrency int
	Retry       RetryPolicy
}

type Config struct {
	Token     string
	GameID    string
	PoolSize  int
	Timeout   time.Duration
	Lobby     StageConfig
	Room      StageConfig
	Endpoints Endpoints

	// Events receives one UnitEvent per finished unit, when set.
	Events *event.Dispatcher
	// Transport is the round tripper below the connection pool. Defaults to a
	// clone of http.DefaultTransport sized to PoolSize.
	Transport http.RoundTripper
}

func DefaultConfig() *Config {
	return &Config{
		GameID:   DefaultGameID,
		PoolSize: DefaultPoolSize,
		Timeout:  DefaultTimeout,
		Lobby: StageConfig{
			Concurrency: DefaultLobbyConcurrency,
			Retry:       DefaultRetryPolicy(),
		},
		Room: StageConfig{
			Concurrency: DefaultRoomConcurrency,
			Retry:       DefaultRetryPolicy(),
		},
		Endpoints: DefaultEndpoints(),
	}
}

type Option func(*Config) error

func WithToken(token string) Option {
	return func(c *Config) error {
		c.Token = token
		return nil
	}
}

func WithPoolSize(size int) Option {
	return func(c *Config) error {
		if size < 1 {
			return fmt.Errorf("pool size must be positive, got %d", size)
		}
		c.PoolSize = size
		return nil
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		c.Timeout = timeout
		return nil
	}
}

func WithLobbyStage(stage StageConfig) Option {
	return func(c *Config) error {
		if stage.Concurrency < 1 {
			return fmt.Errorf("lobby concurrency must be positive, got %d", stage.Concurrency)
		}
		c.Lobby = stage
		return nil
	}
}

func WithRoomStage(stage StageConfig) Option {
	return func(c *Config) error {
		if stage.Concurrency < 1 {
			return fmt.Errorf("room concurrency must be positive, got %d", stage.Concurrency)
		}
		c.Room = stage
		return nil
	}
}

func WithEndpoints(endpoints Endpoints) Option {
	return func(c *Config) error {
		c.Endpoints = endpoints
		return nil
	}
}

func WithEvents(bus *event.Dispatcher) Option {
	return func(c *Config) error {
		c.Events = bus
		return nil
	}
}

func WithTransport(rt http.RoundTripper) Option {
	return func(c *Config) error {
		c.Transport = rt
		return nil
	}
}

// Client queries the lobby directory. It is safe for concurrent use; all calls
// share one connection pool.
type Client struct {
	Config *Config

	http *http.Client
	pool *poolTransport
}

func NewClient(opts ...Option) (*Client, error) {
	config := DefaultConfig()
	for _, fn := range opts {
		if err := fn(config); err != nil {
			return nil, err
		}
	}

	base := config.Transport
	if base == nil {
		base = newBaseTransport(config.PoolSize)
	}
	pool := newPoolTransport(base, config.PoolSize)

	return &Client{
		Config: config,
		http:   &http.Client{Transport: pool, Timeout: config.Timeout},
		pool:   pool,
	}, nil
}

// Close releases idle connections of the pool.
func (c *Client) Close() {
	c.pool.CloseIdleConnections()
}

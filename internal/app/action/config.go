package action

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/dimspell/lobbywatch/internal/klei"
	toml "github.com/pelletier/go-toml/v2"
)

// fileConfig is the optional TOML file passed with --config. Flags set on the
// command line take precedence over it.
type fileConfig struct {
	Token    string      `toml:"token"`
	PoolSize int         `toml:"pool_size"`
	Timeout  string      `toml:"timeout"`
	Lobby    stageConfig `toml:"lobby"`
	Room     stageConfig `toml:"room"`

	Endpoints endpointsConfig `toml:"endpoints"`
}

// endpointsConfig replaces the directory URLs, for mirrors and test servers.
// Empty values keep the defaults.
type endpointsConfig struct {
	Lobby   string `toml:"lobby"`
	Room    string `toml:"room"`
	Region  string `toml:"region"`
	Version string `toml:"version"`
	Build   string `toml:"build"`
}

func (e endpointsConfig) endpoints() klei.Endpoints {
	defaults := klei.DefaultEndpoints()
	return klei.Endpoints{
		LobbyURL:   fallbackString(e.Lobby, defaults.LobbyURL),
		RoomURL:    fallbackString(e.Room, defaults.RoomURL),
		RegionURL:  fallbackString(e.Region, defaults.RegionURL),
		VersionURL: fallbackString(e.Version, defaults.VersionURL),
		BuildURL:   fallbackString(e.Build, defaults.BuildURL),
	}
}

type stageConfig struct {
	Concurrency int    `toml:"concurrency"`
	Retries     *int   `toml:"retries"`
	Mode        string `toml:"mode"`
}

func (s stageConfig) mode() (klei.FailureMode, error) {
	return klei.ParseFailureMode(s.Mode)
}

func loadFileConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	decoder := toml.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}
	if _, err := cfg.timeout(); err != nil {
		return nil, err
	}
	for name, stage := range map[string]stageConfig{"lobby": cfg.Lobby, "room": cfg.Room} {
		if _, err := stage.mode(); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if stage.Concurrency < 0 {
			return nil, fmt.Errorf("%s: concurrency must not be negative", name)
		}
	}
	return cfg, nil
}

func (f *fileConfig) timeout() (time.Duration, error) {
	if f.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(f.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", f.Timeout, err)
	}
	return d, nil
}

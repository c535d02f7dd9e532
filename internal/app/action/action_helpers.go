package action

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dimspell/lobbywatch/internal/klei"
	"github.com/dimspell/lobbywatch/internal/model"
	"github.com/dimspell/lobbywatch/internal/wire"
	"github.com/kelindar/event"
	"github.com/urfave/cli/v3"
)

// clientFlags are shared by every command talking to the lobby directory.
func clientFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "token",
			Usage:   "Klei token sent with room queries",
			Sources: cli.EnvVars("KLEI_TOKEN"),
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to a TOML file with client settings",
		},
		&cli.IntFlag{
			Name:  "pool-size",
			Value: defaultPoolSize,
			Usage: "Maximum number of simultaneous HTTP requests",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Value: defaultTimeout,
			Usage: "Timeout of a single HTTP request",
		},
		&cli.IntFlag{
			Name:  "lobby-concurrency",
			Value: defaultLobbyConcurrency,
			Usage: "Maximum number of lobby listings fetched at once",
		},
		&cli.IntFlag{
			Name:  "lobby-retries",
			Value: defaultRetries,
			Usage: "Retries of a failed lobby listing",
		},
		&cli.BoolFlag{
			Name:  "lobby-strict",
			Usage: "Fail the whole command when a lobby listing cannot be fetched",
		},
		&cli.IntFlag{
			Name:  "room-concurrency",
			Value: defaultRoomConcurrency,
			Usage: "Maximum number of room records fetched at once",
		},
		&cli.IntFlag{
			Name:  "room-retries",
			Value: defaultRetries,
			Usage: "Retries of a failed room query",
		},
		&cli.BoolFlag{
			Name:  "room-strict",
			Usage: "Fail the whole command when a room cannot be fetched",
		},
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "format",
			Value: defaultFormat,
			Usage: "Output format (json, cbor)",
		},
	}
}

func queryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "region",
			Usage: fmt.Sprintf("Region to query, may be repeated (%s)", joinRegions(model.AllRegions)),
		},
		&cli.StringSliceFlag{
			Name:  "platform",
			Usage: "Platform to query, may be repeated (Steam, PSN, Rail, XBone, Switch)",
		},
	}
}

// selectClientOptions merges the config file with the flags. A flag given on
// the command line always wins.
func selectClientOptions(c *cli.Command) ([]klei.Option, error) {
	file, err := loadFileConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	fileTimeout, _ := file.timeout()

	// An empty KLEI_TOKEN still counts as set, so an empty value falls back to
	// the file instead.
	token := fallbackString(c.String("token"), file.Token)

	lobby := selectStage(c, "lobby", file.Lobby)
	room := selectStage(c, "room", file.Room)

	return []klei.Option{
		klei.WithToken(token),
		klei.WithPoolSize(selectInt(c, "pool-size", file.PoolSize)),
		klei.WithTimeout(selectDuration(c, "timeout", fileTimeout)),
		klei.WithLobbyStage(lobby),
		klei.WithRoomStage(room),
		klei.WithEndpoints(file.Endpoints.endpoints()),
	}, nil
}

func selectStage(c *cli.Command, prefix string, file stageConfig) klei.StageConfig {
	retries := c.Int(prefix + "-retries")
	if !c.IsSet(prefix+"-retries") && file.Retries != nil {
		retries = *file.Retries
	}

	mode, _ := file.mode()
	if c.IsSet(prefix + "-strict") {
		mode = klei.Lenient
		if c.Bool(prefix + "-strict") {
			mode = klei.Strict
		}
	}

	return klei.StageConfig{
		Concurrency: selectInt(c, prefix+"-concurrency", file.Concurrency),
		Retry:       klei.RetryPolicy{Retries: retries, Mode: mode},
	}
}

func selectInt(c *cli.Command, name string, fromFile int) int {
	if c.IsSet(name) || fromFile == 0 {
		return c.Int(name)
	}
	return fromFile
}

func selectDuration(c *cli.Command, name string, fromFile time.Duration) time.Duration {
	if c.IsSet(name) || fromFile == 0 {
		return c.Duration(name)
	}
	return fromFile
}

// newClient builds a directory client from the flags of c. Unit events are
// published on bus when it is not nil.
func newClient(c *cli.Command, bus *event.Dispatcher) (*klei.Client, error) {
	opts, err := selectClientOptions(c)
	if err != nil {
		return nil, err
	}
	if bus != nil {
		opts = append(opts, klei.WithEvents(bus))
	}
	return klei.NewClient(opts...)
}

func selectQuery(c *cli.Command) (klei.LobbyQuery, error) {
	regions, err := model.ParseRegions(c.StringSlice("region"))
	if err != nil {
		return klei.LobbyQuery{}, err
	}

	var platforms []model.Platform
	for _, name := range c.StringSlice("platform") {
		p, err := model.ParsePlatform(name)
		if err != nil {
			return klei.LobbyQuery{}, err
		}
		platforms = append(platforms, p)
	}
	return klei.LobbyQuery{Regions: regions, Platforms: platforms}, nil
}

// writeResult prints v in the format chosen with --format.
func writeResult(c *cli.Command, v any) error {
	codec, err := wire.CodecByName(c.String("format"))
	if err != nil {
		return err
	}
	return codec.Write(output(c), v)
}

func output(c *cli.Command) io.Writer {
	if w := c.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func joinRegions(regions []model.Region) string {
	names := make([]string, len(regions))
	for i, r := range regions {
		names[i] = r.String()
	}
	return strings.Join(names, ", ")
}

func fallbackString(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

package action

import "github.com/dimspell/lobbywatch/internal/klei"

var (
	// Client
	defaultPoolSize = klei.DefaultPoolSize
	defaultTimeout  = klei.DefaultTimeout
	defaultRetries  = klei.DefaultRetries

	// Pipeline stages
	defaultLobbyConcurrency = klei.DefaultLobbyConcurrency
	defaultRoomConcurrency  = klei.DefaultRoomConcurrency
)

var (
	// Console
	defaultConsoleAddr = "127.0.0.1:2137"

	// Output
	defaultFormat = "json"

	// Cluster
	defaultClusterDir = "Cluster_1"
)

package app

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp(t *testing.T) {
	app := NewApp("1.2.3", "abcdef0123456789", "2025-01-01")
	assert.Equal(t, "1.2.3 (revision: abcdef0) built on 2025-01-01", app.Version)

	var names []string
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	assert.Equal(t, []string{"lobbies", "rooms", "regions", "versions", "build", "cluster", "serve"}, names)
}

func TestNewApp_InvalidLogFormat(t *testing.T) {
	app := NewApp("dev", "", "now")
	app.Writer = &bytes.Buffer{}
	app.ErrWriter = &bytes.Buffer{}

	err := app.Run(context.Background(), []string{"lobbywatch", "--log-format", "xml", "cluster", "show", "--dir", t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log format")
}

package logging

import (
	"log/slog"

	"github.com/dimspell/lobbywatch/internal/model"
)

func Error(err error) slog.Attr {
	if err == nil {
		slog.Error("Going to log nil error")
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

func Region(region model.Region) slog.Attr {
	return slog.String("region", region.String())
}

func Platform(platform model.Platform) slog.Attr {
	return slog.String("platform", platform.String())
}

func RowID(rowID string) slog.Attr {
	return slog.String("rowId", rowID)
}

func RunID(runID string) slog.Attr {
	return slog.String("runId", runID)
}

func Stage(stage string) slog.Attr {
	return slog.String("stage", stage)
}

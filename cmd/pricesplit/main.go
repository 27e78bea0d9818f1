package main

import (
	"log/slog"
	"os"

	"github.com/cleared-dev/pricesplit/internal/commands"
	"github.com/cleared-dev/pricesplit/internal/logging"
)

func main() {
	logging.Setup(slog.LevelInfo)

	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

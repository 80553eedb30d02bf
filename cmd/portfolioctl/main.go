// Command portfolioctl administers the portfolio document stored in MongoDB:
// seeding placeholder content, reading it back and editing sections and items.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/utsingh/portfolio-api/pkg/logger"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	for _, c := range commands {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

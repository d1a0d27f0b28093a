package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/ghaggin/wallet/internal/cli"
	"github.com/google/subcommands"
)

func main() {
	var g cli.Globals
	flag.StringVar(&g.Mode, "mode", "", "either development or production, overriding the config file")
	flag.BoolVar(&g.Verbose, "v", false, "log at debug level")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	for _, c := range cli.Commands(&g) {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/wafwatch/wafwatch/cmd/wafwatch/commands"

	"github.com/peterbourgon/ff/v3/ffcli"
)

func main() {
	var (
		out                     = os.Stdout
		rootCommand, rootConfig = commands.RootCommand()
		serverCommand           = commands.NewServerCommand(rootConfig, out)
		scanCommand             = commands.NewScanCommand(rootConfig, out)
		tokenCommand            = commands.NewTokenCommand(rootConfig, out)
	)

	rootCommand.Subcommands = []*ffcli.Command{
		serverCommand,
		scanCommand,
		tokenCommand,
	}

	if err := rootCommand.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error during Parse: %v\n", err)
		os.Exit(1)
	}

	if err := rootCommand.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

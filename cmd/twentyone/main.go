package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Server   ServerCmd        `cmd:"" help:"Run the blackjack table server"`
	Accounts AccountsCmd      `cmd:"" help:"Run the account service"`
	Play     PlayCmd          `cmd:"" help:"Play blackjack in the terminal"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("twentyone"),
		kong.Description("Single-seat blackjack over WebSockets"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

package main

import (
	"github.com/alecthomas/kong"
)

var version = "0.3.0"

type CLI struct {
	Serve    ServeCmd    `cmd:"" help:"Run the session monitor daemon."`
	Hook     HookCmd     `cmd:"" help:"Forward one lifecycle hook payload from stdin to the daemon."`
	Sessions SessionsCmd `cmd:"" help:"List sessions tracked by a running daemon."`
	Version  VersionCmd  `cmd:"" help:"Print the version."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("claude-island"),
		kong.Description("Track externally running coding-agent sessions: phases, approvals, transcripts."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
	)
	ctx.FatalIfErrorf(ctx.Run())
}

package operation

import (
	"github.com/mitchellh/cli"

	"github.com/nuxeo/nuxeo-go-client/internal/cmd/base"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Work with automation operations"
}

func (c *Command) Help() string {
	return `Usage: nxctl op <subcommand> [options]

  This command groups subcommands for server-side automation operations.`
}

func (c *Command) Run(args []string) int {
	return cli.RunResultHelp
}

package document

import (
	"github.com/mitchellh/cli"

	"github.com/nuxeo/nuxeo-go-client/internal/cmd/base"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Work with repository documents"
}

func (c *Command) Help() string {
	return `Usage: nxctl doc <subcommand> [options]

  This command groups subcommands operating on repository documents.`
}

func (c *Command) Run(args []string) int {
	return cli.RunResultHelp
}

package version

import (
	"github.com/nuxeo/nuxeo-go-client/internal/cmd/base"
	"github.com/nuxeo/nuxeo-go-client/internal/version"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Print the nxctl version"
}

func (c *Command) Help() string {
	return `Usage: nxctl version

  Prints the nxctl version.`
}

func (c *Command) Run(args []string) int {
	c.UI.Output(version.Version)
	return 0
}

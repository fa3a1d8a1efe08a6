package status

import (
	"context"
	"flag"
	"fmt"

	"github.com/nuxeo/nuxeo-go-client/internal/cmd/base"
)

type Command struct {
	*base.Command

	clientFlags base.ClientFlags
}

func (c *Command) Synopsis() string {
	return "Check whether the server is up"
}

func (c *Command) Help() string {
	return `Usage: nxctl status [options]

  Probes the server's running status and prints its product version.` +
		c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("status", flag.ExitOnError))
	c.clientFlags.Register(f.FlagSet)
	return f
}

func (c *Command) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	client, err := c.clientFlags.Client(c.Log)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	ctx := context.Background()
	if !client.IsReachable(ctx) {
		c.UI.Error("server is unreachable")
		return 1
	}

	info, err := client.FetchServerInfo(ctx, false)
	if err != nil {
		c.UI.Error(fmt.Sprintf("server is up but its info could not be read: %v", err))
		return 1
	}

	c.UI.Output(fmt.Sprintf("%s %s (repository %q)",
		info.ProductName, info.ProductVersion, client.Repository()))
	return 0
}

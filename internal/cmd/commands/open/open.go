package open

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/pkg/browser"

	"github.com/nuxeo/nuxeo-go-client/internal/cmd/base"
	"github.com/nuxeo/nuxeo-go-client/pkg/nuxeo"
)

type Command struct {
	*base.Command

	clientFlags base.ClientFlags
}

func (c *Command) Synopsis() string {
	return "Open a document in the web UI"
}

func (c *Command) Help() string {
	return `Usage: nxctl open [options] <uid | /path>

  Resolves a document and opens its web UI page in the default browser.` +
		c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("open", flag.ExitOnError))
	c.clientFlags.Register(f.FlagSet)
	return f
}

func (c *Command) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if flags.NArg() != 1 {
		c.UI.Error("exactly one document reference is required")
		return 1
	}
	ref := flags.Arg(0)

	client, err := c.clientFlags.Client(c.Log)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	ctx := context.Background()
	var doc *nuxeo.Document
	if strings.HasPrefix(ref, "/") {
		doc, err = client.Documents.GetByPath(ctx, ref)
	} else {
		doc, err = client.Documents.Get(ctx, ref)
	}
	if err != nil {
		c.UI.Error(fmt.Sprintf("error fetching document: %v", err))
		return 1
	}

	pageURL := fmt.Sprintf("%s/ui/#!/doc/%s", strings.TrimSuffix(client.BaseURL(), "/"), doc.UID)
	c.UI.Output(pageURL)
	if err := browser.OpenURL(pageURL); err != nil {
		c.UI.Error(fmt.Sprintf("error opening browser: %v", err))
		return 1
	}
	return 0
}

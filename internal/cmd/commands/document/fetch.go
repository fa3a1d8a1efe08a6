package document

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strings"

	"github.com/nuxeo/nuxeo-go-client/internal/cmd/base"
	"github.com/nuxeo/nuxeo-go-client/pkg/nuxeo"
)

type FetchCommand struct {
	*base.Command

	clientFlags  base.ClientFlags
	flagChildren bool
}

func (c *FetchCommand) Synopsis() string {
	return "Fetch a document by uid or path"
}

func (c *FetchCommand) Help() string {
	return `Usage: nxctl doc fetch [options] <uid | /path>

  Fetches a document and prints it as JSON. References starting with a
  slash are treated as repository paths, anything else as a uid.` +
		c.Flags().Help()
}

func (c *FetchCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("doc fetch", flag.ExitOnError))
	c.clientFlags.Register(f.FlagSet)
	f.BoolVar(&c.flagChildren, "children", false, "List the document's children instead.")
	return f
}

func (c *FetchCommand) Run(args []string) int {
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

	if c.flagChildren {
		children, err := client.Documents.Children(ctx, doc.UID)
		if err != nil {
			c.UI.Error(fmt.Sprintf("error listing children: %v", err))
			return 1
		}
		return c.printJSON(children)
	}
	return c.printJSON(doc)
}

func (c *FetchCommand) printJSON(v interface{}) int {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	c.UI.Output(string(out))
	return 0
}

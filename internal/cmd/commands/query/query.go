package query

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/nuxeo/nuxeo-go-client/internal/cmd/base"
)

type Command struct {
	*base.Command

	clientFlags  base.ClientFlags
	flagPageSize int
	flagPage     int
	flagJSON     bool
}

func (c *Command) Synopsis() string {
	return "Run an NXQL query"
}

func (c *Command) Help() string {
	return `Usage: nxctl query [options] <nxql>

  Runs an NXQL query and prints the matching documents.

  Example:
    nxctl query -url http://localhost:8080/nuxeo \
      "SELECT * FROM Document WHERE ecm:primaryType = 'File'"` +
		c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("query", flag.ExitOnError))
	c.clientFlags.Register(f.FlagSet)
	f.IntVar(&c.flagPageSize, "page-size", 0, "Documents per page (0 for the server default).")
	f.IntVar(&c.flagPage, "page", 0, "Page index to fetch.")
	f.BoolVar(&c.flagJSON, "json", false, "Print the raw result page as JSON.")
	return f
}

func (c *Command) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if flags.NArg() == 0 {
		c.UI.Error("an NXQL query is required")
		return 1
	}
	nxql := strings.Join(flags.Args(), " ")

	client, err := c.clientFlags.Client(c.Log)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	params := url.Values{}
	if c.flagPageSize > 0 {
		params.Set("pageSize", strconv.Itoa(c.flagPageSize))
	}
	if c.flagPage > 0 {
		params.Set("currentPageIndex", strconv.Itoa(c.flagPage))
	}

	result, err := client.Query(context.Background(), nxql, params)
	if err != nil {
		c.UI.Error(fmt.Sprintf("query failed: %v", err))
		return 1
	}
	if result.HasError {
		c.UI.Error(fmt.Sprintf("query failed: %s", result.ErrorMessage))
		return 1
	}

	if c.flagJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			c.UI.Error(err.Error())
			return 1
		}
		c.UI.Output(string(out))
		return 0
	}

	for _, doc := range result.Entries {
		c.UI.Output(fmt.Sprintf("%s\t%s\t%s", doc.UID, doc.Type, doc.Path))
	}
	c.UI.Info(fmt.Sprintf("%d results", result.ResultsCount))
	return 0
}

package operation

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"sort"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/nuxeo/nuxeo-go-client/internal/cmd/base"
)

// paramFlags collects repeated -param key=value pairs. Kebab-case keys
// are folded to the lowerCamel names the automation registry declares.
type paramFlags map[string]interface{}

func (p paramFlags) String() string { return fmt.Sprintf("%v", map[string]interface{}(p)) }

func (p paramFlags) Set(raw string) error {
	key, value, found := strings.Cut(raw, "=")
	if !found || key == "" {
		return fmt.Errorf("parameter must be key=value, got %q", raw)
	}
	if strings.Contains(key, "-") {
		key = strcase.ToLowerCamel(key)
	}
	p[key] = value
	return nil
}

type RunCommand struct {
	*base.Command

	clientFlags base.ClientFlags
	flagInput   string
	flagVoid    bool
	flagCheck   bool
	params      paramFlags
}

func (c *RunCommand) Synopsis() string {
	return "Execute an automation operation"
}

func (c *RunCommand) Help() string {
	return `Usage: nxctl op run [options] <operation>

  Executes a server-side automation operation and prints its result.

  Example:
    nxctl op run -url http://localhost:8080/nuxeo \
      -input doc:/default-domain -param value=approve \
      Document.FollowLifecycleTransition` +
		c.Flags().Help()
}

func (c *RunCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("op run", flag.ExitOnError))
	c.clientFlags.Register(f.FlagSet)
	if c.params == nil {
		c.params = paramFlags{}
	}
	f.Var(c.params, "param", "Operation parameter as key=value; repeatable.")
	f.StringVar(&c.flagInput, "input", "", "Operation input (doc:<ref> or docs:<refs>).")
	f.BoolVar(&c.flagVoid, "void", false, "Discard the operation result server-side.")
	f.BoolVar(&c.flagCheck, "check", false, "Validate parameters against the registry first.")
	return f
}

func (c *RunCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if flags.NArg() != 1 {
		c.UI.Error("exactly one operation name is required")
		return 1
	}

	client, err := c.clientFlags.Client(c.Log)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	ctx := context.Background()
	op := client.Operations.New(flags.Arg(0))
	for k, v := range c.params {
		op.Params[k] = v
	}
	if c.flagInput != "" {
		op.Input = c.flagInput
	}

	if c.flagCheck {
		if err := client.Operations.CheckParams(ctx, op); err != nil {
			c.UI.Error(err.Error())
			return 1
		}
	}

	if c.flagVoid {
		if err := client.Operations.Execute(ctx, op, nil); err != nil {
			c.UI.Error(fmt.Sprintf("operation failed: %v", err))
			return 1
		}
		return 0
	}

	var result json.RawMessage
	if err := client.Operations.Execute(ctx, op, &result); err != nil {
		c.UI.Error(fmt.Sprintf("operation failed: %v", err))
		return 1
	}
	if len(result) > 0 {
		c.UI.Output(string(result))
	}
	return 0
}

type ListCommand struct {
	*base.Command

	clientFlags base.ClientFlags
}

func (c *ListCommand) Synopsis() string {
	return "List the operations the server registers"
}

func (c *ListCommand) Help() string {
	return `Usage: nxctl op list [options]

  Lists the automation operations and chains the server registers.` +
		c.Flags().Help()
}

func (c *ListCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("op list", flag.ExitOnError))
	c.clientFlags.Register(f.FlagSet)
	return f
}

func (c *ListCommand) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	client, err := c.clientFlags.Client(c.Log)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	registry, err := client.Operations.Registry(context.Background())
	if err != nil {
		c.UI.Error(fmt.Sprintf("error fetching registry: %v", err))
		return 1
	}

	ids := make([]string, 0, len(registry))
	for id, desc := range registry {
		if id != desc.ID {
			continue // alias
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		desc := registry[id]
		line := id
		if desc.Label != "" && desc.Label != id {
			line += "\t" + desc.Label
		}
		c.UI.Output(line)
	}
	return 0
}

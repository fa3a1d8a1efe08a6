package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/nuxeo/nuxeo-go-client/internal/cmd/base"
	"github.com/nuxeo/nuxeo-go-client/internal/cmd/commands/document"
	"github.com/nuxeo/nuxeo-go-client/internal/cmd/commands/open"
	"github.com/nuxeo/nuxeo-go-client/internal/cmd/commands/operation"
	"github.com/nuxeo/nuxeo-go-client/internal/cmd/commands/query"
	"github.com/nuxeo/nuxeo-go-client/internal/cmd/commands/status"
	"github.com/nuxeo/nuxeo-go-client/internal/cmd/commands/upload"
	"github.com/nuxeo/nuxeo-go-client/internal/cmd/commands/version"
)

// Commands is the CLI subcommand registry.
var Commands map[string]cli.CommandFactory

func initCommands(log hclog.Logger, ui cli.Ui) {
	b := &base.Command{Log: log, UI: ui}

	Commands = map[string]cli.CommandFactory{
		"version": func() (cli.Command, error) {
			return &version.Command{Command: b}, nil
		},
		"status": func() (cli.Command, error) {
			return &status.Command{Command: b}, nil
		},
		"doc": func() (cli.Command, error) {
			return &document.Command{Command: b}, nil
		},
		"doc fetch": func() (cli.Command, error) {
			return &document.FetchCommand{Command: b}, nil
		},
		"query": func() (cli.Command, error) {
			return &query.Command{Command: b}, nil
		},
		"upload": func() (cli.Command, error) {
			return &upload.Command{Command: b}, nil
		},
		"op": func() (cli.Command, error) {
			return &operation.Command{Command: b}, nil
		},
		"op run": func() (cli.Command, error) {
			return &operation.RunCommand{Command: b}, nil
		},
		"op list": func() (cli.Command, error) {
			return &operation.ListCommand{Command: b}, nil
		},
		"open": func() (cli.Command, error) {
			return &open.Command{Command: b}, nil
		},
	}
}

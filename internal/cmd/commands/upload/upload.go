package upload

import (
	"context"
	"flag"
	"fmt"

	"github.com/nuxeo/nuxeo-go-client/internal/cmd/base"
	"github.com/nuxeo/nuxeo-go-client/pkg/nuxeo"
)

type Command struct {
	*base.Command

	clientFlags base.ClientFlags
	flagChunked bool
	flagAttach  string
	flagXPath   string
}

func (c *Command) Synopsis() string {
	return "Upload files through a batch"
}

func (c *Command) Help() string {
	return `Usage: nxctl upload [options] <file> [file...]

  Uploads files into a new batch and prints the batch id. With -attach
  the batch is attached to a document's blob property afterwards.` +
		c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("upload", flag.ExitOnError))
	c.clientFlags.Register(f.FlagSet)
	f.BoolVar(&c.flagChunked, "chunked", false, "Upload in chunks (for large files).")
	f.StringVar(&c.flagAttach, "attach", "", "Attach the uploaded blob to this document uid.")
	f.StringVar(&c.flagXPath, "xpath", "file:content", "Blob property to attach to.")
	return f
}

func (c *Command) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if flags.NArg() == 0 {
		c.UI.Error("at least one file is required")
		return 1
	}

	client, err := c.clientFlags.Client(c.Log)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	ctx := context.Background()
	batch, err := client.Uploads.Batch(ctx)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error creating batch: %v", err))
		return 1
	}

	var last *nuxeo.Blob
	for _, path := range flags.Args() {
		blob, err := nuxeo.NewFileBlob(path)
		if err != nil {
			c.UI.Error(err.Error())
			return 1
		}

		if c.flagChunked {
			last, err = batch.UploadChunked(ctx, blob, 0)
		} else {
			last, err = batch.Upload(ctx, blob)
		}
		if err != nil {
			c.UI.Error(fmt.Sprintf("error uploading %s: %v", path, err))
			return 1
		}
		c.UI.Output(fmt.Sprintf("uploaded %s (%d bytes) as index %d",
			last.Name, last.UploadedSize, last.FileIdx))
	}

	c.UI.Output(fmt.Sprintf("batch %s", batch.BatchID))

	if c.flagAttach != "" && last != nil {
		doc, err := client.Documents.Get(ctx, c.flagAttach)
		if err != nil {
			c.UI.Error(fmt.Sprintf("error fetching document %s: %v", c.flagAttach, err))
			return 1
		}
		doc.SetProperty(c.flagXPath, last.AsBatchRef())
		if err := doc.Save(ctx); err != nil {
			c.UI.Error(fmt.Sprintf("error attaching blob: %v", err))
			return 1
		}
		c.UI.Output(fmt.Sprintf("attached to %s at %s", doc.UID, c.flagXPath))
	}
	return 0
}

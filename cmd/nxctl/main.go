package main

import (
	"os"

	"github.com/nuxeo/nuxeo-go-client/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}

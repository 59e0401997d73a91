package main

import (
	"os"

	"github.com/joseph-ayodele/invoice-extractor/cmd/invoicex/cmd"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(cmd.Execute(cmd.BuildInfo{Version: version, Commit: commit, Date: date}))
}

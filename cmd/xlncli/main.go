package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli"
)

const defaultDataDirname = "data"

var defaultDataDir = func() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".xlnd", defaultDataDirname)
	}
	return filepath.Join(dir, ".xlnd", defaultDataDirname)
}()

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[xlncli] %v\n", err)
	os.Exit(1)
}

func main() {
	app := cli.NewApp()
	app.Name = "xlncli"
	app.Version = "0.1"
	app.Usage = "offline control tool for the xln runtime, driving it in-process rather than over RPC"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "datadir",
			Value: defaultDataDir,
			Usage: "path to the xlnd data directory (server-frame log, replica/account checkpoints)",
		},
	}
	app.Commands = []cli.Command{
		statusCommand,
		showFrameCommand,
		genesisCommand,
		payCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

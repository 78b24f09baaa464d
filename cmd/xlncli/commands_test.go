package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func newTestApp() *cli.App {
	app := cli.NewApp()
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "datadir"},
	}
	app.Commands = []cli.Command{statusCommand, showFrameCommand, genesisCommand, payCommand}
	app.Writer = &bytes.Buffer{}
	return app
}

func TestGenesisThenPayThenStatus(t *testing.T) {
	dir := t.TempDir()
	app := newTestApp()

	entityHex := "01"
	peerHex := "02"

	require.NoError(t, app.Run([]string{"xlncli", "--datadir", dir, "genesis", entityHex}))
	require.NoError(t, app.Run([]string{"xlncli", "--datadir", dir, "pay", "--signeridx", "0", entityHex, peerHex, "5"}))
	require.NoError(t, app.Run([]string{"xlncli", "--datadir", dir, "status"}))
	require.NoError(t, app.Run([]string{"xlncli", "--datadir", dir, "showframe", "1"}))
}

func TestParseEntityIDLeftPadsShortHex(t *testing.T) {
	id, err := parseEntityID("01")
	require.NoError(t, err)
	require.Equal(t, byte(0x01), id[31])
	for i := 0; i < 31; i++ {
		require.Zero(t, id[i])
	}
}

func TestParseEntityIDRejectsOversizedInput(t *testing.T) {
	long := make([]byte, 66)
	for i := range long {
		long[i] = 'a'
	}
	_, err := parseEntityID(string(long))
	require.Error(t, err)
}

func TestParseEntityIDRejectsInvalidHex(t *testing.T) {
	_, err := parseEntityID("zz")
	require.Error(t, err)
}

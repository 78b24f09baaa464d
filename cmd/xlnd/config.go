package main

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "xlnd.conf"
	defaultDataDirname    = "data"
	defaultLogLevel       = "info"
	defaultRPCPort        = 10_009
)

var (
	defaultHomeDir    = xlndHomeDir()
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
)

func xlndHomeDir() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, ".xlnd")
}

// config mirrors lnd's config.go shape: a flat struct of `long`-tagged
// fields parsed first from an optional --configfile INI file and then
// overridden by the actual command-line flags (spec §6, SPEC_FULL.md A.3).
type config struct {
	ConfigFile string `long:"configfile" description:"Path to configuration file"`
	DataDir    string `long:"datadir" description:"The directory to store the server-frame log, replica checkpoints, and account checkpoints"`
	DebugLevel string `long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- or <subsystem>=<level>,<subsystem2>=<level2> pairs"`
	RPCPort    int    `long:"rpcport" description:"RPC port number; xlnd logs it at startup and opens no listener on it"`

	SignerIdx uint32 `long:"signeridx" description:"The validator index this node signs entity frames under"`
}

// defaultConfig returns a config populated with the same defaults lnd's
// loadConfig seeds before flag/INI parsing overrides them.
func defaultConfig() config {
	return config{
		ConfigFile: defaultConfigFile,
		DataDir:    defaultDataDir,
		DebugLevel: defaultLogLevel,
		RPCPort:    defaultRPCPort,
	}
}

// loadConfig parses the command line and, if present, an INI configfile,
// the same two-pass shape as lnd's loadConfig: flags first (to resolve
// --configfile itself), then the INI file, then flags again so explicit
// command-line flags always win.
func loadConfig() (*config, error) {
	preCfg := defaultConfig()
	preParser := flags.NewParser(&preCfg, flags.Default)
	if _, err := preParser.Parse(); err != nil {
		return nil, err
	}

	cfg := preCfg
	if fileExists(preCfg.ConfigFile) {
		parser := flags.NewParser(&cfg, flags.Default)
		if err := flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile); err != nil {
			if _, ok := err.(*os.PathError); !ok {
				return nil, &configError{err}
			}
		}
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, &configError{fmt.Errorf("unable to create data directory: %w", err)}
	}

	setLogLevels(cfg.DebugLevel)

	return &cfg, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// configError wraps a configuration problem so main can map it to the
// ConfigurationError exit code (spec §6, exit code 3) instead of the
// generic failure path.
type configError struct {
	err error
}

func (e *configError) Error() string {
	return e.err.Error()
}

func (e *configError) Unwrap() error {
	return e.err
}

// structc compiles IPC structure definitions and inspects framed
// structure instances.
//
//	structc [global flags] compile -o defs.ipcs a.yaml b.jsonc
//	structc [global flags] describe [NAME...]
//	structc [global flags] new NAME [--set field=value]... [-o file]
//	structc [global flags] dump [--view] FILE
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/rawbytedev/ipcstruct/internal/config"
	"github.com/rawbytedev/ipcstruct/internal/logging"
)

var errUsage = errors.New("usage")

func main() {
	logging.ConfigureRuntime()
	if err := run(os.Args[1:], os.Stdout); err != nil {
		logging.L().Error().Err(err).Msg("structc failed")
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

type globals struct {
	configPath  string
	schemas     []string
	compression string
	logLevel    string
}

func run(args []string, stdout io.Writer) error {
	var g globals
	fs := pflag.NewFlagSet("structc", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.StringVarP(&g.configPath, "config", "c", "", "config file (default ./"+config.DefaultFile+" when present)")
	fs.StringSliceVarP(&g.schemas, "schema", "s", nil, "definition sources, replaces the config list")
	fs.StringVar(&g.compression, "compression", "", "envelope compression: none, zstd or lz4")
	fs.StringVar(&g.logLevel, "log-level", "", "trace, debug, info, warn, error or off")
	fs.Usage = func() { usage(stdout, fs) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if cfg.LogLevel != "" && !logging.SetLevel(cfg.LogLevel) {
		return fmt.Errorf("%w: bad log level %q", errUsage, cfg.LogLevel)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		usage(stdout, fs)
		return errUsage
	}
	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "compile":
		return cmdCompile(cfg, cmdArgs, stdout)
	case "describe":
		return cmdDescribe(cfg, cmdArgs, stdout)
	case "new":
		return cmdNew(cfg, cmdArgs, stdout)
	case "dump":
		return cmdDump(cfg, cmdArgs, stdout)
	case "help":
		usage(stdout, fs)
		return nil
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func loadConfig(g globals) (config.Config, error) {
	cfg := config.Default()
	path := g.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultFile); err == nil {
			path = config.DefaultFile
		}
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if len(g.schemas) > 0 {
		cfg.Schemas = g.schemas
	}
	if g.compression != "" {
		c, err := parseCompression(g.compression)
		if err != nil {
			return cfg, err
		}
		cfg.Compression = c
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	return cfg, nil
}

func usage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(w, `structc compiles structure definitions and inspects framed instances.

Usage:
  structc [flags] compile -o OUT SOURCE...
  structc [flags] describe [NAME...]
  structc [flags] new NAME [--set field=value]... [-o FILE]
  structc [flags] dump [--view] FILE

Flags:
%s`, fs.FlagUsages())
}

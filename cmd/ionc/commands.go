package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"ionkit/common"
	"ionkit/config"
	"ionkit/convert"
	"ionkit/inspect"
	"ionkit/misc"
	"ionkit/state"
)

func catalogFlag() cli.Flag {
	return &cli.StringSliceFlag{Name: "catalog", Aliases: []string{"cat"},
		Usage: "load shared symbol tables from `PATH` (file or directory), may be repeated"}
}

// withHelp appends text to standard command help.
func withHelp(text string) string {
	return cli.CommandHelpTemplate + text
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "inspection and conversion tool for Amazon Ion data",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          beforeCommand,
		After:           afterCommand,
		OnUsageError:    passUsageError,
		ExitErrHandler:  logCommandError,
		CommandNotFound: unknownCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "changes program behavior to help troubleshooting, produces report archive"},
		},
		Commands: []*cli.Command{
			convertCommand(),
			dumpCommand(),
			symbolsCommand(),
			catalogCommand(),
			dumpConfigCommand(),
		},
	}
}

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:         "convert",
		Usage:        "Converts Ion stream(s) between text and binary forms",
		OnUsageError: passUsageError,
		Action:       convert.Run,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to", Value: common.OutputFormatText.String(),
				Usage: "output `FORMAT` (" + strings.Join(common.OutputFormatNames(), ", ") + "), configuration value when absent"},
			&cli.BoolFlag{Name: "gzip", Aliases: []string{"z"}, Usage: "compress output files"},
			&cli.BoolFlag{Name: "nodirs", Aliases: []string{"nd"}, Usage: "when producing output do not keep input directory structure"},
			&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "continue even if destination exits, overwrite files"},
			&cli.StringFlag{Name: "force-zip-cp",
				Usage: "Force `ENCODING` for ALL non UTF-8 file names in processed archives (see IANA.org for character set names)"},
			catalogFlag(),
		},
		ArgsUsage: "SOURCE... [DESTINATION]",
		CustomHelpTemplate: withHelp(`
SOURCE:
    Ion stream(s) to process, text or binary, possibly gzipped:
        file: "[path_to_file]file.ion"
        directory: "[path_to_directory]directory" - every stream under directory, recursively (symbolic links are not followed)
        stream in archive: "[path_to_archive]archive.zip[path_in_archive]/file.10n"
        archive part: "[path_to_archive]archive.zip[path_in_archive]" - every stream under archive path

    Walking directories and archives picks files with .ion and .10n extensions,
    optionally followed by .gz, and zip archives in directories. Archives
    inside archives are not processed.

DESTINATION:
    directory for results, names and extensions are derived from sources and format
    if absent - current working directory
`),
	}
}

func dumpCommand() *cli.Command {
	return &cli.Command{
		Name:         "dump",
		Usage:        "Prints top-level values of Ion stream as text, one per line",
		OnUsageError: passUsageError,
		Action:       inspect.RunDump,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "system", Aliases: []string{"s"}, Usage: "show version markers and local symbol tables"},
			&cli.BoolFlag{Name: "positions", Aliases: []string{"p"}, Usage: "prefix values with their offsets (binary input only)"},
			&cli.BoolFlag{Name: "tree", Aliases: []string{"t"}, Usage: "show values as indented trees with their types"},
			catalogFlag(),
		},
		ArgsUsage: "[SOURCE] [DESTINATION]",
		CustomHelpTemplate: withHelp(`
SOURCE:
    Ion stream, text or binary, possibly gzipped; if absent or "-" - STDIN

DESTINATION:
    file name to write result to, if absent - STDOUT
`),
	}
}

func symbolsCommand() *cli.Command {
	return &cli.Command{
		Name:         "symbols",
		Usage:        "Prints local symbol tables Ion stream defines",
		OnUsageError: passUsageError,
		Action:       inspect.RunSymbols,
		Flags:        []cli.Flag{catalogFlag()},
		ArgsUsage:    "[SOURCE] [DESTINATION]",
	}
}

func catalogCommand() *cli.Command {
	return &cli.Command{
		Name:         "catalog",
		Usage:        "Loads shared symbol tables and lists them",
		OnUsageError: passUsageError,
		Action:       inspect.RunCatalog,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "symbols", Usage: "list symbols of every table"},
			catalogFlag(),
		},
		ArgsUsage: "[PATH...]",
		CustomHelpTemplate: withHelp(`
PATH:
    file or directory with $ion_shared_symbol_table values, tables from
    configuration are always included
`),
	}
}

func dumpConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "dumpconfig",
		Usage: "Dumps either default or actual configuration (YAML)",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
		},
		OnUsageError: passUsageError,
		Action:       outputConfiguration,
		ArgsUsage:    "[DESTINATION]",
		CustomHelpTemplate: withHelp(`
DESTINATION:
    file name to write configuration to, if absent - STDOUT

Without --default the active configuration is written: embedded defaults
combined with values from configuration file.
`),
	}
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	kind, data := "actual", []byte(nil)
	if cmd.Bool("default") {
		kind = "default"
		data, err = config.Prepare()
	} else {
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	fname := cmd.Args().Get(0)
	if len(fname) == 0 {
		env.Log.Info("Writing configuration", zap.String("state", kind), zap.String("file", "STDOUT"))
		_, err = os.Stdout.Write(data)
	} else {
		env.Log.Info("Writing configuration", zap.String("state", kind), zap.String("file", fname))
		err = os.WriteFile(fname, data, 0644)
	}
	if err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}

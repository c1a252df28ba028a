package inspect

import (
	"context"
	"fmt"
	"io"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"ionkit/state"
)

// input reads SOURCE argument, "-" or no argument means STDIN.
func input(cmd *cli.Command) ([]byte, string, error) {
	src := cmd.Args().Get(0)
	if len(src) == 0 || src == "-" {
		data, err := io.ReadAll(os.Stdin)
		return data, "STDIN", err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, src, fmt.Errorf("unable to read source: %w", err)
	}
	return data, src, nil
}

// output opens DESTINATION argument, STDOUT when absent.
func output(cmd *cli.Command, pos int) (io.Writer, func() error, error) {
	dst := cmd.Args().Get(pos)
	if len(dst) == 0 {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(dst)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create destination file '%s': %w", dst, err)
	}
	return f, f.Close, nil
}

func prepare(ctx context.Context, cmd *cli.Command, name string) (*state.LocalEnv, *zap.Logger, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	env := state.EnvFromContext(ctx)
	log := env.Log.Named(name)
	if err := env.LoadCatalog(cmd.StringSlice("catalog")...); err != nil {
		return nil, nil, fmt.Errorf("unable to load catalog: %w", err)
	}
	return env, log, nil
}

// RunDump is "dump" command action.
func RunDump(ctx context.Context, cmd *cli.Command) (err error) {
	env, log, err := prepare(ctx, cmd, "dump")
	if err != nil {
		return err
	}
	data, src, err := input(cmd)
	if err != nil {
		return err
	}
	out, closeOut, err := output(cmd, 1)
	if err != nil {
		return err
	}
	defer func() {
		if e := closeOut(); err == nil {
			err = e
		}
	}()

	n, err := Dump(data, out, DumpOptions{
		System:    cmd.Bool("system"),
		Positions: cmd.Bool("positions"),
		Tree:      cmd.Bool("tree"),
		Catalog:   env.Catalog,
	}, log)
	if err != nil {
		return fmt.Errorf("unable to dump '%s' after %d values: %w", src, n, err)
	}
	log.Debug("Dump completed", zap.String("source", src), zap.Int("values", n))
	return nil
}

// RunSymbols is "symbols" command action.
func RunSymbols(ctx context.Context, cmd *cli.Command) (err error) {
	env, log, err := prepare(ctx, cmd, "symbols")
	if err != nil {
		return err
	}
	data, src, err := input(cmd)
	if err != nil {
		return err
	}
	out, closeOut, err := output(cmd, 1)
	if err != nil {
		return err
	}
	defer func() {
		if e := closeOut(); err == nil {
			err = e
		}
	}()

	n, err := Symbols(data, out, env.Catalog, log)
	if err != nil {
		return fmt.Errorf("unable to read symbol tables of '%s': %w", src, err)
	}
	if n == 0 {
		log.Info("Stream does not define local symbol tables", zap.String("source", src))
	}
	return nil
}

// RunCatalog is "catalog" command action: it loads shared tables from
// configured and requested locations and lists them.
func RunCatalog(ctx context.Context, cmd *cli.Command) (err error) {
	env, log, err := prepare(ctx, cmd, "catalog")
	if err != nil {
		return err
	}
	if err := env.LoadCatalog(cmd.Args().Slice()...); err != nil {
		return fmt.Errorf("unable to load catalog: %w", err)
	}
	log.Info("Catalog", zap.Int("tables", env.Catalog.Len()))
	return ListCatalog(os.Stdout, env.Catalog, cmd.Bool("symbols"))
}

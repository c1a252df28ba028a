package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/ianaindex"

	"ionkit/archive"
	"ionkit/common"
	"ionkit/state"
)

// job is a single stream to convert. src is path relative to the walked
// root, output keeps its directory structure.
type job struct {
	src    string
	origin string
	open   func() (io.ReadCloser, error)
}

// Run is "convert" command action.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	args := cmd.Args().Slice()
	if len(args) == 0 {
		return errors.New("no input source has been specified")
	}
	var dst string
	if len(args) > 1 {
		dst, args = args[len(args)-1], args[:len(args)-1]
	} else if dst, err = os.Getwd(); err != nil {
		return fmt.Errorf("unable to get working directory: %w", err)
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}

	if err := env.LoadCatalog(cmd.StringSlice("catalog")...); err != nil {
		return fmt.Errorf("unable to load catalog: %w", err)
	}

	out := env.Cfg.Output
	if cmd.IsSet("to") {
		if out.Format, err = common.ParseOutputFormat(cmd.String("to")); err != nil {
			log.Warn("Unknown output format requested, switching to text", zap.Error(err))
			out.Format = common.OutputFormatText
		}
	}
	out.Gzip = out.Gzip || cmd.Bool("gzip")
	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")

	// zip does not define file name encoding, old archives may need code
	// page forced
	if cp := cmd.String("force-zip-cp"); len(cp) > 0 {
		if env.CodePage, err = ianaindex.IANA.Encoding(cp); err != nil || env.CodePage == nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	var jobs []job
	for _, src := range args {
		found, err := collect(ctx, src, env, log)
		if err != nil {
			return err
		}
		jobs = append(jobs, found...)
	}

	log.Info("Processing starting", zap.Int("streams", len(jobs)), zap.String("destination", dst), zap.Stringer("format", out.Format))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	opts := Options{
		Format:        out.Format,
		Gzip:          out.Gzip,
		Indent:        out.Indent,
		IVM:           out.IVM,
		CompactFloats: out.CompactFloats,
		Catalog:       env.Catalog,
	}
	namer := pathNamer{dst: dst, format: out.Format, gzip: out.Gzip, noDirs: env.NoDirs, transliterate: out.FileNameTransliterate}
	return process(ctx, jobs, namer, opts, out.Workers, env, log)
}

// process converts jobs concurrently. Failure of a single stream does not
// stop others.
func process(ctx context.Context, jobs []job, namer pathNamer, opts Options, workers int, env *state.LocalEnv, log *zap.Logger) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var failed atomic.Int32
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := processStream(j, namer.outputPath(j.src), opts, env, log); err != nil {
				failed.Add(1)
				log.Error("Unable to process stream", zap.String("from", j.origin), zap.Int("job", i), zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d streams were not converted", n, len(jobs))
	}
	return nil
}

// collect finds streams under src: a file, a directory walked recursively, an
// archive or a path inside archive like "data.zip/dir/file.ion".
func collect(ctx context.Context, src string, env *state.LocalEnv, log *zap.Logger) ([]job, error) {
	src, err := filepath.Abs(src)
	if err != nil {
		return nil, err
	}
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// probably path inside archive
			continue
		}
		if fi.IsDir() {
			if len(tail) != 0 {
				return nil, fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			return collectDir(ctx, head, env, log)
		}
		if !fi.Mode().IsRegular() {
			return nil, fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		isArc, err := archive.IsArchive(head)
		if err != nil {
			return nil, fmt.Errorf("unable to check archive type: %w", err)
		}
		if isArc {
			inner := filepath.ToSlash(strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator)))
			return collectArchive(head, inner, "", env, log)
		}
		if len(tail) != 0 {
			return nil, fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}
		return []job{fileJob(head, filepath.Base(head))}, nil
	}
	return nil, fmt.Errorf("input source was not found (%s)", src)
}

func fileJob(path, rel string) job {
	return job{src: rel, origin: path, open: func() (io.ReadCloser, error) { return os.Open(path) }}
}

// collectDir picks Ion files and archives under dir.
func collectDir(ctx context.Context, dir string, env *state.LocalEnv, log *zap.Logger) ([]job, error) {
	var jobs []job
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if isIonName(path) {
			jobs = append(jobs, fileJob(path, rel))
			return nil
		}
		isArc, err := archive.IsArchive(path)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if !isArc {
			log.Debug("Skipping file, not recognized as Ion stream or archive", zap.String("file", path))
			return nil
		}
		found, err := collectArchive(path, "", filepath.Dir(rel), env, log)
		if err != nil {
			log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
			return nil
		}
		jobs = append(jobs, found...)
		return nil
	})
	if err == nil && len(jobs) == 0 {
		log.Debug("Nothing to process", zap.String("dir", dir))
	}
	return jobs, err
}

// collectArchive picks Ion entries of archive under prefix. Output of entry
// goes to pathOut joined with its path inside archive.
func collectArchive(path, prefix, pathOut string, env *state.LocalEnv, log *zap.Logger) ([]job, error) {
	var jobs []job
	err := archive.Walk(path, prefix, func(arc string, e archive.Entry) error {
		// explicitly named entry is taken whatever its name is
		if e.Name != prefix && !isIonName(e.Name) {
			log.Debug("Skipping file in archive, not recognized as Ion stream", zap.String("archive", arc), zap.String("file", e.Name))
			return nil
		}
		name := e.Name
		if cp := env.CodePage; cp != nil && e.NonUTF8 {
			if n, err := cp.NewDecoder().String(name); err == nil {
				name = n
			} else {
				log.Warn("Unable to convert archive name from specified encoding", zap.String("path", name), zap.Error(err))
			}
		}
		jobs = append(jobs, job{
			src:    filepath.Join(pathOut, filepath.FromSlash(name)),
			origin: arc + ":" + e.Name,
			open:   e.Open,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to process archive: %w", err)
	}
	if len(jobs) == 0 {
		log.Debug("Nothing to process", zap.String("archive", path))
	}
	return jobs, nil
}

// createOutput creates destination file, existing file is an error unless
// overwrite is requested.
func createOutput(name string, overwrite bool, log *zap.Logger) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return nil, fmt.Errorf("unable to create output directory: %w", err)
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_EXCL
	if overwrite {
		if _, err := os.Stat(name); err == nil {
			log.Warn("Overwriting existing file", zap.String("file", name))
		}
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	f, err := os.OpenFile(name, flags, 0644)
	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("output file already exists: %s", name)
	}
	return f, err
}

// processStream converts a single stream into outputName.
func processStream(j job, outputName string, opts Options, env *state.LocalEnv, log *zap.Logger) (rerr error) {
	log.Debug("Conversion starting", zap.String("from", j.origin))
	var written int64
	defer func(start time.Time) {
		if r := recover(); r != nil {
			log.Error("Conversion ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("conversion panic: %v", r)
		} else if rerr == nil {
			log.Info("Conversion completed", zap.String("from", j.origin), zap.String("to", outputName),
				zap.String("size", humanize.Bytes(uint64(written))), zap.Duration("elapsed", time.Since(start)))
		}
	}(time.Now())

	in, err := j.open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := createOutput(outputName, env.Overwrite, log)
	if err != nil {
		return err
	}
	written, err = Stream(in, out, opts, log.With(zap.String("from", j.origin)))
	if err = multierr.Append(err, out.Close()); err != nil {
		return multierr.Append(err, os.Remove(outputName))
	}

	if env.Rpt != nil {
		env.Rpt.Store("result-"+env.RunID.String()+"/"+filepath.ToSlash(j.src)+opts.Format.Ext(), outputName)
	}
	return nil
}

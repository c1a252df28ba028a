// Package state defines shared program state.
package state

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"ionkit/catalog"
	"ionkit/config"
	"ionkit/symtab"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// RunID tells runs apart in logs and reports
	RunID uuid.UUID
	// Catalog resolves imports of every stream program reads
	Catalog *symtab.MemoryCatalog

	// used by convert subcommand
	NoDirs    bool
	Overwrite bool
	CodePage  encoding.Encoding

	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// LoadCatalog registers shared symbol tables from files and directories.
func (e *LocalEnv) LoadCatalog(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	log := e.Log
	if log == nil {
		log = zap.NewNop()
	}
	l := catalog.NewLoader(e.Catalog, log.Named("catalog"))
	err := l.LoadPaths(paths...)
	log.Debug("Catalog loaded", zap.Strings("paths", paths), zap.Int("tables", e.Catalog.Len()))
	return err
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}

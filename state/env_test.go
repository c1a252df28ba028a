package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func testLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
}

func TestContextWithEnv(t *testing.T) {
	env := EnvFromContext(ContextWithEnv(context.Background()))
	if env.start.IsZero() {
		t.Error("Environment start time not set")
	}
	if env.RunID == uuid.Nil {
		t.Error("RunID not set")
	}
	if env.Catalog == nil || env.Catalog.Len() != 0 {
		t.Error("Catalog must be empty and ready")
	}

	other := EnvFromContext(ContextWithEnv(context.Background()))
	if other.RunID == env.RunID {
		t.Errorf("RunID repeats: %v", env.RunID)
	}
}

func TestEnvFromContextPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic when env not in context")
		}
	}()
	EnvFromContext(context.Background())
}

func TestLocalEnv_Uptime(t *testing.T) {
	env := &LocalEnv{start: time.Now()}
	time.Sleep(10 * time.Millisecond)
	if uptime := env.Uptime(); uptime < 10*time.Millisecond {
		t.Errorf("Uptime() = %v, expected at least 10ms", uptime)
	}
}

func TestLocalEnv_RedirectStdLog(t *testing.T) {
	t.Run("with logger", func(t *testing.T) {
		env := &LocalEnv{Log: testLogger(t)}
		for i := range 3 {
			env.RedirectStdLog()
			if env.restoreStdLog == nil {
				t.Errorf("Iteration %d: restoreStdLog not set", i)
			}
			env.RestoreStdLog()
		}
	})
	t.Run("without logger", func(t *testing.T) {
		env := &LocalEnv{}
		env.RedirectStdLog()
		if env.restoreStdLog != nil {
			t.Error("Expected restoreStdLog to remain nil")
		}
		env.RestoreStdLog()
	})
}

func TestLocalEnv_LoadCatalog(t *testing.T) {
	env := EnvFromContext(ContextWithEnv(context.Background()))
	env.Log = testLogger(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "tables.ion")
	if err := os.WriteFile(path, []byte(`$ion_shared_symbol_table::{name:"t", version:1, symbols:["a"]}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := env.LoadCatalog(); err != nil {
		t.Fatalf("LoadCatalog() without paths: %v", err)
	}
	if err := env.LoadCatalog(dir); err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if env.Catalog.Find("t", 1) == nil {
		t.Error("table t@1 was not registered")
	}
	if err := env.LoadCatalog(filepath.Join(dir, "missing")); err == nil {
		t.Error("Expected error for missing path")
	}
}

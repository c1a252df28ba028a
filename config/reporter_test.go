package config

import (
	"archive/zip"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
)

func TestReport(t *testing.T) {
	dir := t.TempDir()
	conf := ReporterConfig{Destination: filepath.Join(dir, "report.zip")}
	r, err := conf.Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	stored := filepath.Join(dir, "stored.txt")
	if err := os.WriteFile(stored, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(dir, "src")
	if err := os.MkdirAll(filepath.Join(src, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "sub", "a.ion"), []byte("1"), 0644); err != nil {
		t.Fatal(err)
	}

	r.Store("stored", stored)
	if err := r.StoreCopy("copy", src); err != nil {
		t.Fatalf("StoreCopy() error = %v", err)
	}
	var wg sync.WaitGroup
	for _, name := range []string{"d1", "d2", "d3"} {
		wg.Go(func() { r.StoreData(name, []byte(name)) })
	}
	wg.Wait()

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	zr, err := zip.OpenReader(r.Name())
	if err != nil {
		t.Fatalf("unable to open report: %v", err)
	}
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	want := []string{"MANIFEST", "copy/sub/a.ion", "d1", "d2", "d3", "stored"}
	if !slices.Equal(names, want) {
		t.Errorf("got %v want %v", names, want)
	}
	if _, err := os.Stat(stored); err != nil {
		t.Errorf("stored file should stay: %v", err)
	}
}

func TestReportNil(t *testing.T) {
	var r *Report
	r.Store("a", "b")
	r.StoreData("a", nil)
	if err := r.StoreCopy("a", "b"); err != nil {
		t.Errorf("StoreCopy on nil report: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil report: %v", err)
	}
	if r.Name() != "" {
		t.Errorf("Name on nil report: %q", r.Name())
	}
}

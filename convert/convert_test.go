package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap/zaptest"

	"ionkit/common"
	"ionkit/config"
	"ionkit/dom"
	"ionkit/reader"
	"ionkit/state"
)

const sample = `a::{b:[1, 2.50, "s", sym, 2020-01-01T], c:(x '+' y), d:null.int, e:{{aGk=}}} "second"`

func testEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration: %v", err)
	}
	env.Cfg = cfg
	env.Log = zaptest.NewLogger(t)
	return ctx, env
}

func sameValues(t *testing.T, got []byte, want string) {
	t.Helper()
	g, err := dom.Parse(got)
	if err != nil {
		t.Fatalf("Parse result: %v", err)
	}
	w, err := dom.Parse([]byte(want))
	if err != nil {
		t.Fatalf("Parse expected: %v", err)
	}
	if !dom.Equal(g, w) {
		t.Fatalf("got %v want %v", g, w)
	}
}

func TestStream(t *testing.T) {
	cases := []struct {
		name string
		opts Options
	}{
		{"text", Options{Format: common.OutputFormatText}},
		{"pretty", Options{Format: common.OutputFormatPretty}},
		{"binary", Options{Format: common.OutputFormatBinary}},
		{"binary compact gzip", Options{Format: common.OutputFormatBinary, CompactFloats: true, Gzip: true}},
		{"text ivm gzip", Options{Format: common.OutputFormatText, IVM: true, Gzip: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			n, err := Stream(strings.NewReader(sample), &out, tc.opts, zaptest.NewLogger(t))
			if err != nil {
				t.Fatalf("Stream: %v", err)
			}
			if n != int64(out.Len()) {
				t.Fatalf("written: got %d want %d", n, out.Len())
			}
			sameValues(t, out.Bytes(), sample)

			// and back to text
			var back bytes.Buffer
			if _, err := Stream(bytes.NewReader(out.Bytes()), &back, Options{}, nil); err != nil {
				t.Fatalf("Stream back: %v", err)
			}
			sameValues(t, back.Bytes(), sample)
		})
	}
}

func TestStreamError(t *testing.T) {
	var out bytes.Buffer
	if _, err := Stream(strings.NewReader("[1, 2"), &out, Options{}, nil); err == nil {
		t.Fatalf("expected error for truncated input")
	}
}

func TestStreamKeepsImportedIDs(t *testing.T) {
	// no catalog, so imported IDs have no text
	const src = `$ion_symbol_table::{imports:[{name:"m",version:1,max_id:2}]} $10 a::$11`
	for _, format := range []common.OutputFormat{common.OutputFormatText, common.OutputFormatPretty, common.OutputFormatBinary} {
		t.Run(format.String(), func(t *testing.T) {
			var out bytes.Buffer
			if _, err := Stream(strings.NewReader(src), &out, Options{Format: format}, zaptest.NewLogger(t)); err != nil {
				t.Fatalf("Stream: %v", err)
			}
			r, err := reader.NewBytes(out.Bytes())
			if err != nil {
				t.Fatalf("NewBytes: %v", err)
			}
			var got []int64
			for r.Next() {
				tok, err := r.SymbolValue()
				if err != nil {
					t.Fatalf("SymbolValue: %v", err)
				}
				if tok.HasText() {
					t.Fatalf("symbol: got text %q want none", *tok.Text)
				}
				got = append(got, tok.SID)
			}
			if err := r.Err(); err != nil {
				t.Fatalf("reading result: %v", err)
			}
			if !slices.Equal(got, []int64{10, 11}) {
				t.Fatalf("symbol IDs: got %v want [10 11]", got)
			}
		})
	}
}

func TestStreamImportsChange(t *testing.T) {
	const src = `$ion_symbol_table::{imports:[{name:"m",version:1,max_id:2}]} $10 ` +
		`$ion_symbol_table::{imports:[{name:"n",version:1,max_id:1}]} $10`
	var out bytes.Buffer
	if _, err := Stream(strings.NewReader(src), &out, Options{}, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("Stream: %v", err)
	}
	r, err := reader.NewBytes(out.Bytes())
	if err != nil {
		t.Fatalf("NewBytes: %v", err)
	}
	var names []string
	for r.Next() {
		if _, err := r.SymbolValue(); err != nil {
			t.Fatalf("SymbolValue: %v", err)
		}
		for _, imp := range r.SymbolTable().Imports() {
			names = append(names, imp.Name())
		}
	}
	if err := r.Err(); err != nil {
		t.Fatalf("reading result: %v", err)
	}
	if !slices.Equal(names, []string{"m", "n"}) {
		t.Fatalf("imports per value: got %v want [m n]", names)
	}
}

func TestOutputPath(t *testing.T) {
	dst := filepath.FromSlash("/out")
	cases := []struct {
		name  string
		namer pathNamer
		src   string
		want  string
	}{
		{"keep dirs", pathNamer{dst: dst}, "a/b/data.10n", "/out/a/b/data.ion"},
		{"no dirs", pathNamer{dst: dst, noDirs: true}, "a/b/data.ion", "/out/data.ion"},
		{"binary gzip", pathNamer{dst: dst, format: common.OutputFormatBinary, gzip: true}, "data.ion.gz", "/out/data.10n.gz"},
		{"unknown ext", pathNamer{dst: dst}, "data.txt", "/out/data.txt.ion"},
		{"transliterate", pathNamer{dst: dst, transliterate: true}, "My Data/Some File.ion", "/out/my-data/some-file.ion"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.namer.outputPath(filepath.FromSlash(tc.src)); got != filepath.FromSlash(tc.want) {
				t.Fatalf("got %s want %s", got, filepath.FromSlash(tc.want))
			}
		})
	}
}

func TestIsIonName(t *testing.T) {
	for name, want := range map[string]bool{
		"a.ion": true, "a.10n": true, "a.ION": true, "a.ion.gz": true,
		"a.gz": false, "a.txt": false, "ion": false,
	} {
		if got := isIonName(name); got != want {
			t.Errorf("isIonName(%q): got %v want %v", name, got, want)
		}
	}
}

func makeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	write := func(rel, content string) {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("one.ion", sample)
	write("sub/two.ion", "2")
	write("sub/notes.txt", "not ion")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, n := range []string{"in/three.ion", "in/readme.txt"} {
		fw, err := zw.Create(n)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte("3")); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	write("sub/pack.zip", buf.String())
	return root
}

func jobNames(jobs []job) []string {
	var res []string
	for _, j := range jobs {
		res = append(res, filepath.ToSlash(j.src))
	}
	slices.Sort(res)
	return res
}

func TestCollect(t *testing.T) {
	ctx, env := testEnv(t)
	root := makeTree(t)

	cases := []struct {
		name string
		src  string
		want []string
	}{
		{"directory", root, []string{"one.ion", "sub/in/three.ion", "sub/two.ion"}},
		{"file", filepath.Join(root, "sub", "notes.txt"), []string{"notes.txt"}},
		{"archive", filepath.Join(root, "sub", "pack.zip"), []string{"in/three.ion"}},
		{"inside archive", filepath.Join(root, "sub", "pack.zip", "in", "readme.txt"), []string{"in/readme.txt"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			jobs, err := collect(ctx, tc.src, env, env.Log)
			if err != nil {
				t.Fatalf("collect: %v", err)
			}
			if got := jobNames(jobs); !slices.Equal(got, tc.want) {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}

	if _, err := collect(ctx, filepath.Join(root, "missing", "x.ion"), env, env.Log); err == nil {
		t.Fatalf("expected error for missing source")
	}
}

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:   "convert",
		Action: Run,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to"},
			&cli.BoolFlag{Name: "gzip"},
			&cli.BoolFlag{Name: "nodirs"},
			&cli.BoolFlag{Name: "overwrite"},
			&cli.StringFlag{Name: "force-zip-cp"},
			&cli.StringSliceFlag{Name: "catalog"},
		},
	}
}

func TestRun(t *testing.T) {
	ctx, _ := testEnv(t)
	root := makeTree(t)
	dst := t.TempDir()

	if err := convertCommand().Run(ctx, []string{"convert", "--to", "binary", root, dst}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, rel := range []string{"one.10n", "sub/two.10n", "sub/in/three.10n"} {
		if _, err := os.Stat(filepath.Join(dst, filepath.FromSlash(rel))); err != nil {
			t.Errorf("missing output %s: %v", rel, err)
		}
	}
	data, err := os.ReadFile(filepath.Join(dst, "one.10n"))
	if err != nil {
		t.Fatal(err)
	}
	sameValues(t, data, sample)

	// outputs exist now
	err = convertCommand().Run(ctx, []string{"convert", "--to", "binary", root, dst})
	if err == nil || !strings.Contains(err.Error(), "3 of 3") {
		t.Fatalf("got %v want all conversions to fail", err)
	}
	if err := convertCommand().Run(ctx, []string{"convert", "--to", "binary", "--overwrite", root, dst}); err != nil {
		t.Fatalf("Run with overwrite: %v", err)
	}
}

func TestRunBrokenInput(t *testing.T) {
	ctx, _ := testEnv(t)
	src := filepath.Join(t.TempDir(), "broken.ion")
	if err := os.WriteFile(src, []byte("{a:"), 0644); err != nil {
		t.Fatal(err)
	}
	dst := t.TempDir()
	if err := convertCommand().Run(ctx, []string{"convert", src, dst}); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := os.Stat(filepath.Join(dst, "broken.ion")); !os.IsNotExist(err) {
		t.Fatalf("partial output left behind: %v", err)
	}
}

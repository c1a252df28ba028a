package convert

import (
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"

	"ionkit/common"
	"ionkit/config"
)

var ionExts = []string{".ion", ".10n"}

// trimIonExt strips Ion extension, optionally followed by ".gz", and reports
// if name had one.
func trimIonExt(name string) (string, bool) {
	base := name
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".gz") {
		base = strings.TrimSuffix(base, ext)
	}
	ext := filepath.Ext(base)
	for _, e := range ionExts {
		if strings.EqualFold(ext, e) {
			return strings.TrimSuffix(base, ext), true
		}
	}
	return name, false
}

// isIonName reports names of files directory and archive walks pick up.
func isIonName(name string) bool {
	_, ok := trimIonExt(name)
	return ok
}

// pathNamer builds output file names.
type pathNamer struct {
	dst           string
	format        common.OutputFormat
	gzip          bool
	noDirs        bool
	transliterate bool
}

// outputPath returns destination for source which path relative to the
// walked root is src. Directory structure of the source is kept unless
// noDirs is set.
func (p pathNamer) outputPath(src string) string {
	dir := p.dst
	if !p.noDirs {
		for _, seg := range strings.Split(filepath.ToSlash(filepath.Dir(src)), "/") {
			if seg == "." || seg == "" {
				continue
			}
			dir = filepath.Join(dir, p.clean(seg))
		}
	}
	base, _ := trimIonExt(filepath.Base(src))
	name := p.clean(base) + p.format.Ext()
	if p.gzip {
		name += ".gz"
	}
	return filepath.Join(dir, name)
}

func (p pathNamer) clean(segment string) string {
	if p.transliterate {
		segment = slug.Make(segment)
	}
	return config.CleanFileName(segment)
}

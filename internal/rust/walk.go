package rust

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// ParsedFile pairs a parsed AST with the path and raw source it came from.
// Source is kept so downstream consumers can slice snippets out of it.
type ParsedFile struct {
	Path   string
	AST    *File
	Source string
}

// ParseFile reads and parses a single source file.
func ParseFile(path string) (*ParsedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	src := string(data)
	ast, err := Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &ParsedFile{Path: path, AST: ast, Source: src}, nil
}

// Walk parses every .rs file under root (root itself may be a file). Files
// that fail to parse are logged and skipped; the walk only errors when the
// filesystem itself does.
func Walk(root string, log hclog.Logger) ([]*ParsedFile, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		pf, err := ParseFile(root)
		if err != nil {
			return nil, err
		}
		return []*ParsedFile{pf}, nil
	}

	var files []*ParsedFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if name == "target" || name == "node_modules" || strings.HasPrefix(name, ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".rs") {
			return nil
		}
		pf, perr := ParseFile(path)
		if perr != nil {
			log.Warn("skipping file", "path", path, "error", perr)
			return nil
		}
		log.Debug("parsed file", "path", path, "items", len(pf.AST.Items))
		files = append(files, pf)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

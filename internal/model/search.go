package model

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/bulletx/internal/engine"
)

// SearchPath is an ordered list of directories tried for relative names.
type SearchPath []string

// FindFile returns name if it is an existing file, otherwise the first
// directory in p that holds it. Absolute names are never searched.
func (p SearchPath) FindFile(name string) (string, error) {
	if isFile(name) {
		return name, nil
	}
	if !filepath.IsAbs(name) {
		for _, dir := range p {
			candidate := filepath.Join(dir, name)
			if isFile(candidate) {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("model: no such file %q: %w", name, fs.ErrNotExist)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Resolve loads a description by built-in name or by file. Names ending in
// .yaml or .yml are always treated as files.
func (p SearchPath) Resolve(name string) (engine.BodyDesc, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".yaml" && ext != ".yml" {
		if desc, ok := Builtin(name); ok {
			return desc, nil
		}
	}
	path, err := p.FindFile(name)
	if err != nil {
		return engine.BodyDesc{}, err
	}
	return Load(path)
}

// Package macro loads named SQL template fragments from a directory and
// serves them to the rule engine's macro rules.
//
// Every *.sql file is one macro named after its base name. A *.yaml (or
// *.yml) file is a bundle mapping keys to template bodies; its macros are
// namespaced by the file name, so key "columns" in users.yaml becomes
// "users.columns".
package macro

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Macro is one named template fragment.
type Macro struct {
	// Name is the lookup key used by @{macro, name}
	Name string

	// Path is the file the macro was loaded from
	Path string

	// Body is the raw dynamic SQL text
	Body string
}

// Loader scans a directory for macro files.
type Loader struct {
	dir string
}

// NewLoader creates a new macro loader for the specified directory.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Dir returns the scanned directory.
func (l *Loader) Dir() string { return l.dir }

// Load scans the macro directory and loads all macro files.
// A missing directory yields no macros and no error.
func (l *Loader) Load() ([]*Macro, error) {
	info, err := os.Stat(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to access macros directory: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("macros path is not a directory: %s", l.dir)
	}

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan macros directory: %w", err)
	}

	var macros []*Macro
	for _, entry := range entries {
		if entry.IsDir() || !IsMacroFile(entry.Name()) {
			continue
		}
		loaded, err := l.loadFile(filepath.Join(l.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		macros = append(macros, loaded...)
	}

	return macros, nil
}

// IsMacroFile reports whether name has a macro file extension.
func IsMacroFile(name string) bool {
	switch filepath.Ext(name) {
	case ".sql", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// loadFile loads the macros defined by a single file.
func (l *Loader) loadFile(path string) ([]*Macro, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the macros directory listing
	if err != nil {
		return nil, &LoadError{
			File:    path,
			Message: fmt.Sprintf("failed to read file: %v", err),
		}
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)
	if err := validateName(base); err != nil {
		return nil, &LoadError{File: path, Message: err.Error()}
	}

	if ext == ".sql" {
		return []*Macro{{Name: base, Path: path, Body: string(content)}}, nil
	}

	var bundle map[string]string
	if err := yaml.Unmarshal(content, &bundle); err != nil {
		return nil, &LoadError{
			File:    path,
			Message: fmt.Sprintf("invalid macro bundle: %v", err),
		}
	}

	keys := make([]string, 0, len(bundle))
	for k := range bundle {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	macros := make([]*Macro, 0, len(keys))
	for _, k := range keys {
		if err := validateName(k); err != nil {
			return nil, &LoadError{File: path, Message: err.Error()}
		}
		macros = append(macros, &Macro{Name: base + "." + k, Path: path, Body: bundle[k]})
	}
	return macros, nil
}

// validateName checks that a file or bundle key is a valid identifier.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("macro name cannot be empty")
	}

	for i, r := range name {
		if i == 0 {
			if !isLetter(r) && r != '_' {
				return fmt.Errorf("macro name must start with letter or underscore: %s", name)
			}
		} else {
			if !isLetter(r) && !isDigit(r) && r != '_' {
				return fmt.Errorf("macro name contains invalid character: %s", name)
			}
		}
	}

	return nil
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// LoadError represents an error loading a macro file.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("macros/%s: %s", filepath.Base(e.File), e.Message)
}

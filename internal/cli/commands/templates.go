package commands

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

//go:embed all:templates
var templateFS embed.FS

// copyTemplate writes an embedded project template into targetDir and
// returns the files it created. Existing files are kept unless force is set.
func copyTemplate(templateName, targetDir string, force bool) ([]string, error) {
	root := path.Join("templates", templateName)
	var created []string

	err := fs.WalkDir(templateFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
		if rel == "" {
			return nil
		}

		rel = renameSpecialFiles(rel)
		targetPath := filepath.Join(targetDir, filepath.FromSlash(rel))

		if d.IsDir() {
			return os.MkdirAll(targetPath, 0750)
		}

		if !force {
			if _, err := os.Stat(targetPath); err == nil {
				return nil
			}
		}

		content, err := templateFS.ReadFile(p)
		if err != nil {
			return err
		}
		if err := os.WriteFile(targetPath, content, 0600); err != nil {
			return err
		}
		created = append(created, rel)
		return nil
	})

	return created, err
}

// renameSpecialFiles maps embedded names to their on-disk names ("gitignore" -> ".gitignore").
func renameSpecialFiles(p string) string {
	dir, base := path.Split(p)
	switch base {
	case "gitignore":
		return dir + ".gitignore"
	default:
		return p
	}
}

// groupTemplateFiles groups files by project area for display.
func groupTemplateFiles(files []string) map[string][]string {
	groups := map[string][]string{
		"config":  {},
		"macros":  {},
		"queries": {},
	}

	for _, f := range files {
		switch {
		case strings.HasPrefix(f, "macros/"):
			groups["macros"] = append(groups["macros"], f)
		case strings.HasPrefix(f, "queries/"):
			groups["queries"] = append(groups["queries"], f)
		default:
			groups["config"] = append(groups["config"], f)
		}
	}

	return groups
}

package project

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

var skipDirs = map[string]struct{}{
	"target":       {},
	"dbt_packages": {},
	"node_modules": {},
	"logs":         {},
}

// maxRootDepth bounds the upward search for the enclosing project.
const maxRootDepth = 10

type ignoreRule struct {
	base string
	gi   *ignore.GitIgnore
}

func (r ignoreRule) matches(path string, dir bool) bool {
	rel, err := filepath.Rel(r.base, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)
	if dir {
		return r.gi.MatchesPath(rel) || r.gi.MatchesPath(rel+"/")
	}
	return r.gi.MatchesPath(rel)
}

// files lists model SQL and properties files under root, each sorted by path.
func files(root string) (sqlFiles, schemaFiles []string, err error) {
	rules := loadIgnoreRules(root)
	ignored := func(path string, dir bool) bool {
		for _, r := range rules {
			if r.matches(path, dir) {
				return true
			}
		}
		return false
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // skip unreadable entries
		}

		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") || ignored(path, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") || d.Type()&os.ModeSymlink != 0 || ignored(path, false) {
			return nil
		}

		switch strings.ToLower(filepath.Ext(name)) {
		case ".sql":
			sqlFiles = append(sqlFiles, path)
		case ".yml", ".yaml":
			schemaFiles = append(schemaFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	sort.Strings(sqlFiles)
	sort.Strings(schemaFiles)
	return sqlFiles, schemaFiles, nil
}

// loadIgnoreRules compiles the .gitignore in root and in the enclosing
// project directory, if there is one.
func loadIgnoreRules(root string) []ignoreRule {
	var rules []ignoreRule
	add := func(dir string) {
		gi, err := ignore.CompileIgnoreFile(filepath.Join(dir, ".gitignore"))
		if err == nil {
			rules = append(rules, ignoreRule{base: dir, gi: gi})
		}
	}

	add(root)
	if projectRoot := findProjectRoot(root); projectRoot != "" && projectRoot != root {
		add(projectRoot)
	}
	return rules
}

// findProjectRoot searches upward from dir for a dbt_project.yml or .git.
func findProjectRoot(dir string) string {
	current := dir
	for i := 0; i < maxRootDepth; i++ {
		for _, marker := range []string{"dbt_project.yml", ".git"} {
			if _, err := os.Stat(filepath.Join(current, marker)); err == nil {
				return current
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return ""
}

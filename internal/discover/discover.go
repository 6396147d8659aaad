package discover

import (
	"bufio"
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// IGNORE_PATTERNS are directory names to skip during discovery.
var IGNORE_PATTERNS = map[string]bool{
	".cache": true, ".docgraph": true, ".git": true, ".hg": true,
	".idea": true, ".svn": true, ".tox": true, ".venv": true,
	".vs": true, ".vscode": true, ".yarn": true,
	"__pycache__": true, "bower_components": true, "coverage": true,
	"node_modules": true, "site-packages": true, "target": true,
	"vendor": true, "venv": true,
}

const (
	// IgnoreFileName is the per-root ignore file, gitignore syntax.
	IgnoreFileName = ".docgraphignore"
	// GitIgnoreFileName is honored in every directory of the tree.
	GitIgnoreFileName = ".gitignore"
)

// FileInfo represents a discovered Markdown file.
type FileInfo struct {
	Path    string // absolute path
	RelPath string // slash-separated, relative to root
}

// Options configures file discovery.
type Options struct {
	Ignore      []string // gitignore-style patterns, typically from graph.ignore
	IgnoreFile  string   // path to an ignore file (default: <root>/.docgraphignore)
	NoGitIgnore bool     // do not read .gitignore files
}

// matcher applies the root patterns and every .gitignore found so far.
// Each .gitignore is keyed by its directory relative to root ("" for root)
// and matched against paths relative to that directory.
type matcher struct {
	root      string
	patterns  *ignore.GitIgnore
	gitignore map[string]*ignore.GitIgnore
	useGit    bool
}

func newMatcher(root string, opts *Options) *matcher {
	var lines []string
	ignPath := filepath.Join(root, IgnoreFileName)
	m := &matcher{root: root, gitignore: map[string]*ignore.GitIgnore{}, useGit: true}
	if opts != nil {
		lines = append(lines, opts.Ignore...)
		if opts.IgnoreFile != "" {
			ignPath = opts.IgnoreFile
		}
		m.useGit = !opts.NoGitIgnore
	}
	fromFile, _ := loadIgnoreFile(ignPath)
	m.patterns = ignore.CompileIgnoreLines(append(lines, fromFile...)...)
	return m
}

// enter loads the .gitignore of dir, if any.
func (m *matcher) enter(dir string) {
	if !m.useGit {
		return
	}
	gi, err := ignore.CompileIgnoreFile(filepath.Join(m.root, filepath.FromSlash(dir), GitIgnoreFileName))
	if err == nil {
		m.gitignore[dir] = gi
	}
}

// ignored reports whether a path relative to the root is excluded.
// Directories are tested without a trailing slash, so dir-only patterns
// ("gen/") do not prune the walk; they still exclude every file below.
func (m *matcher) ignored(rel string) bool {
	if m.patterns.MatchesPath(rel) {
		return true
	}
	dir := path.Dir(rel)
	for {
		if dir == "." {
			dir = ""
		}
		if gi, ok := m.gitignore[dir]; ok {
			sub := rel
			if dir != "" {
				sub = strings.TrimPrefix(rel, dir+"/")
			}
			if gi.MatchesPath(sub) {
				return true
			}
		}
		if dir == "" {
			return false
		}
		dir = path.Dir(dir)
	}
}

// Discover walks root and returns every Markdown file that survives the
// built-in skip list and the ignore patterns, sorted by relative path.
func Discover(ctx context.Context, root string, opts *Options) ([]FileInfo, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	// Check cancellation before starting walk
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := newMatcher(root, opts)
	var files []FileInfo

	err = filepath.Walk(root, func(p string, info os.FileInfo, walkErr error) error {
		// Check context cancellation periodically during walk
		if err := ctx.Err(); err != nil {
			return err
		}

		if walkErr != nil {
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, _ := filepath.Rel(root, p)
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if rel == "." {
				m.enter("")
				return nil
			}
			if IGNORE_PATTERNS[info.Name()] || m.ignored(rel) {
				return filepath.SkipDir
			}
			m.enter(rel)
			return nil
		}

		if !strings.EqualFold(filepath.Ext(p), ".md") || m.ignored(rel) {
			return nil
		}
		files = append(files, FileInfo{Path: p, RelPath: rel})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

func loadIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, scanner.Err()
}

package discover

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("# doc\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

func relPaths(files []FileInfo) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.RelPath)
	}
	return out
}

func TestDiscoverBasic(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.md", "b.txt", "sub/c.md", "sub/deep/D.MD")

	files, err := Discover(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	want := []string{"a.md", "sub/c.md", "sub/deep/D.MD"}
	if got := relPaths(files); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for _, f := range files {
		if !filepath.IsAbs(f.Path) {
			t.Errorf("expected absolute path, got %s", f.Path)
		}
	}
}

func TestDiscoverSkipsBuiltinDirs(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "keep.md", "node_modules/pkg/README.md", ".git/notes.md", "target/out.md")

	files, err := Discover(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if got := relPaths(files); !reflect.DeepEqual(got, []string{"keep.md"}) {
		t.Errorf("got %v", got)
	}
}

func TestDiscoverIgnorePatterns(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{"file name", "ignored.md", []string{"a.md", "docs/b.md", "docs/draft/c.md", "ignored_dir/d.md"}},
		{"folder", "ignored_dir", []string{"a.md", "docs/b.md", "docs/draft/c.md", "ignored.md"}},
		{"folder trailing slash", "ignored_dir/", []string{"a.md", "docs/b.md", "docs/draft/c.md", "ignored.md"}},
		{"anchored path", "docs/draft", []string{"a.md", "docs/b.md", "ignored.md", "ignored_dir/d.md"}},
		{"double star", "**/c.md", []string{"a.md", "docs/b.md", "ignored.md", "ignored_dir/d.md"}},
		{"wildcard", "ignored*", []string{"a.md", "docs/b.md", "docs/draft/c.md"}},
		{"dir-only skips files", "ignored.md/", []string{"a.md", "docs/b.md", "docs/draft/c.md", "ignored.md", "ignored_dir/d.md"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, "a.md", "ignored.md", "ignored_dir/d.md", "docs/b.md", "docs/draft/c.md")

			files, err := Discover(context.Background(), dir, &Options{Ignore: []string{tt.pattern}})
			if err != nil {
				t.Fatalf("Discover: %v", err)
			}
			if got := relPaths(files); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDiscoverIgnoreFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.md", "drafts/x.md", "notes.md")
	ign := "# comment\n\ndrafts/\nnotes.md\n"
	if err := os.WriteFile(filepath.Join(dir, IgnoreFileName), []byte(ign), 0o600); err != nil {
		t.Fatal(err)
	}

	files, err := Discover(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if got := relPaths(files); !reflect.DeepEqual(got, []string{"a.md"}) {
		t.Errorf("got %v", got)
	}
}

func TestDiscoverCancellation(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.md")

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // pre-cancel

	_, err := Discover(ctx, dir, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDiscoverNegation(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.md", "b.md", "docs/a.md", "docs/c.md")

	files, err := Discover(context.Background(), dir, &Options{Ignore: []string{"*.md", "!a.md"}})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := []string{"a.md", "docs/a.md"}
	if got := relPaths(files); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestDiscoverGitIgnore(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.md", "gen/b.md", "private.md", "docs/private.md", "docs/pub.md")
	writeIgnore := func(rel, content string) {
		t.Helper()
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	writeIgnore(GitIgnoreFileName, "# generated\ngen/\n")
	writeIgnore("docs/"+GitIgnoreFileName, "private.md\n")

	files, err := Discover(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	// docs/.gitignore only applies below docs.
	want := []string{"a.md", "docs/pub.md", "private.md"}
	if got := relPaths(files); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	files, err = Discover(context.Background(), dir, &Options{NoGitIgnore: true})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 5 {
		t.Errorf("expected 5 files without .gitignore, got %v", relPaths(files))
	}
}

func TestDiscoverIgnoreFileNegation(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "drafts/x.md", "drafts/keep.md")
	ign := "drafts/*\n!drafts/keep.md\n"
	if err := os.WriteFile(filepath.Join(dir, IgnoreFileName), []byte(ign), 0o600); err != nil {
		t.Fatal(err)
	}

	files, err := Discover(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if got := relPaths(files); !reflect.DeepEqual(got, []string{"drafts/keep.md"}) {
		t.Errorf("got %v", got)
	}
}

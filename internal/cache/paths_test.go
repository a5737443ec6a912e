package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResolveDerivesNameFromURL(t *testing.T) {
	root := t.TempDir()
	resolver, err := NewResolver(root, "econfetch")
	if err != nil {
		t.Fatalf("resolver error: %v", err)
	}

	paths, err := resolver.Resolve("https://example.org/data/report.csv", "", "")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if paths.Local != filepath.Join(root, "report.csv") {
		t.Fatalf("unexpected local path: %s", paths.Local)
	}
	if paths.Meta != paths.Local+".meta" {
		t.Fatalf("unexpected meta path: %s", paths.Meta)
	}
}

func TestResolveAppendsSubfolderAndCreatesIt(t *testing.T) {
	root := t.TempDir()
	resolver, _ := NewResolver(root, "econfetch")

	paths, err := resolver.Resolve("https://fred.stlouisfed.org/graph/fredgraph.csv?id=USREC", "", "fred")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if paths.Local != filepath.Join(root, "fred", "fredgraph.csv") {
		t.Fatalf("query string must not affect the name: %s", paths.Local)
	}
	if info, err := os.Stat(filepath.Join(root, "fred")); err != nil || !info.IsDir() {
		t.Fatalf("subfolder should be created")
	}
}

func TestResolveUsesDestinationVerbatim(t *testing.T) {
	root := t.TempDir()
	resolver, _ := NewResolver(root, "econfetch")
	dest := filepath.Join(t.TempDir(), "nested", "GDP.json")

	paths, err := resolver.Resolve("https://api.stlouisfed.org/fred/series/observations?series_id=GDP", dest, "fred")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if paths.Local != dest {
		t.Fatalf("destination should be used verbatim: %s", paths.Local)
	}
	if _, err := os.Stat(filepath.Dir(dest)); err != nil {
		t.Fatalf("destination parent should be created: %v", err)
	}
}

func TestResolveRejectsURLWithoutFileName(t *testing.T) {
	resolver, _ := NewResolver(t.TempDir(), "econfetch")
	for _, raw := range []string{"https://example.org", "https://example.org/"} {
		if _, err := resolver.Resolve(raw, "", ""); !errors.Is(err, ErrInvalidURL) {
			t.Fatalf("expected ErrInvalidURL for %s, got %v", raw, err)
		}
	}
}

func TestDirIsIdempotent(t *testing.T) {
	root := t.TempDir()
	resolver, _ := NewResolver(root, "econfetch")
	for i := 0; i < 2; i++ {
		dir, err := resolver.Dir("bls")
		if err != nil {
			t.Fatalf("dir error: %v", err)
		}
		if dir != filepath.Join(root, "bls") {
			t.Fatalf("unexpected dir: %s", dir)
		}
	}
	if _, err := resolver.Dir("../escape"); err == nil {
		t.Fatalf("subfolder with separators should be rejected")
	}
}

func TestDefaultRootUsesUserCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	root, err := DefaultRoot("econfetch")
	if err != nil {
		t.Skipf("user cache dir unavailable: %v", err)
	}
	base, _ := os.UserCacheDir()
	if root != filepath.Join(base, "econfetch") {
		t.Fatalf("unexpected default root: %s", root)
	}
}

func TestLocateLeavesFilesystemUntouched(t *testing.T) {
	root := filepath.Join(t.TempDir(), "cache")
	resolver, _ := NewResolver(root, "econfetch")

	paths, err := resolver.Locate("https://fred.stlouisfed.org/graph/fredgraph.csv?id=USREC", "", "fred")
	if err != nil {
		t.Fatalf("locate error: %v", err)
	}
	if paths.Local != filepath.Join(root, "fred", "fredgraph.csv") {
		t.Fatalf("unexpected local path: %s", paths.Local)
	}
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Fatalf("locate must not create directories, stat err=%v", err)
	}
}

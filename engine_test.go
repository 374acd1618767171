package hbs

import (
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestExtensionNormalized(t *testing.T) {
	for _, test := range []struct{ in, want string }{
		{"hbs", ".hbs"},
		{".handlebars", ".handlebars"},
		{"", ".hbs"},
	} {
		engine := testEngine(t, WithExtension(test.in))
		if got := engine.Config().Extension; got != test.want {
			t.Errorf("%q: expected %q, got %q", test.in, test.want, got)
		}
	}
}

func TestResetCacheAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "v.hbs")
	mustWrite(t, path, "one")

	engine := testEngine(t)
	opts := &Options{Cache: true}

	if got, _ := engine.Render(path, nil, opts); got != "one" {
		t.Fatalf("expected one, got %q", got)
	}

	mustWrite(t, path, "two")
	if got, _ := engine.Render(path, nil, opts); got != "one" {
		t.Fatalf("expected the cached result, got %q", got)
	}

	engine.ResetCache()
	if got, _ := engine.Render(path, nil, opts); got != "two" {
		t.Errorf("expected fresh content after reset, got %q", got)
	}
}

func TestResetCacheSelective(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.hbs")
	b := filepath.Join(dir, "b.hbs")
	mustWrite(t, a, "a1")
	mustWrite(t, b, "b1")

	cfs := &countingFS{}
	engine := testEngine(t, WithFS(cfs))
	opts := &Options{Cache: true}

	if _, err := engine.Template(a, opts); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Template(b, opts); err != nil {
		t.Fatal(err)
	}

	engine.ResetCache(a)

	if _, err := engine.Template(b, opts); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt64(&cfs.reads); n != 2 {
		t.Errorf("b should have stayed cached; %d reads", n)
	}
	if _, err := engine.Template(a, opts); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt64(&cfs.reads); n != 3 {
		t.Errorf("a should have been evicted; %d reads", n)
	}
}

func TestResetCacheFunc(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.hbs")
	b := filepath.Join(dir, "b.hbs")
	mustWrite(t, a, "a1")
	mustWrite(t, b, "b1")

	engine := testEngine(t)
	opts := &Options{Cache: true}
	if _, err := engine.Template(a, opts); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Template(b, opts); err != nil {
		t.Fatal(err)
	}

	engine.ResetCacheFunc(func(path string) bool {
		return filepath.Base(path) == "a.hbs"
	})

	engine.compiled.mu.Lock()
	defer engine.compiled.mu.Unlock()
	if _, ok := engine.compiled.entries[a]; ok {
		t.Error("a survived the predicate reset")
	}
	if _, ok := engine.compiled.entries[b]; !ok {
		t.Error("b did not survive the predicate reset")
	}
}

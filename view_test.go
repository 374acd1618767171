package hbs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andreyvit/diff"
)

func TestRenderViewLayout(t *testing.T) {
	engine := testEngine(t, WithDefaultLayout("main"))

	tests := []struct {
		name string
		opts *ViewOptions
		want string
	}{
		{"default layout",
			&ViewOptions{
				Context:   d{"title": "Hi"},
				ViewsPath: []string{"testdata/views"},
			},
			"<body><h1>Hi</h1></body>"},

		{"explicit layout",
			&ViewOptions{
				Context:   d{"title": "Hi"},
				Layout:    "alt",
				ViewsPath: []string{"testdata/views"},
			},
			`<div class="alt"><h1>Hi</h1></div>`},

		{"no layout beats the default",
			&ViewOptions{
				Context:   d{"title": "Hi"},
				NoLayout:  true,
				ViewsPath: []string{"testdata/views"},
			},
			"<h1>Hi</h1>"},
	}
	for _, test := range tests {
		got, err := engine.RenderView("testdata/views/home.hbs", test.opts)
		if err != nil {
			t.Fatalf("%s: %v", test.name, err)
		}
		if got != test.want {
			t.Errorf("%s: rendered incorrectly:\n%s", test.name, diff.LineDiff(test.want, got))
		}
	}
}

func TestRenderViewDerivedPartials(t *testing.T) {
	engine := testEngine(t)

	got, err := engine.RenderView("testdata/views/about.hbs", &ViewOptions{
		Context:   d{"title": "Hi"},
		ViewsPath: []string{"testdata/views"},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := "<nav>Hi</nav>\n<p>About</p>"
	if got != want {
		t.Errorf("rendered incorrectly:\n%s", diff.LineDiff(want, got))
	}
}

func TestRenderViewUnresolvedRoot(t *testing.T) {
	// no candidate root is an ancestor of the view; rendering proceeds
	// with no derived layouts or partials.
	engine := testEngine(t)

	got, err := engine.RenderView("testdata/views/home.hbs", &ViewOptions{
		Context:   d{"title": "Hi"},
		ViewsPath: []string{"testdata/partials-a"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "<h1>Hi</h1>" {
		t.Errorf("expected bare view, got %q", got)
	}
}

func TestRenderViewExplicitDirsWin(t *testing.T) {
	// explicitly configured partials dirs are not displaced by the views
	// root derivation
	engine := testEngine(t, WithPartialsDirs(
		PartialDir{Dir: "testdata/partials-b"},
	))

	got, err := engine.RenderView("testdata/views/usecard.hbs", &ViewOptions{
		Context:   d{"name": "N"},
		ViewsPath: []string{"testdata/views"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if want := `<div class="b">N</div>`; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestRenderViewLayoutFailureAbortsWhole(t *testing.T) {
	engine := testEngine(t)

	_, err := engine.RenderView("testdata/views/home.hbs", &ViewOptions{
		Context:   d{"title": "Hi"},
		Layout:    "broken",
		ViewsPath: []string{"testdata/views"},
	})
	if err == nil {
		t.Fatal("expected the layout failure to abort the call")
	}
}

func TestRenderViewCB(t *testing.T) {
	engine := testEngine(t, WithDefaultLayout("main"))

	type result struct {
		html string
		err  error
	}
	done := make(chan result, 1)
	engine.RenderViewCB("testdata/views/home.hbs", &ViewOptions{
		Context:   d{"title": "Hi"},
		ViewsPath: []string{"testdata/views"},
	}, func(html string, err error) {
		done <- result{html, err}
	})

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatal(r.err)
		}
		if r.html != "<body><h1>Hi</h1></body>" {
			t.Errorf("rendered incorrectly: %q", r.html)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("callback never fired")
	}

	// errors arrive through the same callback
	done = make(chan result, 1)
	engine.RenderViewCB("testdata/views/nope.hbs", nil, func(html string, err error) {
		done <- result{html, err}
	})
	select {
	case r := <-done:
		if r.err == nil {
			t.Error("expected an error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("callback never fired")
	}
}

func TestRenderViewMinify(t *testing.T) {
	engine := testEngine(t, WithMinify(true), WithDefaultLayout("main"))

	got, err := engine.RenderView("testdata/views/home.hbs", &ViewOptions{
		Context:   d{"title": "Hi"},
		ViewsPath: []string{"testdata/views"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "\n") {
		t.Errorf("minified output still has newlines: %q", got)
	}
	if !strings.Contains(got, "<h1>Hi</h1>") {
		t.Errorf("minified output lost content: %q", got)
	}
}

func TestInvalidateEvictsCachedView(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "v.hbs")
	mustWrite(t, path, "one")

	engine := testEngine(t)
	opts := &ViewOptions{Cache: true}

	got, err := engine.RenderView(path, opts)
	if err != nil {
		t.Fatal(err)
	}
	if got != "one" {
		t.Fatalf("expected one, got %q", got)
	}

	mustWrite(t, path, "two")
	got, err = engine.RenderView(path, opts)
	if err != nil {
		t.Fatal(err)
	}
	if got != "one" {
		t.Fatalf("expected the cached render before invalidation, got %q", got)
	}

	engine.invalidate(path)
	got, err = engine.RenderView(path, opts)
	if err != nil {
		t.Fatal(err)
	}
	if got != "two" {
		t.Errorf("expected fresh content after invalidation, got %q", got)
	}
}

func TestWatchClose(t *testing.T) {
	dir := t.TempDir()
	engine := testEngine(t)
	if err := engine.Watch(dir); err != nil {
		t.Fatal(err)
	}
	if err := engine.Close(); err != nil {
		t.Fatal(err)
	}
	// closing again is a no-op
	if err := engine.Close(); err != nil {
		t.Fatal(err)
	}
	_ = os.RemoveAll(dir)
}

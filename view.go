package hbs

import (
	"path/filepath"
	"strings"

	"github.com/aymerick/raymond"
)

// ViewOptions control a single RenderView call.
type ViewOptions struct {
	// Context is the data the view (and its layout) render against.
	Context map[string]interface{}

	// Layout overrides the configured default layout for this call.
	Layout string

	// NoLayout suppresses layout wrapping entirely, regardless of Layout
	// or the configured default.
	NoLayout bool

	// ViewsPath lists candidate view root directories, in the way web
	// frameworks configure a "views" search path.  The nearest ancestor of
	// the view path that matches one of them becomes the resolved root;
	// layouts and partials directories are derived from it unless
	// configured explicitly on the engine.
	ViewsPath []string

	Cache          bool
	Encoding       string
	Partials       map[string]*raymond.Template
	Helpers        map[string]interface{}
	Data           map[string]interface{}
	RuntimeOptions map[string]interface{}
}

func (o *ViewOptions) render() *Options {
	return &Options{
		Cache:          o.Cache,
		Encoding:       o.Encoding,
		Helpers:        o.Helpers,
		Data:           o.Data,
		RuntimeOptions: o.RuntimeOptions,
	}
}

// resolvedView is the per-call result of views-root resolution.  Computing it
// locally, instead of writing resolved directories back onto the engine,
// keeps concurrent RenderView calls with different roots from trampling each
// other.
type resolvedView struct {
	name         string
	layoutsDir   string
	partialsDirs []PartialDir
	derived      bool
}

// RenderView renders the view at path and, unless disabled, wraps it in a
// layout.  The layout is itself rendered with the original context plus the
// reserved "body" variable bound to the view's HTML; layout handling is off
// for that nested render, so a layout can never wrap itself.
//
// Any failure aborts the whole call: there is no partially delivered output.
func (e *Engine) RenderView(path string, o *ViewOptions) (string, error) {
	if o == nil {
		o = &ViewOptions{}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rv := e.resolveView(abs, o.ViewsPath)
	if e.conf.Debug && rv.name != "" {
		Logger.Printf("resolved view %q (layouts %s)", rv.name, rv.layoutsDir)
	}

	// Partials are resolved once, up front, and shared by the view render
	// and the layout render.  Explicit per-call partials win on collision.
	ro := o.render()
	partials, err := e.partialsFrom(rv.partialsDirs, rv.derived, ro)
	if err != nil {
		return "", err
	}
	for name, tpl := range o.Partials {
		partials[name] = tpl
	}
	ro.Partials = partials

	html, err := e.Render(abs, o.Context, ro)
	if err != nil {
		return "", err
	}

	if layout := e.layoutFor(o); layout != "" {
		layoutPath := layout
		if filepath.Ext(layoutPath) == "" {
			layoutPath += e.conf.Extension
		}
		if !filepath.IsAbs(layoutPath) {
			layoutPath = filepath.Join(rv.layoutsDir, layoutPath)
		}

		ctx := make(map[string]interface{}, len(o.Context)+1)
		for k, v := range o.Context {
			ctx[k] = v
		}
		ctx[bodyField] = html

		html, err = e.Render(layoutPath, ctx, ro)
		if err != nil {
			return "", err
		}
	}

	if e.minifier != nil {
		minified, err := e.minifier.String("text/html", html)
		if err != nil {
			return "", err
		}
		html = minified
	}
	return html, nil
}

// RenderViewCB is the callback form of RenderView, for frameworks that hand
// over a completion function instead of awaiting a result.  cb is invoked
// exactly once, from another goroutine, with either the final HTML or the
// error.
func (e *Engine) RenderViewCB(path string, o *ViewOptions, cb func(html string, err error)) {
	go func() {
		cb(e.RenderView(path, o))
	}()
}

// layoutFor picks the effective layout: an explicit no-layout beats an
// explicit layout, which beats the configured default.
func (e *Engine) layoutFor(o *ViewOptions) string {
	if o.NoLayout {
		return ""
	}
	if o.Layout != "" {
		return o.Layout
	}
	return e.conf.DefaultLayout
}

// resolveView walks upward from the view file through its parent directories
// until one of the candidate roots matches, or the filesystem root is
// reached.  On a match the view's canonical name is derived relative to the
// root, and layouts/partials directories are pointed at "<root>/layouts" and
// "<root>/partials" unless the engine was configured with explicit ones.
func (e *Engine) resolveView(abs string, roots []string) resolvedView {
	rv := resolvedView{
		layoutsDir:   e.conf.LayoutsDir,
		partialsDirs: e.conf.PartialsDirs,
	}
	if len(roots) == 0 {
		return rv
	}
	root, ok := nearestRoot(abs, roots)
	if !ok {
		return rv
	}
	if rel, err := filepath.Rel(root, abs); err == nil {
		rv.name = strings.TrimSuffix(filepath.ToSlash(rel), e.conf.Extension)
	}
	if !e.conf.layoutsDirSet {
		rv.layoutsDir = filepath.Join(root, "layouts")
	}
	if !e.conf.partialsDirSet {
		rv.partialsDirs = []PartialDir{{Dir: filepath.Join(root, "partials")}}
		rv.derived = true
	}
	return rv
}

func nearestRoot(abs string, roots []string) (string, bool) {
	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		for _, root := range roots {
			if r, err := filepath.Abs(root); err == nil && r == dir {
				return dir, true
			}
		}
		if dir == filepath.Dir(dir) {
			return "", false
		}
	}
}

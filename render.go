package hbs

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/aymerick/raymond"
)

// Options control a single Render (and, through ViewOptions, RenderView).
type Options struct {
	// Cache opts this call into the file/template caches.
	Cache bool

	// Encoding overrides the configured file encoding for this call.
	Encoding string

	// Partials, when non-nil, is used verbatim instead of resolving the
	// configured partial sources.
	Partials map[string]*raymond.Template

	// Helpers are merged over the instance helpers; these win on name
	// collisions.
	Helpers map[string]interface{}

	// Data entries are exposed to templates on the private data channel
	// (@name), separate from the render context.
	Data map[string]interface{}

	// RuntimeOptions are merged over the instance runtime options and
	// exposed through the reserved @view entry.
	RuntimeOptions map[string]interface{}
}

// Render compiles (or fetches) the template at path, resolves partials,
// merges helpers and executes the template against ctx.  The compiled
// template and the partial mapping are obtained concurrently.  The result is
// trimmed of leading and trailing whitespace.
func (e *Engine) Render(path string, ctx map[string]interface{}, o *Options) (string, error) {
	if o == nil {
		o = &Options{}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	var (
		wg       sync.WaitGroup
		tpl      *raymond.Template
		partials map[string]*raymond.Template
		tplErr   error
		parErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		tpl, tplErr = e.Template(abs, o)
	}()
	go func() {
		defer wg.Done()
		if o.Partials != nil {
			partials = o.Partials
			return
		}
		partials, parErr = e.Partials(o)
	}()
	wg.Wait()
	if tplErr != nil {
		return "", tplErr
	}
	if parErr != nil {
		return "", parErr
	}

	helpers := mergeMaps(e.conf.Helpers, o.Helpers)
	runtime := mergeMaps(e.conf.RuntimeOptions, o.RuntimeOptions)

	// Cached artifacts stay pristine: per-call helpers and partials are
	// registered on a clone.
	run := tpl.Clone()
	if len(helpers) > 0 {
		run.RegisterHelpers(helpers)
	}
	for name, partial := range partials {
		run.RegisterPartialTemplate(name, partial)
	}

	out, err := run.ExecWith(ctx, e.dataFrame(abs, helpers, partials, runtime, o.Data))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// dataFrame builds the private data channel: caller extras plus the reserved
// @view entry describing the effective render configuration.  Helpers and
// partials are reported by name so the channel stays serializable.
func (e *Engine) dataFrame(file string, helpers map[string]interface{}, partials map[string]*raymond.Template, runtime, extras map[string]interface{}) *raymond.DataFrame {
	frame := raymond.NewDataFrame()
	for k, v := range extras {
		frame.Set(k, v)
	}
	frame.Set(settingsKey, map[string]interface{}{
		"file":           file,
		"helpers":        names(helpers),
		"partials":       partialNames(partials),
		"runtimeOptions": runtime,
	})
	return frame
}

func names(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func partialNames(m map[string]*raymond.Template) []string {
	keyed := make(map[string]interface{}, len(m))
	for k := range m {
		keyed[k] = nil
	}
	return names(keyed)
}

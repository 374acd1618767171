package hbs

import (
	"log"
	"os"
	"path/filepath"

	"github.com/aymerick/raymond"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"

	"github.com/hbsx/hbs/fscache"
)

// Logger is used to print diagnostics (partial name collisions, watch events,
// watcher errors) when Debug is on or the watcher is running.
var Logger = log.New(os.Stderr, "[hbs] ", 0)

// Reserved names that templates and layouts see.  They are part of the
// contract and must not be used as ordinary caller data.
const (
	// bodyField carries the rendered view HTML into its layout.
	bodyField = "body"

	// settingsKey is the @data entry describing the effective render
	// configuration (file, helper names, partial names, runtime options).
	settingsKey = "view"
)

// Engine renders Handlebars views.  An Engine is safe for concurrent use: its
// configuration is immutable and per-call state (resolved directories, merged
// helpers and partials) never writes back onto the instance.
type Engine struct {
	conf        Config
	files       *fscache.Cache
	compiled    *memo
	precompiled *memo
	minifier    *minify.M
	watcher     *watcher
}

// New constructs an Engine from the given options.  Configuration problems
// (a partial source with neither dir nor templates) are reported here, before
// any filesystem access.
func New(opts ...Option) (*Engine, error) {
	conf := Config{Extension: DefaultExtension, fs: fscache.OS}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&conf)
	}
	if conf.Extension == "" {
		conf.Extension = DefaultExtension
	}
	if conf.fs == nil {
		conf.fs = fscache.OS
	}
	if conf.compile == nil {
		conf.compile = raymond.Parse
	}
	if err := conf.validate(); err != nil {
		return nil, err
	}
	if conf.messages != nil {
		if conf.Helpers == nil {
			conf.Helpers = make(map[string]interface{}, 2)
		}
		bundle := conf.messages.Bundle(conf.locale)
		conf.Helpers["t"] = func(id string) string {
			if bundle == nil {
				return id
			}
			return bundle.Get(id)
		}
		conf.Helpers["tn"] = func(id, idPlural string, n int) string {
			if bundle == nil {
				if n == 1 {
					return id
				}
				return idPlural
			}
			return bundle.GetN(id, idPlural, n)
		}
	}

	e := &Engine{
		conf:        conf,
		files:       fscache.NewFS(conf.CacheSize, conf.fs),
		compiled:    newMemo(),
		precompiled: newMemo(),
	}
	if conf.Minify {
		e.minifier = minify.New()
		e.minifier.AddFunc("text/html", html.Minify)
	}
	return e, nil
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() Config {
	return e.conf
}

// ResetCache evicts cached state.  With no arguments all three caches (file
// contents and listings, compiled templates, precompiled specs) are cleared;
// otherwise only the named paths are evicted from each.  Clearing the
// template caches together with the file cache keeps them consistent: a
// re-read of changed bytes is never paired with a stale compiled artifact.
func (e *Engine) ResetCache(paths ...string) {
	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		abs = append(abs, a)
	}
	if len(paths) != 0 && len(abs) == 0 {
		return
	}
	e.files.Reset(abs...)
	e.compiled.reset(abs...)
	e.precompiled.reset(abs...)
}

// ResetCacheFunc evicts every cached path for which pred returns true, from
// all three caches.
func (e *Engine) ResetCacheFunc(pred func(path string) bool) {
	e.files.ResetFunc(pred)
	e.compiled.resetFunc(pred)
	e.precompiled.resetFunc(pred)
}

// mergeMaps overlays per-call values onto instance values; per-call wins on
// name collisions.  The inputs are never mutated.
func mergeMaps(base, override map[string]interface{}) map[string]interface{} {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	merged := make(map[string]interface{}, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

package hbs

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aymerick/raymond"

	"github.com/hbsx/hbs/fscache"
)

// Spec is the portable, precompiled form of a template: the trimmed source
// plus the compiler options it should be compiled with.  It is not directly
// invocable; it marshals to JSON for transport to another process or client.
type Spec struct {
	Name    string                 `json:"name"`
	Source  string                 `json:"source"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// JSON returns the spec serialized for transport.
func (s *Spec) JSON() ([]byte, error) {
	return json.Marshal(s)
}

// memo memoizes compilation by absolute path, storing the pending entry
// before it settles so concurrent callers share one compile, and evicting on
// failure.  Same protocol as fscache, but unbounded: compiled artifacts are
// few and dear.
type memo struct {
	mu      sync.Mutex
	entries map[string]*mentry
}

type mentry struct {
	done chan struct{}
	val  interface{}
	err  error
}

func newMemo() *memo {
	return &memo{entries: make(map[string]*mentry)}
}

func (m *memo) do(key string, cached bool, fn func() (interface{}, error)) (interface{}, error) {
	if !cached {
		return fn()
	}
	m.mu.Lock()
	if e, ok := m.entries[key]; ok {
		m.mu.Unlock()
		<-e.done
		return e.val, e.err
	}
	e := &mentry{done: make(chan struct{})}
	m.entries[key] = e
	m.mu.Unlock()

	e.val, e.err = fn()
	if e.err != nil {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
	}
	close(e.done)
	return e.val, e.err
}

func (m *memo) reset(paths ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(paths) == 0 {
		m.entries = make(map[string]*mentry)
		return
	}
	for _, p := range paths {
		delete(m.entries, p)
	}
}

func (m *memo) resetFunc(pred func(path string) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for p := range m.entries {
		if pred(p) {
			delete(m.entries, p)
		}
	}
}

// Template returns the compiled template for the file at path, reading and
// compiling it if the compiled cache has no entry.  Leading and trailing
// whitespace in the source never reaches the compiler, so blank lines around
// a template do not affect its output.
func (e *Engine) Template(path string, o *Options) (*raymond.Template, error) {
	if o == nil {
		o = &Options{}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	v, err := e.compiled.do(abs, o.Cache, func() (interface{}, error) {
		src, err := e.readSource(abs, o)
		if err != nil {
			return nil, err
		}
		tpl, err := e.conf.compile(src)
		if err != nil {
			return nil, fmt.Errorf("hbs: compile %s: %w", path, err)
		}
		return tpl, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*raymond.Template), nil
}

// Precompiled returns the portable spec for the file at path.  The
// precompiled cache is a separate keyspace from the compiled one: asking for
// a spec never disturbs a cached compiled artifact of the same file, and vice
// versa.
func (e *Engine) Precompiled(path string, o *Options) (*Spec, error) {
	if o == nil {
		o = &Options{}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	v, err := e.precompiled.do(abs, o.Cache, func() (interface{}, error) {
		src, err := e.readSource(abs, o)
		if err != nil {
			return nil, err
		}
		return &Spec{Name: abs, Source: src, Options: e.conf.CompilerOptions}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Spec), nil
}

// Templates compiles every template file under dir, keyed by slash-separated
// relative path (extension retained; canonical partial names are derived
// later).  Files compile concurrently.
func (e *Engine) Templates(dir string, o *Options) (map[string]*raymond.Template, error) {
	if o == nil {
		o = &Options{}
	}
	files, err := e.files.ListFiles(dir, e.conf.Extension, fscache.ListOptions{Cache: o.Cache})
	if err != nil {
		return nil, err
	}

	var (
		wg       sync.WaitGroup
		compiled = make([]*raymond.Template, len(files))
		errs     = make([]error, len(files))
	)
	for i, rel := range files {
		wg.Add(1)
		go func(i int, rel string) {
			defer wg.Done()
			compiled[i], errs[i] = e.Template(filepath.Join(dir, filepath.FromSlash(rel)), o)
		}(i, rel)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	templates := make(map[string]*raymond.Template, len(files))
	for i, rel := range files {
		templates[rel] = compiled[i]
	}
	return templates, nil
}

func (e *Engine) readSource(abs string, o *Options) (string, error) {
	enc := o.Encoding
	if enc == "" {
		enc = e.conf.Encoding
	}
	src, err := e.files.ReadFile(abs, fscache.ReadOptions{Cache: o.Cache, Encoding: enc})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(src), nil
}

package hbs

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/aymerick/raymond"
)

// Partials resolves the configured partial sources into a flat mapping of
// canonical name to compiled template.  No configured sources is not an
// error: templates that reference no partials render fine with an empty map.
//
// Sources resolve concurrently, but the merge follows their configured order:
// when two sources produce the same canonical name, the later one wins.  The
// overwrite is deliberate policy, surfaced on the Logger when Debug is on.
func (e *Engine) Partials(o *Options) (map[string]*raymond.Template, error) {
	return e.partialsFrom(e.conf.PartialsDirs, false, o)
}

// partialsFrom is Partials over an explicit source list.  derived marks
// sources guessed from a views root rather than configured, in which case a
// missing directory means "no partials" instead of an error.
func (e *Engine) partialsFrom(dirs []PartialDir, derived bool, o *Options) (map[string]*raymond.Template, error) {
	if o == nil {
		o = &Options{}
	}
	merged := make(map[string]*raymond.Template)
	if len(dirs) == 0 {
		return merged, nil
	}
	for i, d := range dirs {
		if d.Dir == "" && d.Templates == nil {
			return nil, fmt.Errorf("hbs: partials dir %d: %w", i, ErrNoPartialSource)
		}
	}

	var (
		wg       sync.WaitGroup
		resolved = make([]map[string]*raymond.Template, len(dirs))
		errs     = make([]error, len(dirs))
	)
	for i, d := range dirs {
		if d.Templates != nil {
			resolved[i] = d.Templates
			continue
		}
		wg.Add(1)
		go func(i int, dir string) {
			defer wg.Done()
			resolved[i], errs[i] = e.Templates(dir, o)
		}(i, d.Dir)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			if derived && errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
	}

	for i, d := range dirs {
		for rel, tpl := range resolved[i] {
			name := d.name(rel, e.conf.Extension)
			if _, ok := merged[name]; ok && e.conf.Debug {
				Logger.Printf("partial %q overwritten by %s", name, sourceLabel(d, rel))
			}
			merged[name] = tpl
		}
	}
	return merged, nil
}

func sourceLabel(d PartialDir, rel string) string {
	if d.Dir != "" {
		return d.Dir + "/" + rel
	}
	return "supplied templates (" + rel + ")"
}

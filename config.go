package hbs

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aymerick/raymond"
	"gopkg.in/yaml.v3"

	"github.com/hbsx/hbs/fscache"
	"github.com/hbsx/hbs/i18n"
)

// DefaultExtension is the template file extension used when none is
// configured.
const DefaultExtension = ".hbs"

// PartialDir describes one source of partial templates.  Exactly one of Dir
// or Templates must be set: Dir names a directory to scan, Templates supplies
// ready-made artifacts keyed by relative path (no filesystem access).
type PartialDir struct {
	Dir       string
	Templates map[string]*raymond.Template

	// Namespace, when set, prefixes every derived partial name from this
	// source with "Namespace/".
	Namespace string

	// Rename, when set, fully replaces the default name derivation
	// (extension stripping and namespace prefixing) for this source.
	Rename func(relPath string) string
}

// name derives the canonical partial name for a file of this source.
func (d PartialDir) name(relPath, ext string) string {
	if d.Rename != nil {
		return d.Rename(relPath)
	}
	name := strings.TrimSuffix(relPath, ext)
	if d.Namespace != "" {
		name = d.Namespace + "/" + name
	}
	return name
}

// Config holds the engine settings.  It is immutable once New returns.
type Config struct {
	// Extension of template files, always normalized to a leading dot.
	Extension string

	// Encoding of template files.  Empty means UTF-8.
	Encoding string

	// LayoutsDir is where layout names are resolved.  When empty it is
	// derived per call from the matched views root ("<root>/layouts").
	LayoutsDir string

	// PartialsDirs are the partial sources, merged in order (later sources
	// win on name collisions).  When empty the dirs are derived per call
	// from the matched views root ("<root>/partials").
	PartialsDirs []PartialDir

	// DefaultLayout wraps every RenderView result unless overridden per
	// call.  Empty disables layouts by default.
	DefaultLayout string

	// Helpers are registered for every render; per-call helpers win on
	// name collisions.
	Helpers map[string]interface{}

	// CompilerOptions travel with precompiled template specs.  The raymond
	// compiler itself exposes no compile-time switches, so they do not
	// affect in-process compilation.
	CompilerOptions map[string]interface{}

	// RuntimeOptions are merged with per-call runtime options and exposed
	// to templates through the reserved @view data channel.
	RuntimeOptions map[string]interface{}

	// CacheSize bounds the file cache.  Zero means fscache.DefaultSize.
	CacheSize int

	// Debug turns on diagnostics (partial name collisions, watch events)
	// on the package Logger.
	Debug bool

	// Minify pipes final RenderView output through an HTML minifier.
	Minify bool

	layoutsDirSet  bool
	partialsDirSet bool
	fs             fscache.FS
	compile        Compiler
	messages       *i18n.Provider
	locale         string
}

// Compiler turns Handlebars source into a compiled template.  The default is
// raymond.Parse; callers carrying a customized Handlebars setup may
// substitute their own.
type Compiler func(source string) (*raymond.Template, error)

// Option configures the engine before construction.
type Option func(*Config)

// WithCompiler substitutes the Handlebars compiler.
func WithCompiler(fn Compiler) Option {
	return func(c *Config) { c.compile = fn }
}

// WithExtension sets the template file extension.  A missing leading dot is
// added.
func WithExtension(ext string) Option {
	return func(c *Config) {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			return
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Extension = ext
	}
}

// WithEncoding sets the character encoding used to read template files.
func WithEncoding(name string) Option {
	return func(c *Config) { c.Encoding = name }
}

// WithLayoutsDir pins the layouts directory, overriding per-call derivation
// from the views root.
func WithLayoutsDir(dir string) Option {
	return func(c *Config) {
		c.LayoutsDir = dir
		c.layoutsDirSet = true
	}
}

// WithPartialsDir adds a plain partials directory.
func WithPartialsDir(dir string) Option {
	return WithPartialsDirs(PartialDir{Dir: dir})
}

// WithPartialsDirs sets the partial sources, overriding per-call derivation
// from the views root.
func WithPartialsDirs(dirs ...PartialDir) Option {
	return func(c *Config) {
		c.PartialsDirs = append(c.PartialsDirs, dirs...)
		c.partialsDirSet = true
	}
}

// WithDefaultLayout sets the layout applied when a call names none.
func WithDefaultLayout(name string) Option {
	return func(c *Config) { c.DefaultLayout = name }
}

// WithHelpers adds instance-level helpers.
func WithHelpers(helpers map[string]interface{}) Option {
	return func(c *Config) {
		if c.Helpers == nil {
			c.Helpers = make(map[string]interface{}, len(helpers))
		}
		for name, fn := range helpers {
			c.Helpers[name] = fn
		}
	}
}

// WithCompilerOptions sets options carried by precompiled template specs.
func WithCompilerOptions(opts map[string]interface{}) Option {
	return func(c *Config) { c.CompilerOptions = opts }
}

// WithRuntimeOptions sets instance-level runtime options.
func WithRuntimeOptions(opts map[string]interface{}) Option {
	return func(c *Config) { c.RuntimeOptions = opts }
}

// WithCacheSize bounds the file cache entry count.
func WithCacheSize(n int) Option {
	return func(c *Config) { c.CacheSize = n }
}

// WithDebug turns on Logger diagnostics.
func WithDebug(debug bool) Option {
	return func(c *Config) { c.Debug = debug }
}

// WithMinify turns on HTML minification of RenderView output.
func WithMinify(minify bool) Option {
	return func(c *Config) { c.Minify = minify }
}

// WithMessages registers "t" and "tn" translation helpers backed by the
// given provider, resolving messages for locale.
func WithMessages(p *i18n.Provider, locale string) Option {
	return func(c *Config) {
		c.messages = p
		c.locale = locale
	}
}

// WithFS substitutes the filesystem used for reads and listings.  Intended
// for tests.
func WithFS(fsys fscache.FS) Option {
	return func(c *Config) { c.fs = fsys }
}

// WithConfig overlays an entire Config, as loaded by LoadConfig.
func WithConfig(conf *Config) Option {
	return func(c *Config) {
		*c = *conf
		c.layoutsDirSet = conf.LayoutsDir != ""
		c.partialsDirSet = len(conf.PartialsDirs) != 0
	}
}

// ErrNoPartialSource is returned when a partial source supplies neither a
// directory nor templates.
var ErrNoPartialSource = errors.New("hbs: partial source needs a dir or templates")

func (c *Config) validate() error {
	for i, d := range c.PartialsDirs {
		if d.Dir == "" && d.Templates == nil {
			return fmt.Errorf("hbs: partials dir %d: %w", i, ErrNoPartialSource)
		}
	}
	return nil
}

// yamlPartialDir accepts either a bare string or a mapping with dir and
// namespace keys.
type yamlPartialDir struct {
	Dir       string `yaml:"dir"`
	Namespace string `yaml:"namespace"`
}

func (d *yamlPartialDir) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&d.Dir)
	}
	type plain yamlPartialDir
	return node.Decode((*plain)(d))
}

// yamlConfig distinguishes absent fields (nil pointers) from explicit zero
// values, so file settings overlay defaults field by field.
type yamlConfig struct {
	Extension     *string          `yaml:"extension"`
	Encoding      *string          `yaml:"encoding"`
	LayoutsDir    *string          `yaml:"layouts_dir"`
	PartialsDirs  []yamlPartialDir `yaml:"partials_dirs"`
	DefaultLayout *string          `yaml:"default_layout"`
	CacheSize     *int             `yaml:"cache_size"`
	Debug         *bool            `yaml:"debug"`
	Minify        *bool            `yaml:"minify"`
}

// LoadConfig reads engine settings from a YAML file.  A missing file returns
// defaults without error; fields present in the file override the defaults.
func LoadConfig(path string) (*Config, error) {
	conf := &Config{Extension: DefaultExtension}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return conf, nil
		}
		return nil, err
	}

	var y yamlConfig
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, fmt.Errorf("hbs: parse config %s: %w", path, err)
	}

	if y.Extension != nil {
		WithExtension(*y.Extension)(conf)
	}
	if y.Encoding != nil {
		conf.Encoding = *y.Encoding
	}
	if y.LayoutsDir != nil {
		conf.LayoutsDir = *y.LayoutsDir
	}
	for _, d := range y.PartialsDirs {
		conf.PartialsDirs = append(conf.PartialsDirs, PartialDir{Dir: d.Dir, Namespace: d.Namespace})
	}
	if y.DefaultLayout != nil {
		conf.DefaultLayout = *y.DefaultLayout
	}
	if y.CacheSize != nil {
		conf.CacheSize = *y.CacheSize
	}
	if y.Debug != nil {
		conf.Debug = *y.Debug
	}
	if y.Minify != nil {
		conf.Minify = *y.Minify
	}
	return conf, nil
}

package hbs

import (
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	conf, err := LoadConfig("testdata/config.yaml")
	if err != nil {
		t.Fatal(err)
	}

	if conf.Extension != ".hbs" {
		t.Errorf("extension not normalized: %q", conf.Extension)
	}
	if conf.DefaultLayout != "main" {
		t.Errorf("default_layout: %q", conf.DefaultLayout)
	}
	if conf.LayoutsDir != "testdata/views/layouts" {
		t.Errorf("layouts_dir: %q", conf.LayoutsDir)
	}
	if conf.CacheSize != 64 {
		t.Errorf("cache_size: %d", conf.CacheSize)
	}
	if !conf.Debug {
		t.Error("debug not set")
	}
	if conf.Minify {
		t.Error("minify should be off")
	}

	if len(conf.PartialsDirs) != 2 {
		t.Fatalf("expected 2 partials dirs, got %d", len(conf.PartialsDirs))
	}
	if conf.PartialsDirs[0].Dir != "testdata/views/partials" || conf.PartialsDirs[0].Namespace != "" {
		t.Errorf("bare string dir parsed wrong: %+v", conf.PartialsDirs[0])
	}
	if conf.PartialsDirs[1].Dir != "testdata/partials-a" || conf.PartialsDirs[1].Namespace != "shared" {
		t.Errorf("mapping dir parsed wrong: %+v", conf.PartialsDirs[1])
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	conf, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if conf.Extension != DefaultExtension {
		t.Errorf("expected defaults, got %+v", conf)
	}
}

func TestLoadConfigIntoEngine(t *testing.T) {
	conf, err := LoadConfig("testdata/config.yaml")
	if err != nil {
		t.Fatal(err)
	}
	engine := testEngine(t, WithConfig(conf))

	got, err := engine.RenderView("testdata/views/home.hbs", &ViewOptions{
		Context:   d{"title": "Hi"},
		ViewsPath: []string{"testdata/views"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "<body><h1>Hi</h1></body>" {
		t.Errorf("rendered incorrectly: %q", got)
	}
}

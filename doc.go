/*
Package hbs is a Handlebars view engine for Go web applications.

It loads Handlebars template files from a views directory, compiles and caches
them, resolves partials across one or more directories (optionally namespaced
or renamed), and wraps rendered views in layouts.  The Handlebars language
itself is provided by github.com/aymerick/raymond; this package is the
orchestration around it: discovery, caching, partial naming and layout
composition.

Usage example

Typically a web application keeps its views in one directory, with layouts and
partials beside them:

  app/views/
  app/views/home.hbs
  app/views/layouts/main.hbs
  app/views/partials/nav.hbs

On startup:

  engine, _ := hbs.New(
      hbs.WithDefaultLayout("main"),
      hbs.WithHelpers(map[string]interface{}{
          "upper": strings.ToUpper,
      }),
  )

To render a page:

  html, err := engine.RenderView("app/views/home.hbs", &hbs.ViewOptions{
      Context:   map[string]interface{}{"title": "Home"},
      ViewsPath: []string{"app/views"},
      Cache:     mode == "production",
  })

The layouts and partials directories are derived from the matched views root
unless configured explicitly.  The rendered view is injected into the layout
under the reserved "body" variable, so a minimal layout reads:

  <html><body>{{{body}}}</body></html>

Caching

Three caches are kept: file contents and directory listings, compiled
templates, and precompiled template specs, all keyed by absolute resolved
path.  Callers opt in per call with the Cache option.  ResetCache clears all
three together, wholly or per path; Watch evicts paths automatically when
their files change on disk.
*/
package hbs

/*
hbsweb is a small development server for a directory of Handlebars views.

Invoke it like so:

	go run github.com/hbsx/hbs/hbsweb -views app/views

A request for /account/overview renders app/views/account/overview.hbs,
wrapped in the default layout (pass -layout "" to render views bare).
URL query parameters are
passed to the template as its context.  Nothing is cached, so edits show up
on the next request.
*/
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/hbsx/hbs"
)

var (
	port   = flag.Int("port", 9812, "port on which to listen")
	views  = flag.String("views", "views", "directory of view templates")
	layout = flag.String("layout", "main", "default layout name, empty for none")
	ext    = flag.String("ext", ".hbs", "template file extension")
)

func main() {
	flag.Parse()
	if !strings.HasPrefix(*ext, ".") {
		*ext = "." + *ext
	}
	engine, err := hbs.New(
		hbs.WithExtension(*ext),
		hbs.WithDefaultLayout(*layout),
	)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Listening on :", *port, "...")
	log.Fatal(http.ListenAndServe(
		fmt.Sprintf(":%d", *port),
		handler(engine)))
}

func handler(engine *hbs.Engine) http.HandlerFunc {
	return func(res http.ResponseWriter, req *http.Request) {
		name := strings.Trim(req.URL.Path, "/")
		if name == "" {
			name = "index"
		}
		if strings.Contains(name, "..") {
			http.Error(res, "bad path", http.StatusBadRequest)
			return
		}

		ctx := make(map[string]interface{})
		for k, v := range req.URL.Query() {
			ctx[k] = v[0]
		}

		html, err := engine.RenderView(
			filepath.Join(*views, name+*ext),
			&hbs.ViewOptions{
				Context:   ctx,
				ViewsPath: []string{*views},
			})
		if err != nil {
			http.Error(res, err.Error(), http.StatusInternalServerError)
			return
		}
		io.Copy(res, strings.NewReader(html))
	}
}

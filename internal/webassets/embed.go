// Package webassets embeds the dashboard stylesheet and HTML templates.
package webassets

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed static templates
var embedded embed.FS

func sub(dir string) fs.FS {
	s, err := fs.Sub(embedded, dir)
	if err != nil {
		panic(fmt.Errorf("webassets: %s subfs: %w", dir, err))
	}
	return s
}

// StaticFS holds files served verbatim under /static/.
func StaticFS() fs.FS { return sub("static") }

// TemplateFS holds the html/template sources (*.tmpl).
func TemplateFS() fs.FS { return sub("templates") }

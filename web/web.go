// Package web embeds the chatbot page and the widget script served at
// /static/.
package web

import (
	"embed"
	"io/fs"
)

//go:embed index.html static
var assets embed.FS

// IndexHTML returns the chatbot page.
func IndexHTML() []byte {
	b, err := assets.ReadFile("index.html")
	if err != nil {
		panic(err)
	}
	return b
}

// Static returns the static asset tree rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

package bulletins

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var bulletinTemplate = template.Must(template.New("bulletin.html.tmpl").
	Funcs(template.FuncMap{
		"page":   func(n int, v ViewModel) pageRef { return pageRef{N: n, View: v} },
		"plural": plural,
	}).
	ParseFS(templateFS, "templates/bulletin.html.tmpl"))

type pageRef struct {
	N    int
	View ViewModel
}

type htmlDocument struct {
	View    ViewModel
	Booklet bool
	Pages   []int
	Sheets  []sheetSide
}

func renderHTML(view ViewModel, mode Mode) ([]byte, error) {
	doc := htmlDocument{View: view, Pages: readingOrder}
	if mode == ModeBooklet {
		doc.Booklet = true
		doc.Sheets = bookletImposition
	}
	var buf bytes.Buffer
	if err := bulletinTemplate.Execute(&buf, doc); err != nil {
		return nil, fmt.Errorf("execute bulletin template: %w", err)
	}
	return buf.Bytes(), nil
}

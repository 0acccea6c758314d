package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"sync"
)

//go:embed templates/*.html
var templateFS embed.FS

type TemplateRegistry struct {
	cache map[string]*template.Template
	mu    sync.RWMutex
}

func NewTemplateRegistry() (*TemplateRegistry, error) {
	funcMap := templateFuncMap()

	layout, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, err
	}

	tr := &TemplateRegistry{
		cache: make(map[string]*template.Template),
	}

	// Report page needs the rows partial too
	page, err := template.Must(layout.Clone()).ParseFS(templateFS, "templates/report.html", "templates/report_rows.html")
	if err != nil {
		return nil, err
	}
	tr.cache["templates/report.html"] = page

	// Rows partial (standalone, for HTMX polling and filter changes)
	partial, err := template.New("report_rows.html").Funcs(funcMap).ParseFS(templateFS, "templates/report_rows.html")
	if err != nil {
		return nil, err
	}
	tr.cache["templates/report_rows.html"] = partial

	return tr, nil
}

func (tr *TemplateRegistry) Render(w http.ResponseWriter, name string, data any) {
	tr.mu.RLock()
	t, ok := tr.cache[name]
	tr.mu.RUnlock()

	if !ok {
		http.Error(w, "template not found: "+name, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.Execute(w, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (tr *TemplateRegistry) RenderPartial(w io.Writer, name, block string, data any) error {
	tr.mu.RLock()
	t, ok := tr.cache[name]
	tr.mu.RUnlock()

	if !ok {
		return fmt.Errorf("template not found: %s", name)
	}

	return t.ExecuteTemplate(w, block, data)
}

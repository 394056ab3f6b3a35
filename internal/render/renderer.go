// Package render turns a named template and a form payload into PDF bytes.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"regexp"
	"sync"
)

var (
	// ErrInvalidTemplate is returned for template names outside [A-Za-z0-9_-].
	ErrInvalidTemplate = errors.New("invalid template name")
	// ErrTemplateNotFound is returned when no <name>.html exists.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrConversionFailed is returned when the HTML-to-PDF service rejects a document.
	ErrConversionFailed = errors.New("pdf conversion failed")
)

var templateName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Renderer produces a document from a template name and structured data.
type Renderer interface {
	Render(ctx context.Context, templateName string, data map[string]any) ([]byte, error)
}

// Converter turns an HTML document into PDF bytes.
type Converter interface {
	Convert(ctx context.Context, html []byte) ([]byte, error)
}

// HTMLRenderer executes html/template files from fsys and converts the result.
// Parsed templates are cached by name; it is safe for concurrent use.
type HTMLRenderer struct {
	fsys      fs.FS
	converter Converter

	mu    sync.RWMutex
	cache map[string]*template.Template
}

var _ Renderer = (*HTMLRenderer)(nil)

// NewHTMLRenderer returns a renderer reading <name>.html files from fsys.
func NewHTMLRenderer(fsys fs.FS, converter Converter) *HTMLRenderer {
	return &HTMLRenderer{
		fsys:      fsys,
		converter: converter,
		cache:     make(map[string]*template.Template),
	}
}

// Render implements Renderer.
func (r *HTMLRenderer) Render(ctx context.Context, name string, data map[string]any) ([]byte, error) {
	tmpl, err := r.lookup(name)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute template %s: %w", name, err)
	}

	pdf, err := r.converter.Convert(ctx, buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", name, err)
	}
	return pdf, nil
}

func (r *HTMLRenderer) lookup(name string) (*template.Template, error) {
	if !templateName.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTemplate, name)
	}

	r.mu.RLock()
	tmpl, ok := r.cache[name]
	r.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	file := name + ".html"
	if _, err := fs.Stat(r.fsys, file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, file)
		}
		return nil, fmt.Errorf("stat template %s: %w", file, err)
	}

	tmpl, err := template.New(file).Funcs(funcs).ParseFS(r.fsys, file)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", file, err)
	}

	r.mu.Lock()
	r.cache[name] = tmpl
	r.mu.Unlock()
	return tmpl, nil
}

var funcs = template.FuncMap{
	// default returns def when v is nil or an empty string.
	"default": func(def, v any) any {
		if v == nil {
			return def
		}
		if s, ok := v.(string); ok && s == "" {
			return def
		}
		return v
	},
}

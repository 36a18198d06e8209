package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	ErrTemplateNotFound = errors.New("template not found")

	htmlOpenTag = regexp.MustCompile(`(?i)<html[^>]*>`)
)

// TemplateError marks failures in template parsing or execution, which
// the HTTP layer reports as validation failures rather than engine
// failures.
type TemplateError struct {
	msg string
	err error
}

func (e *TemplateError) Error() string { return e.msg }
func (e *TemplateError) Unwrap() error { return e.err }

// Renderer is the collaborator the generation path talks to. Everything
// about pixels lives behind it; tests swap in a stub.
type Renderer interface {
	BuildHTML(html, css string) string
	RenderTemplate(name string, data map[string]interface{}, css string) (string, error)
	RenderTemplateContent(content string, data map[string]interface{}, css string) (string, error)
	PDF(ctx context.Context, html string) ([]byte, error)
}

// Rasterizer turns a finished HTML document into PDF bytes.
type Rasterizer interface {
	PDF(ctx context.Context, html string) ([]byte, error)
}

type Engine struct {
	templateDir string
	rasterizer  Rasterizer
}

func NewEngine(templateDir string, rasterizer Rasterizer) *Engine {
	return &Engine{templateDir: templateDir, rasterizer: rasterizer}
}

// BuildHTML injects the optional CSS into the markup: before </head> if
// there is one, after the <html> tag otherwise, else the markup is
// wrapped into a full document.
func (e *Engine) BuildHTML(html, css string) string {
	if css == "" {
		return html
	}
	styleTag := "<style>" + css + "</style>"

	if idx := strings.Index(strings.ToLower(html), "</head>"); idx != -1 {
		return html[:idx] + styleTag + html[idx:]
	}
	if loc := htmlOpenTag.FindStringIndex(html); loc != nil {
		return html[:loc[1]] + "<head>" + styleTag + "</head>" + html[loc[1]:]
	}
	return "<html><head>" + styleTag + "</head><body>" + html + "</body></html>"
}

// RenderTemplate renders a named template from the template directory.
// The CSS is exposed to the template as the "css" variable.
func (e *Engine) RenderTemplate(name string, data map[string]interface{}, css string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", ErrTemplateNotFound
	}
	path := filepath.Join(e.templateDir, name)
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrTemplateNotFound
		}
		return "", err
	}
	return e.execute(name, string(content), data, css)
}

// RenderTemplateContent renders an uploaded template body.
func (e *Engine) RenderTemplateContent(content string, data map[string]interface{}, css string) (string, error) {
	return e.execute("upload", content, data, css)
}

func (e *Engine) execute(name, content string, data map[string]interface{}, css string) (string, error) {
	tmpl, err := template.New(name).Parse(content)
	if err != nil {
		return "", &TemplateError{msg: fmt.Sprintf("template %q failed to parse", name), err: err}
	}

	vars := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		vars[k] = v
	}
	vars["css"] = template.CSS(css)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", &TemplateError{msg: fmt.Sprintf("template %q failed to render", name), err: err}
	}
	return buf.String(), nil
}

func (e *Engine) PDF(ctx context.Context, html string) ([]byte, error) {
	return e.rasterizer.PDF(ctx, html)
}

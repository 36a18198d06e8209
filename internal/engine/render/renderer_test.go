package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeRasterizer struct {
	lastHTML string
}

func (f *fakeRasterizer) PDF(ctx context.Context, html string) ([]byte, error) {
	f.lastHTML = html
	return []byte("pdf"), nil
}

func TestBuildHTML(t *testing.T) {
	e := NewEngine("", nil)

	t.Run("no css passes through", func(t *testing.T) {
		html := "<html><body>hi</body></html>"
		if got := e.BuildHTML(html, ""); got != html {
			t.Errorf("Expected unchanged markup, got %s", got)
		}
	})

	t.Run("injects before closing head", func(t *testing.T) {
		got := e.BuildHTML("<html><head><title>x</title></head><body>hi</body></html>", "p { margin: 0 }")
		want := "<style>p { margin: 0 }</style></head>"
		if !strings.Contains(got, want) {
			t.Errorf("Expected style before </head>, got %s", got)
		}
	})

	t.Run("injects head after html tag", func(t *testing.T) {
		got := e.BuildHTML(`<html lang="en"><body>hi</body></html>`, "p {}")
		want := `<html lang="en"><head><style>p {}</style></head>`
		if !strings.HasPrefix(got, want) {
			t.Errorf("Expected head injected after html tag, got %s", got)
		}
	})

	t.Run("wraps a fragment", func(t *testing.T) {
		got := e.BuildHTML("<p>hi</p>", "p {}")
		if !strings.HasPrefix(got, "<html><head><style>p {}</style></head><body>") {
			t.Errorf("Expected fragment wrapped into a document, got %s", got)
		}
		if !strings.Contains(got, "<p>hi</p>") {
			t.Errorf("Expected original fragment preserved, got %s", got)
		}
	})
}

func TestRenderTemplate(t *testing.T) {
	dir := t.TempDir()
	content := `<html><head><style>{{.css}}</style></head><body><h1>{{.title}}</h1></body></html>`
	if err := os.WriteFile(filepath.Join(dir, "doc.html"), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write template: %v", err)
	}
	e := NewEngine(dir, nil)

	got, err := e.RenderTemplate("doc.html", map[string]interface{}{"title": "Report"}, "h1 { color: red }")
	if err != nil {
		t.Fatalf("Failed to render: %v", err)
	}
	if !strings.Contains(got, "<h1>Report</h1>") {
		t.Errorf("Expected data substituted, got %s", got)
	}
	if !strings.Contains(got, "h1 { color: red }") {
		t.Errorf("Expected css passed through unescaped, got %s", got)
	}
}

func TestRenderTemplateNotFound(t *testing.T) {
	e := NewEngine(t.TempDir(), nil)

	if _, err := e.RenderTemplate("missing.html", nil, ""); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("Expected ErrTemplateNotFound, got %v", err)
	}
	if _, err := e.RenderTemplate("", nil, ""); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("Expected ErrTemplateNotFound for empty name, got %v", err)
	}
}

func TestRenderTemplateRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(dir, "secret.html")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	sub := filepath.Join(dir, "templates")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("Failed to make dir: %v", err)
	}
	e := NewEngine(sub, nil)

	for _, name := range []string{"../secret.html", "sub/secret.html", "/etc/hostname"} {
		if _, err := e.RenderTemplate(name, nil, ""); !errors.Is(err, ErrTemplateNotFound) {
			t.Errorf("Expected traversal %q rejected, got %v", name, err)
		}
	}
}

func TestRenderTemplateContent(t *testing.T) {
	e := NewEngine("", nil)

	got, err := e.RenderTemplateContent(
		`<p>{{.name}} owes {{.amount}}</p>`,
		map[string]interface{}{"name": "Acme", "amount": 42}, "")
	if err != nil {
		t.Fatalf("Failed to render: %v", err)
	}
	if got != "<p>Acme owes 42</p>" {
		t.Errorf("Unexpected output: %s", got)
	}
}

func TestRenderTemplateContentParseError(t *testing.T) {
	e := NewEngine("", nil)

	_, err := e.RenderTemplateContent(`<p>{{.unclosed</p>`, nil, "")
	if err == nil {
		t.Fatal("Expected parse error")
	}
	var terr *TemplateError
	if !errors.As(err, &terr) {
		t.Errorf("Expected TemplateError, got %T", err)
	}
}

func TestRenderTemplateContentExecError(t *testing.T) {
	e := NewEngine("", nil)

	// calling a missing method fails at execute time
	_, err := e.RenderTemplateContent(`{{.x.Missing}}`, map[string]interface{}{"x": 1}, "")
	var terr *TemplateError
	if !errors.As(err, &terr) {
		t.Errorf("Expected TemplateError, got %v", err)
	}
}

func TestEngineDelegatesPDF(t *testing.T) {
	raster := &fakeRasterizer{}
	e := NewEngine("", raster)

	pdf, err := e.PDF(context.Background(), "<html></html>")
	if err != nil {
		t.Fatalf("Failed to rasterize: %v", err)
	}
	if string(pdf) != "pdf" || raster.lastHTML != "<html></html>" {
		t.Errorf("Expected delegation to rasterizer, got %s / %s", pdf, raster.lastHTML)
	}
}

package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFragment(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	writeFragment(t, dir, "card.html", `{{define "card"}}<div>{{.Title}}</div>{{end}}`)

	r, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	html, err := r.Render("card", map[string]string{"Title": "Heat Zones"})
	if err != nil {
		t.Fatal(err)
	}
	if html != "<div>Heat Zones</div>" {
		t.Fatalf("html=%q", html)
	}

	if _, err := r.Render("no-such-template", nil); err == nil {
		t.Fatal("unknown template must error")
	}
}

func TestRenderEscapes(t *testing.T) {
	dir := t.TempDir()
	writeFragment(t, dir, "card.html", `{{define "card"}}<div>{{.}}</div>{{end}}`)

	r, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	html, err := r.Render("card", `<script>alert(1)</script>`)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatalf("unescaped output: %q", html)
	}
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	writeFragment(t, dir, "card.html", `{{define "card"}}v1{{end}}`)

	r, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	writeFragment(t, dir, "card.html", `{{define "card"}}v2{{end}}`)
	if err := r.Reload(dir); err != nil {
		t.Fatal(err)
	}

	html, err := r.Render("card", nil)
	if err != nil {
		t.Fatal(err)
	}
	if html != "v2" {
		t.Fatalf("html=%q, want v2", html)
	}
}

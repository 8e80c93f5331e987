// Package web renders the public page, login page, and admin console from
// the settings singleton and the ordered category tree.
package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"

	"waypost/internal/directory"
)

//go:embed templates/*.html
var templateFS embed.FS

// Theme is one of the selectable appearance presets.
type Theme struct {
	ID    string
	Name  string
	Color string
}

// Themes lists the presets in menu order; the first matching
// Settings.AppearanceMode becomes the default for new visitors.
var Themes = []Theme{
	{ID: "mint", Name: "薄荷清新", Color: "#4ECDC4"},
	{ID: "lavender", Name: "薰衣草梦幻", Color: "#A78BFA"},
	{ID: "lemon", Name: "阳光柠檬派", Color: "#FCD34D"},
	{ID: "candy", Name: "棉花糖乐园", Color: "#F9A8D4"},
	{ID: "ocean", Name: "海洋探险", Color: "#4C9BFF"},
	{ID: "galaxy", Name: "银河探索", Color: "#1e1b4b"},
	{ID: "midnight", Name: "极致纯黑", Color: "#000000"},
}

type HomeData struct {
	Settings   directory.Settings
	Categories []directory.Category
	Themes     []Theme
}

type AdminData struct {
	Settings   directory.Settings
	Categories []directory.Category
	Themes     []Theme
}

type Renderer struct {
	templates *template.Template
}

func New() (*Renderer, error) {
	funcMap := template.FuncMap{
		// jsonPayload inlines server state for the admin console's staged
		// client-side editing.
		"jsonPayload": func(v any) (template.JS, error) {
			encoded, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return template.JS(encoded), nil
		},
	}

	templates, err := template.New("web").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: templates}, nil
}

// Home renders the public directory page. Categories must already be
// normalized by sort order.
func (r *Renderer) Home(data HomeData) ([]byte, error) {
	return r.render("home.html", data)
}

// Login renders the admin password prompt.
func (r *Renderer) Login() ([]byte, error) {
	return r.render("login.html", nil)
}

// Admin renders the admin console with the current state inlined.
func (r *Renderer) Admin(data AdminData) ([]byte, error) {
	return r.render("admin.html", data)
}

func (r *Renderer) render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

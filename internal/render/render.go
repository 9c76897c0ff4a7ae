// Package render turns column and field descriptors into HTML. Pages are
// assembled from sections (text, tables, forms, links) and rendered by one
// embedded layout, so handlers never write markup.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/dom/stay-portal/internal/domain"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

// Link is a navigation or row action. Post renders a one-button form.
type Link struct {
	Label  string
	Href   string
	Post   bool
	Fields map[string]string // hidden fields of a Post link
}

// Section is one block of a page; unset parts are skipped
type Section struct {
	Heading string
	Text    []string
	Table   *Table
	Form    *Form
	Links   []Link
}

// Page is everything the layout needs
type Page struct {
	Title    string
	User     string // email of the signed-in user, empty when anonymous
	Role     domain.Role
	Nav      []Link
	Flashes  []domain.Flash
	Sections []Section
	// Live enables the notification socket
	Live bool
}

type Renderer struct {
	tmpl *template.Template
}

func New() (*Renderer, error) {
	tmpl, err := template.New("layout.html").Funcs(template.FuncMap{
		"flashClass": flashClass,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render writes the page with status. The page is rendered to a buffer
// first so a template error never leaves half a document.
func (r *Renderer) Render(w http.ResponseWriter, status int, p Page) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "layout.html", p); err != nil {
		log.Error().Err(err).Str("component", "render").Str("title", p.Title).Msg("Failed to render page")
		http.Error(w, "Something went wrong", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func flashClass(level domain.FlashLevel) string {
	switch level {
	case domain.FlashSuccess:
		return "notice notice-success"
	case domain.FlashError:
		return "notice notice-error"
	}
	return "notice notice-info"
}

// NavFor lists the destinations a role can reach
func NavFor(role domain.Role) []Link {
	switch role {
	case domain.RoleGuest:
		return []Link{
			{Label: "Dashboard", Href: role.Dashboard()},
			{Label: "Properties", Href: "/properties"},
			{Label: "My Bookings", Href: "/bookings"},
			{Label: "Reviews", Href: "/reviews"},
			{Label: "Profile", Href: "/profile"},
		}
	case domain.RoleHost:
		return []Link{
			{Label: "Dashboard", Href: role.Dashboard()},
			{Label: "My Properties", Href: "/properties"},
			{Label: "Bookings", Href: "/bookings"},
			{Label: "Reviews", Href: "/reviews"},
			{Label: "Profile", Href: "/profile"},
		}
	case domain.RoleAdmin:
		return []Link{
			{Label: "Dashboard", Href: role.Dashboard()},
			{Label: "Users", Href: "/admin/users"},
			{Label: "Properties", Href: "/properties"},
			{Label: "Bookings", Href: "/bookings"},
			{Label: "Reviews", Href: "/reviews"},
			{Label: "Profile", Href: "/profile"},
		}
	}
	return []Link{
		{Label: "Login", Href: "/login"},
		{Label: "Register", Href: "/register"},
	}
}

// Confirm is the page shown before a destructive action. Its form posts
// confirm=yes back to action.
func Confirm(title, message, action, cancel string) Section {
	return Section{
		Heading: title,
		Text:    []string{message},
		Form: &Form{
			Action: action,
			Submit: "Yes, continue",
			Fields: []Field{{Name: "confirm", Type: "hidden", Value: "yes"}},
		},
		Links: []Link{{Label: "Cancel", Href: cancel}},
	}
}

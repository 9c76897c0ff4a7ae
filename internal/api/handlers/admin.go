package handlers

import (
	"net/http"

	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/render"
	"github.com/dom/stay-portal/internal/service"
	"github.com/dom/stay-portal/internal/websocket"
	"github.com/go-chi/chi/v5"
)

// AdminHandler serves the user management pages
type AdminHandler struct {
	base
}

func NewAdminHandler(views *render.Renderer, services *service.Services, hub *websocket.Hub) *AdminHandler {
	return &AdminHandler{base: base{views: views, services: services, hub: hub}}
}

func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(r)

	p := render.Page{Title: "Users"}
	if err := ws.Users.Load(r.Context(), h.identity(r)); err != nil {
		f, ok := h.failPage(w, r, err, "Failed to load users")
		if !ok {
			return
		}
		p.Flashes = append(p.Flashes, f)
	}
	if r.URL.Query().Has("q") {
		ws.Users.SetQuery(r.URL.Query().Get("q"))
	}

	p.Sections = []render.Section{
		{
			Form: &render.Form{
				Action: "/admin/users",
				Method: "get",
				Submit: "Filter",
				Fields: []render.Field{{Name: "q", Label: "Search users", Type: "search", Value: ws.Users.Query(), Placeholder: "Name, email, phone or role"}},
			},
		},
		{
			Table: render.NewTable(ws.Users.Filtered(), userColumns(), userActions(), "No users match."),
			Links: []render.Link{{Label: "Add admin", Href: "/admin/users/new"}},
		},
	}
	h.page(w, r, http.StatusOK, p)
}

func userColumns() []render.Column[domain.User] {
	return []render.Column[domain.User]{
		{Header: "Name", Value: func(u domain.User) string { return u.FullName() }},
		{Header: "Email", Value: func(u domain.User) string { return u.Email }},
		{Header: "Phone", Value: func(u domain.User) string { return u.PhoneNumber }},
		{Header: "Role", Value: func(u domain.User) string { return u.Role.DisplayName() }},
		{Header: "Status", Value: func(u domain.User) string {
			if u.Active {
				return "Active"
			}
			return "Inactive"
		}},
	}
}

func userActions() []render.Action[domain.User] {
	toggle := func(u domain.User) string { return "/admin/users/" + u.ID + "/toggle" }
	return []render.Action[domain.User]{
		{Label: "Edit", Href: func(u domain.User) string { return "/admin/users/" + u.ID + "/edit" }},
		{Label: "Deactivate", Href: toggle, Show: func(u domain.User) bool { return u.Active }},
		{Label: "Activate", Href: toggle, Show: func(u domain.User) bool { return !u.Active }},
	}
}

func (h *AdminHandler) TogglePage(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	u, ok := h.workspace(r).Users.User(userID)
	if !ok {
		h.fail(w, r, service.ErrNotLoaded, "", "/admin/users")
		return
	}

	verb := "Activate"
	if u.Active {
		verb = "Deactivate"
	}
	h.page(w, r, http.StatusOK, render.Page{
		Title: verb + " user",
		Sections: []render.Section{render.Confirm(verb+" user",
			verb+" the account of "+u.FullName()+" ("+u.Email+")?", "/admin/users/"+userID+"/toggle", "/admin/users")},
	})
}

func (h *AdminHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	u, err := h.workspace(r).Users.Toggle(r.Context(), h.identity(r), userID, confirmed(r))
	if err != nil {
		h.fail(w, r, err, "Failed to update user status", "/admin/users")
		return
	}

	msg := u.FullName() + " has been deactivated."
	if u.Active {
		msg = u.FullName() + " has been activated."
	}
	h.success(w, r, msg, "/admin/users")
}

func (h *AdminHandler) NewPage(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, http.StatusOK, render.Page{
		Title: "Add admin",
		Sections: []render.Section{{
			Text: []string{"New accounts created here always have the Admin role."},
			Form: &render.Form{
				Action: "/admin/users",
				Submit: "Create admin",
				Fields: []render.Field{
					{Name: "firstName", Label: "First name", Type: "text", Required: true},
					{Name: "lastName", Label: "Last name", Type: "text", Required: true},
					{Name: "email", Label: "Email", Type: "email", Required: true},
					{Name: "phoneNumber", Label: "Phone number", Type: "tel", Placeholder: "+254712345678", Required: true},
				},
			},
		}},
	})
}

func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	created, err := h.workspace(r).Users.Create(r.Context(), h.identity(r), domain.NewAdminUser{
		FirstName:   r.FormValue("firstName"),
		LastName:    r.FormValue("lastName"),
		Email:       r.FormValue("email"),
		PhoneNumber: r.FormValue("phoneNumber"),
	})
	if err != nil {
		h.fail(w, r, err, "Failed to create user", "/admin/users/new")
		return
	}
	h.success(w, r, "Admin "+created.Email+" created.", "/admin/users")
}

func (h *AdminHandler) EditPage(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	u, ok := h.workspace(r).Users.User(userID)
	if !ok {
		h.fail(w, r, service.ErrNotLoaded, "", "/admin/users")
		return
	}

	h.page(w, r, http.StatusOK, render.Page{
		Title: "Edit " + u.FullName(),
		Sections: []render.Section{{
			Text: []string{u.Email + " · " + u.Role.DisplayName()},
			Form: &render.Form{
				Action: "/admin/users/" + u.ID,
				Submit: "Save",
				Fields: []render.Field{
					{Name: "firstName", Label: "First name", Type: "text", Value: u.FirstName, Required: true},
					{Name: "lastName", Label: "Last name", Type: "text", Value: u.LastName, Required: true},
					{Name: "phoneNumber", Label: "Phone number", Type: "tel", Value: u.PhoneNumber, Required: true},
				},
			},
		}},
	})
}

func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	_, err := h.workspace(r).Users.Update(r.Context(), h.identity(r), userID, domain.UserUpdate{
		FirstName:   r.FormValue("firstName"),
		LastName:    r.FormValue("lastName"),
		PhoneNumber: r.FormValue("phoneNumber"),
	})
	if err != nil {
		h.fail(w, r, err, "Failed to update user", "/admin/users/"+userID+"/edit")
		return
	}
	h.success(w, r, "User updated.", "/admin/users")
}

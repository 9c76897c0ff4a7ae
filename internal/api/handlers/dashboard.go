package handlers

import (
	"fmt"
	"net/http"

	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/render"
	"github.com/dom/stay-portal/internal/service"
	"github.com/dom/stay-portal/internal/websocket"
)

type DashboardHandler struct {
	base
}

func NewDashboardHandler(views *render.Renderer, services *service.Services, hub *websocket.Hub) *DashboardHandler {
	return &DashboardHandler{base: base{views: views, services: services, hub: hub}}
}

// Show renders the signed-in role's dashboard: counts by booking status
// and the role's shortcuts
func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	id := h.identity(r)
	ws := h.workspace(r)

	p := render.Page{Title: id.Role.DisplayName() + " dashboard"}
	if err := ws.Bookings.Refresh(r.Context(), id); err != nil {
		f, ok := h.failPage(w, r, err, "Failed to load bookings")
		if !ok {
			return
		}
		p.Flashes = append(p.Flashes, f)
	}

	bookings := ws.Bookings.Snapshot().Bookings
	counts := make(map[domain.BookingStatus]int)
	for _, b := range bookings {
		counts[b.Status]++
	}

	summary := render.Section{
		Heading: "Welcome, " + id.Email,
		Text: []string{
			fmt.Sprintf("%d bookings: %d pending, %d confirmed, %d completed, %d cancelled.",
				len(bookings),
				counts[domain.BookingStatusPending],
				counts[domain.BookingStatusConfirmed],
				counts[domain.BookingStatusCompleted],
				counts[domain.BookingStatusCanceled]),
		},
	}

	switch id.Role {
	case domain.RoleGuest:
		summary.Links = []render.Link{
			{Label: "Book a property", Href: "/bookings/new"},
			{Label: "My Bookings", Href: "/bookings"},
			{Label: "Write a review", Href: "/reviews"},
		}
	case domain.RoleHost:
		if props, err := h.services.Properties.List(r.Context(), ws.API, id); err == nil {
			summary.Text = append(summary.Text, fmt.Sprintf("%d properties listed.", len(props)))
		}
		summary.Links = []render.Link{
			{Label: "Add property", Href: "/properties/new"},
			{Label: "My Properties", Href: "/properties"},
			{Label: "Bookings", Href: "/bookings"},
		}
	case domain.RoleAdmin:
		if err := ws.Users.Load(r.Context(), id); err == nil {
			summary.Text = append(summary.Text, fmt.Sprintf("%d users registered.", ws.Users.Len()))
		}
		summary.Links = []render.Link{
			{Label: "Manage users", Href: "/admin/users"},
			{Label: "Properties", Href: "/properties"},
			{Label: "Bookings", Href: "/bookings"},
		}
	}
	p.Sections = append(p.Sections, summary)

	h.page(w, r, http.StatusOK, p)
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/dom/stay-portal/internal/auth"
	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/render"
	"github.com/dom/stay-portal/internal/service"
	"github.com/dom/stay-portal/internal/websocket"
	"github.com/go-chi/chi/v5"
)

type PropertyHandler struct {
	base
	properties *service.PropertyService
}

func NewPropertyHandler(views *render.Renderer, services *service.Services, hub *websocket.Hub) *PropertyHandler {
	return &PropertyHandler{
		base:       base{views: views, services: services, hub: hub},
		properties: services.Properties,
	}
}

func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	id := h.identity(r)
	ws := h.workspace(r)
	search := service.SearchForm{Filter: r.URL.Query().Get("filter"), Query: r.URL.Query().Get("q")}
	if search.Filter == "" {
		search.Filter = "location"
	}

	p := render.Page{Title: "Properties"}
	if id.Role == domain.RoleHost {
		p.Title = "My Properties"
	}

	var (
		props []domain.Property
		err   error
	)
	if search.Query != "" {
		props, err = h.properties.Search(r.Context(), ws.API, search)
	} else {
		props, err = h.properties.List(r.Context(), ws.API, id)
	}
	if err != nil {
		f, ok := h.failPage(w, r, err, "Failed to load properties")
		if !ok {
			return
		}
		p.Flashes = append(p.Flashes, f)
	}

	p.Sections = append(p.Sections, render.Section{
		Form: &render.Form{
			Action: "/properties",
			Method: "get",
			Submit: "Search",
			Fields: []render.Field{
				{Name: "filter", Label: "Search by", Type: "select", Options: render.Options(search.Filter,
					"location", "Location", "description", "Description", "price", "Price range", "guests", "Guests")},
				{Name: "q", Label: "Search", Type: "text", Value: search.Query, Placeholder: "Nairobi, 1000-5000, 2"},
			},
		},
	})

	section := render.Section{
		Table: render.NewTable(props, propertyColumns(id), propertyActions(id), "No properties found."),
	}
	if id.Role == domain.RoleHost || id.Role == domain.RoleAdmin {
		section.Links = []render.Link{{Label: "Add property", Href: "/properties/new"}}
	}
	if search.Query != "" {
		section.Links = append(section.Links, render.Link{Label: "Clear search", Href: "/properties"})
	}
	p.Sections = append(p.Sections, section)

	h.page(w, r, http.StatusOK, p)
}

func propertyColumns(id *domain.Identity) []render.Column[domain.Property] {
	cols := []render.Column[domain.Property]{
		{Header: "Name", Value: func(p domain.Property) string { return p.Name }},
		{Header: "Location", Value: func(p domain.Property) string { return p.Location }},
		{Header: "Description", Value: func(p domain.Property) string { return p.Description }},
		{Header: "Price per night", Value: func(p domain.Property) string {
			return p.Currency + " " + domain.FormatAmount(p.PricePerNight)
		}},
	}
	switch id.Role {
	case domain.RoleGuest:
		cols = append(cols, render.Column[domain.Property]{Header: "Tonight", Value: func(p domain.Property) string {
			if p.Booked {
				return "Booked"
			}
			return "Available"
		}})
	case domain.RoleAdmin:
		cols = append(cols, render.Column[domain.Property]{Header: "Host", Value: func(p domain.Property) string { return p.HostEmail }})
	}
	return cols
}

func propertyActions(id *domain.Identity) []render.Action[domain.Property] {
	return []render.Action[domain.Property]{
		{
			Label: "Book",
			Href:  func(p domain.Property) string { return "/bookings/select/" + p.ID },
			Post:  true,
			Show:  func(p domain.Property) bool { return auth.CanCreateBooking(id) && !p.Booked },
		},
		{
			Label: "Reviews",
			Href:  func(p domain.Property) string { return "/reviews?propertyId=" + p.ID },
		},
		{
			Label: "Edit",
			Href:  func(p domain.Property) string { return "/properties/" + p.ID + "/edit" },
			Show:  func(p domain.Property) bool { return auth.CanManageProperty(id, &p) },
		},
		{
			Label: "Delete",
			Href:  func(p domain.Property) string { return "/properties/" + p.ID + "/delete" },
			Show:  func(p domain.Property) bool { return auth.CanManageProperty(id, &p) },
		},
	}
}

func propertyForm(action, submit string, p domain.Property) *render.Form {
	price := ""
	if p.PricePerNight > 0 {
		price = strconv.FormatFloat(p.PricePerNight, 'f', -1, 64)
	}
	currency := p.Currency
	if currency == "" {
		currency = "KES"
	}
	return &render.Form{
		Action: action,
		Submit: submit,
		Fields: []render.Field{
			{Name: "name", Label: "Name", Type: "text", Value: p.Name, Required: true},
			{Name: "location", Label: "Location", Type: "text", Value: p.Location, Required: true},
			{Name: "description", Label: "Description", Type: "textarea", Value: p.Description},
			{Name: "pricePerNight", Label: "Price per night", Type: "number", Value: price, Min: "1", Required: true},
			{Name: "currency", Label: "Currency", Type: "text", Value: currency, Required: true},
		},
	}
}

// propertyInput reads the create/edit form
func propertyInput(r *http.Request) (domain.PropertyInput, error) {
	price, err := strconv.ParseFloat(formValue(r, "pricePerNight"), 64)
	if err != nil {
		return domain.PropertyInput{}, domain.Invalid("pricePerNight", "Price per night must be a number")
	}
	return domain.PropertyInput{
		Name:          formValue(r, "name"),
		Description:   formValue(r, "description"),
		Location:      formValue(r, "location"),
		PricePerNight: price,
		Currency:      formValue(r, "currency"),
	}, nil
}

func (h *PropertyHandler) NewPage(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, http.StatusOK, render.Page{
		Title:    "Add property",
		Sections: []render.Section{{Form: propertyForm("/properties", "Create", domain.Property{})}},
	})
}

func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := propertyInput(r)
	if err == nil {
		_, err = h.properties.Create(r.Context(), h.workspace(r).API, h.identity(r), in)
	}
	if err != nil {
		h.fail(w, r, err, "Failed to create property", "/properties/new")
		return
	}
	h.success(w, r, "Property created.", "/properties")
}

func (h *PropertyHandler) EditPage(w http.ResponseWriter, r *http.Request) {
	propertyID := chi.URLParam(r, "propertyID")
	prop, err := h.properties.Get(r.Context(), h.workspace(r).API, propertyID)
	if err != nil {
		h.fail(w, r, err, "Failed to load property", "/properties")
		return
	}
	if !auth.CanManageProperty(h.identity(r), prop) {
		h.fail(w, r, domain.ErrForbidden, "", "/properties")
		return
	}

	h.page(w, r, http.StatusOK, render.Page{
		Title:    "Edit " + prop.Name,
		Sections: []render.Section{{Form: propertyForm("/properties/"+prop.ID, "Save", *prop)}},
	})
}

func (h *PropertyHandler) Update(w http.ResponseWriter, r *http.Request) {
	propertyID := chi.URLParam(r, "propertyID")
	in, err := propertyInput(r)
	if err == nil {
		_, err = h.properties.Update(r.Context(), h.workspace(r).API, h.identity(r), propertyID, in)
	}
	if err != nil {
		h.fail(w, r, err, "Failed to update property", "/properties/"+propertyID+"/edit")
		return
	}
	h.success(w, r, "Property updated.", "/properties")
}

func (h *PropertyHandler) DeletePage(w http.ResponseWriter, r *http.Request) {
	propertyID := chi.URLParam(r, "propertyID")
	h.page(w, r, http.StatusOK, render.Page{
		Title: "Delete property",
		Sections: []render.Section{render.Confirm("Delete property",
			"This removes the property and cannot be undone. Continue?", "/properties/"+propertyID+"/delete", "/properties")},
	})
}

func (h *PropertyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	propertyID := chi.URLParam(r, "propertyID")
	err := h.properties.Delete(r.Context(), h.workspace(r).API, h.identity(r), propertyID, confirmed(r))
	if err != nil {
		h.fail(w, r, err, "Failed to delete property", "/properties")
		return
	}
	h.success(w, r, "Property deleted.", "/properties")
}

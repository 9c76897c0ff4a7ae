package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dom/stay-portal/internal/auth"
	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/render"
	"github.com/dom/stay-portal/internal/service"
	"github.com/dom/stay-portal/internal/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type BookingHandler struct {
	base
}

func NewBookingHandler(views *render.Renderer, services *service.Services, hub *websocket.Hub) *BookingHandler {
	return &BookingHandler{base: base{views: views, services: services, hub: hub}}
}

func bookingColumns() []render.Column[domain.Booking] {
	return []render.Column[domain.Booking]{
		{Header: "Property", Value: func(b domain.Booking) string {
			if b.PropertyName != "" {
				return b.PropertyName
			}
			return b.PropertyID
		}},
		{Header: "Check-in", Value: func(b domain.Booking) string { return b.StartDate.String() }},
		{Header: "Check-out", Value: func(b domain.Booking) string { return b.EndDate.String() }},
		{Header: "Nights", Value: func(b domain.Booking) string { return fmt.Sprint(b.StartDate.NightsUntil(b.EndDate)) }},
		{Header: "Total", Value: func(b domain.Booking) string { return domain.FormatAmount(b.TotalPrice) }},
		{Header: "Status", Value: func(b domain.Booking) string { return string(b.Status) }},
	}
}

func bookingActions(id *domain.Identity, reviewed map[string]bool) []render.Action[domain.Booking] {
	return []render.Action[domain.Booking]{
		{
			Label: "Pay",
			Href:  func(b domain.Booking) string { return "/bookings/" + b.ID + "/pay" },
			Show:  func(b domain.Booking) bool { return auth.CanPayBooking(id, &b) },
		},
		{
			Label: "Review",
			Href:  func(b domain.Booking) string { return "/reviews/new?bookingId=" + b.ID },
			Show:  func(b domain.Booking) bool { return auth.CanCreateReview(id, &b, reviewed) },
		},
		{
			Label: "Cancel",
			Href:  func(b domain.Booking) string { return "/bookings/" + b.ID + "/cancel" },
			Show:  func(b domain.Booking) bool { return auth.CanCancelBooking(id, &b) },
		},
		{
			Label: "Delete",
			Href:  func(b domain.Booking) string { return "/bookings/" + b.ID + "/delete" },
			Show:  func(domain.Booking) bool { return auth.CanDeleteBooking(id) },
		},
	}
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	id := h.identity(r)
	ws := h.workspace(r)

	p := render.Page{Title: "Bookings"}
	if id.Role == domain.RoleGuest {
		p.Title = "My Bookings"
	}
	if err := ws.Bookings.Refresh(r.Context(), id); err != nil {
		f, ok := h.failPage(w, r, err, "Failed to load bookings")
		if !ok {
			return
		}
		p.Flashes = append(p.Flashes, f)
	}

	view := ws.Bookings.Snapshot()
	reviewed := h.reviewedBookings(r.Context(), ws, id, view.Bookings)
	section := render.Section{
		Table: render.NewTable(view.Bookings, bookingColumns(), bookingActions(id, reviewed), "No bookings yet."),
	}
	if auth.CanCreateBooking(id) {
		section.Links = []render.Link{{Label: "Book a property", Href: "/bookings/new"}}
	}
	p.Sections = append(p.Sections, section)

	h.page(w, r, http.StatusOK, p)
}

// reviewedBookings is the review workflow's reviewed set, refreshed when a
// COMPLETED booking on the list is unknown to it
func (h *BookingHandler) reviewedBookings(ctx context.Context, ws *service.Workspace, id *domain.Identity, bookings []domain.Booking) map[string]bool {
	if id.Role != domain.RoleGuest {
		return nil
	}

	view := ws.Reviews.Snapshot()
	known := make(map[string]bool, len(view.Bookings))
	for _, b := range view.Bookings {
		known[b.ID] = true
	}
	for _, b := range bookings {
		if b.Status == domain.BookingStatusCompleted && !known[b.ID] {
			if err := ws.Reviews.RefreshBookings(ctx, id); err != nil {
				log.Warn().Err(err).Str("component", "web").Msg("Reviewed bookings unknown")
			}
			return ws.Reviews.Snapshot().Reviewed
		}
	}
	return view.Reviewed
}

// New is the guest's booking page: the catalogue, then the dates and
// price of the selected property, then the payment choice once created.
func (h *BookingHandler) New(w http.ResponseWriter, r *http.Request) {
	id := h.identity(r)
	ws := h.workspace(r)

	p := render.Page{Title: "Book a property"}
	if err := ws.Bookings.LoadProperties(r.Context(), id); err != nil {
		f, ok := h.failPage(w, r, err, "Failed to load properties")
		if !ok {
			return
		}
		p.Flashes = append(p.Flashes, f)
	}

	view := ws.Bookings.Snapshot()

	switch view.State {
	case service.StatePaymentChoice:
		if view.Created != nil {
			b := view.Created
			p.Sections = append(p.Sections, render.Section{
				Heading: "Booking created",
				Text: []string{
					fmt.Sprintf("%s to %s, total %s. Pay now or later from My Bookings.",
						b.StartDate, b.EndDate, domain.FormatAmount(b.TotalPrice)),
				},
				Links: []render.Link{
					{Label: "Pay now", Href: "/bookings/" + b.ID + "/pay"},
					{Label: "Pay later", Href: "/bookings/defer", Post: true},
				},
			})
		}
	case service.StateSelecting, service.StatePricePending, service.StatePriceReady:
		if view.Selected != nil {
			p.Sections = append(p.Sections, h.selectionSection(view))
		}
	}

	p.Sections = append(p.Sections, render.Section{
		Heading: "Properties",
		Table: render.NewTable(view.Properties,
			[]render.Column[domain.Property]{
				{Header: "Name", Value: func(prop domain.Property) string { return prop.Name }},
				{Header: "Location", Value: func(prop domain.Property) string { return prop.Location }},
				{Header: "Price per night", Value: func(prop domain.Property) string {
					return prop.Currency + " " + domain.FormatAmount(prop.PricePerNight)
				}},
				{Header: "Tonight", Value: func(prop domain.Property) string {
					if prop.Booked {
						return "Booked"
					}
					return "Available"
				}},
			},
			[]render.Action[domain.Property]{{
				Label: "Select",
				Href:  func(prop domain.Property) string { return "/bookings/select/" + prop.ID },
				Post:  true,
				Show:  func(prop domain.Property) bool { return !prop.Booked },
			}},
			"No properties available."),
	})

	h.page(w, r, http.StatusOK, p)
}

func (h *BookingHandler) selectionSection(view service.BookingView) render.Section {
	today := domain.NewDate(timeNow())
	minEnd := today
	if !view.StartDate.IsZero() {
		minEnd = view.StartDate
	}

	s := render.Section{
		Heading: "Your stay at " + view.Selected.Name,
		Form: &render.Form{
			Action: "/bookings/dates",
			Submit: "Check price",
			Fields: []render.Field{
				{Name: "startDate", Label: "Check-in", Type: "date", Value: view.StartDate.String(), Min: today.String(), Required: true},
				{Name: "endDate", Label: "Check-out", Type: "date", Value: view.EndDate.String(), Min: domain.NewDate(minEnd.AddDate(0, 0, 1)).String(), Required: true},
			},
		},
	}

	switch {
	case view.Quote != nil:
		s.Text = []string{view.Quote.Summary()}
		s.Links = []render.Link{{Label: "Book now", Href: "/bookings/confirm"}}
	case view.State == service.StatePricePending:
		s.Text = []string{"Calculating price..."}
	default:
		s.Text = []string{"Choose your dates to see the price."}
	}
	return s
}

func (h *BookingHandler) Select(w http.ResponseWriter, r *http.Request) {
	id := h.identity(r)
	ws := h.workspace(r)
	propertyID := chi.URLParam(r, "propertyID")

	err := ws.Bookings.SelectProperty(propertyID)
	if errors.Is(err, domain.ErrPropertyRequired) {
		// Arrived from the property list rather than the catalogue.
		if err = ws.Bookings.LoadProperties(r.Context(), id); err == nil {
			err = ws.Bookings.SelectProperty(propertyID)
		}
	}
	if err != nil {
		h.fail(w, r, err, "Could not select the property", "/bookings/new")
		return
	}
	http.Redirect(w, r, "/bookings/new", http.StatusSeeOther)
}

// Dates applies the picked dates and asks for the price
func (h *BookingHandler) Dates(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(r)

	start, err := domain.ParseDate(formValue(r, "startDate"))
	if err != nil {
		h.fail(w, r, domain.Invalid("startDate", "Check-in must be a valid date"), "", "/bookings/new")
		return
	}
	end, err := domain.ParseDate(formValue(r, "endDate"))
	if err != nil {
		h.fail(w, r, domain.Invalid("endDate", "Check-out must be a valid date"), "", "/bookings/new")
		return
	}

	if !start.IsZero() {
		if err := ws.Bookings.SetStartDate(start); err != nil {
			h.fail(w, r, err, "Could not set the check-in date", "/bookings/new")
			return
		}
	}
	if !end.IsZero() {
		if err := ws.Bookings.SetEndDate(end); err != nil {
			h.fail(w, r, err, "Could not set the check-out date", "/bookings/new")
			return
		}
	}

	view := ws.Bookings.Snapshot()
	if view.StartDate.IsZero() || view.EndDate.IsZero() {
		http.Redirect(w, r, "/bookings/new", http.StatusSeeOther)
		return
	}

	_, err = ws.Bookings.Quote(r.Context())
	if err != nil && !errors.Is(err, domain.ErrStaleQuote) {
		h.fail(w, r, err, "Failed to calculate price", "/bookings/new")
		return
	}
	http.Redirect(w, r, "/bookings/new", http.StatusSeeOther)
}

func (h *BookingHandler) ConfirmPage(w http.ResponseWriter, r *http.Request) {
	view := h.workspace(r).Bookings.Snapshot()
	if view.Selected == nil || view.Quote == nil {
		h.fail(w, r, domain.ErrQuoteRequired, "", "/bookings/new")
		return
	}

	msg := fmt.Sprintf("Book %s from %s to %s? %s",
		view.Selected.Name, view.StartDate, view.EndDate, view.Quote.Summary())
	h.page(w, r, http.StatusOK, render.Page{
		Title:    "Confirm booking",
		Sections: []render.Section{render.Confirm("Confirm booking", msg, "/bookings/submit", "/bookings/new")},
	})
}

func (h *BookingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	created, err := h.workspace(r).Bookings.Submit(r.Context(), h.identity(r), confirmed(r))
	if err != nil {
		h.fail(w, r, err, "Failed to create booking", "/bookings/new")
		return
	}
	h.success(w, r, "Booking created. Total: "+domain.FormatAmount(created.TotalPrice), "/bookings/new")
}

func (h *BookingHandler) Defer(w http.ResponseWriter, r *http.Request) {
	if err := h.workspace(r).Bookings.DeferPayment(); err != nil {
		h.fail(w, r, err, "", "/bookings")
		return
	}
	h.success(w, r, "Booking saved. You can pay later from My Bookings.", "/bookings")
}

// ensureLoaded refreshes the list when bookingID is not in it, e.g. after
// the workspace was pruned
func (h *BookingHandler) ensureLoaded(ctx context.Context, ws *service.Workspace, id *domain.Identity, bookingID string) error {
	if _, ok := ws.Bookings.Booking(bookingID); ok {
		return nil
	}
	return ws.Bookings.Refresh(ctx, id)
}

func (h *BookingHandler) PayPage(w http.ResponseWriter, r *http.Request) {
	id := h.identity(r)
	ws := h.workspace(r)
	bookingID := chi.URLParam(r, "bookingID")

	if err := h.ensureLoaded(r.Context(), ws, id, bookingID); err != nil {
		h.fail(w, r, err, "Failed to load bookings", "/bookings")
		return
	}
	b, ok := ws.Bookings.Booking(bookingID)
	if !ok {
		h.fail(w, r, service.ErrNotLoaded, "", "/bookings")
		return
	}
	if !auth.CanPayBooking(id, &b) {
		h.fail(w, r, domain.ErrForbidden, "", "/bookings")
		return
	}

	methods := make([]string, 0, 2*len(domain.AllPaymentMethods))
	for _, m := range domain.AllPaymentMethods {
		methods = append(methods, string(m), paymentLabel(m))
	}

	h.page(w, r, http.StatusOK, render.Page{
		Title: "Pay for your booking",
		Sections: []render.Section{{
			Text: []string{fmt.Sprintf("Amount due: %s (%s to %s)", domain.FormatAmount(b.TotalPrice), b.StartDate, b.EndDate)},
			Form: &render.Form{
				Action: "/bookings/" + b.ID + "/pay",
				Submit: "Pay",
				Fields: []render.Field{
					{Name: "method", Label: "Payment method", Type: "select", Options: render.Options(r.URL.Query().Get("method"), methods...), Required: true},
					{Name: "phone", Label: "Mobile money number", Type: "tel", Placeholder: "0712345678", Help: "Required for M-Pesa and Airtel Money"},
				},
			},
			Links: []render.Link{{Label: "Back to bookings", Href: "/bookings"}},
		}},
	})
}

func paymentLabel(m domain.PaymentMethod) string {
	switch m {
	case domain.PaymentMPesa:
		return "M-Pesa"
	case domain.PaymentAirtel:
		return "Airtel Money"
	case domain.PaymentPayPal:
		return "PayPal"
	case domain.PaymentStripe:
		return "Card (Stripe)"
	}
	return string(m)
}

func (h *BookingHandler) Pay(w http.ResponseWriter, r *http.Request) {
	id := h.identity(r)
	ws := h.workspace(r)
	bookingID := chi.URLParam(r, "bookingID")
	method := domain.PaymentMethod(strings.ToUpper(formValue(r, "method")))

	outcome, err := ws.Bookings.Pay(r.Context(), id, bookingID, method, formValue(r, "phone"))
	if err != nil {
		retry := "/bookings/" + bookingID + "/pay?" + url.Values{"method": {string(method)}}.Encode()
		h.fail(w, r, err, "Payment failed. Please try again.", retry)
		return
	}

	if outcome.RedirectURL != "" {
		http.Redirect(w, r, outcome.RedirectURL, http.StatusSeeOther)
		return
	}
	h.flash(r, domain.FlashInfo, outcome.Message)
	http.Redirect(w, r, "/bookings", http.StatusSeeOther)
}

func (h *BookingHandler) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	h.success(w, r, "Payment received. Your booking will be confirmed shortly.", "/bookings")
}

func (h *BookingHandler) PaymentCancel(w http.ResponseWriter, r *http.Request) {
	h.flash(r, domain.FlashInfo, "Payment was cancelled. You can pay later from My Bookings.")
	http.Redirect(w, r, "/bookings", http.StatusSeeOther)
}

func (h *BookingHandler) CancelPage(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")
	h.page(w, r, http.StatusOK, render.Page{
		Title: "Cancel booking",
		Sections: []render.Section{render.Confirm("Cancel booking",
			"Are you sure you want to cancel this booking?", "/bookings/"+bookingID+"/cancel", "/bookings")},
	})
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := h.identity(r)
	ws := h.workspace(r)
	bookingID := chi.URLParam(r, "bookingID")

	if err := h.ensureLoaded(r.Context(), ws, id, bookingID); err != nil {
		h.fail(w, r, err, "Failed to load bookings", "/bookings")
		return
	}
	if err := ws.Bookings.Cancel(r.Context(), id, bookingID, confirmed(r)); err != nil {
		h.fail(w, r, err, "Failed to cancel booking", "/bookings")
		return
	}
	h.success(w, r, "Booking cancelled.", "/bookings")
}

func (h *BookingHandler) DeletePage(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")
	h.page(w, r, http.StatusOK, render.Page{
		Title: "Delete booking",
		Sections: []render.Section{render.Confirm("Delete booking",
			"This permanently removes the booking. Continue?", "/bookings/"+bookingID+"/delete", "/bookings")},
	})
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")
	if err := h.workspace(r).Bookings.Delete(r.Context(), h.identity(r), bookingID, confirmed(r)); err != nil {
		h.fail(w, r, err, "Failed to delete booking", "/bookings")
		return
	}
	h.success(w, r, "Booking deleted.", "/bookings")
}

package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dom/stay-portal/internal/auth"
	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/render"
	"github.com/dom/stay-portal/internal/service"
	"github.com/dom/stay-portal/internal/websocket"
	"github.com/go-chi/chi/v5"
)

type ReviewHandler struct {
	base
}

func NewReviewHandler(views *render.Renderer, services *service.Services, hub *websocket.Hub) *ReviewHandler {
	return &ReviewHandler{base: base{views: views, services: services, hub: hub}}
}

// reviewsURL is the review page of the currently loaded property
func reviewsURL(propertyID string) string {
	if propertyID == "" {
		return "/reviews"
	}
	return "/reviews?" + url.Values{"propertyId": {propertyID}}.Encode()
}

func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	id := h.identity(r)
	ws := h.workspace(r)

	p := render.Page{Title: "Reviews"}
	addFailure := func(err error, fallback string) bool {
		f, ok := h.failPage(w, r, err, fallback)
		if ok {
			p.Flashes = append(p.Flashes, f)
		}
		return ok
	}

	if err := ws.Reviews.RefreshBookings(r.Context(), id); err != nil {
		if !addFailure(err, "Failed to load bookings") {
			return
		}
	}
	if propertyID := r.URL.Query().Get("propertyId"); propertyID != "" {
		if err := ws.Reviews.LoadProperty(r.Context(), propertyID); err != nil {
			if !addFailure(err, "Failed to load reviews") {
				return
			}
		}
	}

	view := ws.Reviews.Snapshot()
	p.Sections = append(p.Sections, render.Section{
		Form: &render.Form{
			Action: "/reviews",
			Method: "get",
			Submit: "Show reviews",
			Fields: []render.Field{{Name: "propertyId", Label: "Property ID", Type: "text", Value: view.PropertyID, Required: true}},
		},
	})

	if view.PropertyID != "" {
		p.Sections = append(p.Sections, render.Section{
			Heading: "Reviews for property " + view.PropertyID,
			Table:   render.NewTable(view.Reviews, reviewColumns(), reviewActions(id), "No reviews yet."),
		})
	}

	if id.Role == domain.RoleGuest {
		var completed []domain.Booking
		for _, b := range view.Bookings {
			if b.Status == domain.BookingStatusCompleted {
				completed = append(completed, b)
			}
		}
		p.Sections = append(p.Sections, render.Section{
			Heading: "Your completed stays",
			Table: render.NewTable(completed,
				[]render.Column[domain.Booking]{
					{Header: "Property", Value: func(b domain.Booking) string {
						if b.PropertyName != "" {
							return b.PropertyName
						}
						return b.PropertyID
					}},
					{Header: "Stay", Value: func(b domain.Booking) string { return b.StartDate.String() + " to " + b.EndDate.String() }},
					{Header: "Review", Value: func(b domain.Booking) string {
						if view.Reviewed[b.ID] {
							return "Reviewed"
						}
						return "Not reviewed"
					}},
				},
				[]render.Action[domain.Booking]{{
					Label: "Write review",
					Href:  func(b domain.Booking) string { return "/reviews/new?bookingId=" + b.ID },
					Show:  func(b domain.Booking) bool { return auth.CanCreateReview(id, &b, view.Reviewed) },
				}},
				"No completed stays to review yet."),
		})
	}

	h.page(w, r, http.StatusOK, p)
}

func reviewColumns() []render.Column[domain.Review] {
	return []render.Column[domain.Review]{
		{Header: "Rating", Value: func(rv domain.Review) string { return fmt.Sprintf("%d/5", rv.Rating) }},
		{Header: "Comment", Value: func(rv domain.Review) string { return rv.Comment }},
		{Header: "Guest", Value: func(rv domain.Review) string { return rv.UserEmail }},
		{Header: "Host response", Value: func(rv domain.Review) string { return rv.HostResponse }},
		{Header: "Posted", Value: func(rv domain.Review) string {
			if rv.CreatedAt == nil {
				return ""
			}
			return rv.CreatedAt.Format("2006-01-02")
		}},
	}
}

func reviewActions(id *domain.Identity) []render.Action[domain.Review] {
	return []render.Action[domain.Review]{
		{
			Label: "Edit",
			Href:  func(rv domain.Review) string { return "/reviews/" + rv.ID + "/edit" },
			Show:  func(rv domain.Review) bool { return auth.CanEditReview(id, &rv) },
		},
		{
			Label: "Respond",
			Href:  func(rv domain.Review) string { return "/reviews/" + rv.ID + "/respond" },
			Show:  func(domain.Review) bool { return auth.CanRespondToReview(id) },
		},
		{
			Label: "Delete",
			Href:  func(rv domain.Review) string { return "/reviews/" + rv.ID + "/delete" },
			Show:  func(rv domain.Review) bool { return auth.CanDeleteReview(id, &rv) },
		},
	}
}

func ratingOptions(selected int) []render.Option {
	return render.Options(strconv.Itoa(selected),
		"5", "5 - Excellent", "4", "4 - Good", "3", "3 - Average", "2", "2 - Poor", "1", "1 - Terrible")
}

func (h *ReviewHandler) findReview(r *http.Request, reviewID string) (domain.Review, service.ReviewView, bool) {
	view := h.workspace(r).Reviews.Snapshot()
	for _, rv := range view.Reviews {
		if rv.ID == reviewID {
			return rv, view, true
		}
	}
	return domain.Review{}, view, false
}

// ensureBooking loads the caller's bookings when bookingID is not among them
func (h *ReviewHandler) ensureBooking(r *http.Request, ws *service.Workspace, id *domain.Identity, bookingID string) error {
	for _, b := range ws.Reviews.Snapshot().Bookings {
		if b.ID == bookingID {
			return nil
		}
	}
	return ws.Reviews.RefreshBookings(r.Context(), id)
}

func (h *ReviewHandler) NewPage(w http.ResponseWriter, r *http.Request) {
	id := h.identity(r)
	ws := h.workspace(r)
	bookingID := r.URL.Query().Get("bookingId")
	if err := h.ensureBooking(r, ws, id, bookingID); err != nil {
		h.fail(w, r, err, "Failed to load bookings", "/reviews")
		return
	}

	view := ws.Reviews.Snapshot()
	var booking *domain.Booking
	for i := range view.Bookings {
		if view.Bookings[i].ID == bookingID {
			booking = &view.Bookings[i]
		}
	}
	if booking == nil || !auth.CanCreateReview(id, booking, view.Reviewed) {
		err := error(domain.ErrBookingNotCompleted)
		switch {
		case booking == nil:
			err = service.ErrNotLoaded
		case view.Reviewed[booking.ID]:
			err = domain.ErrAlreadyReviewed
		}
		h.fail(w, r, err, "", "/reviews")
		return
	}

	h.page(w, r, http.StatusOK, render.Page{
		Title: "Write a review",
		Sections: []render.Section{{
			Text: []string{"Your stay from " + booking.StartDate.String() + " to " + booking.EndDate.String()},
			Form: &render.Form{
				Action: "/reviews",
				Submit: "Post review",
				Fields: []render.Field{
					{Name: "bookingId", Type: "hidden", Value: booking.ID},
					{Name: "rating", Label: "Rating", Type: "select", Options: ratingOptions(5), Required: true},
					{Name: "comment", Label: "Comment", Type: "textarea", Required: true},
				},
			},
		}},
	})
}

func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := h.identity(r)
	ws := h.workspace(r)
	bookingID := formValue(r, "bookingId")
	rating, _ := strconv.Atoi(formValue(r, "rating"))

	if err := h.ensureBooking(r, ws, id, bookingID); err != nil {
		h.fail(w, r, err, "Failed to load bookings", "/reviews")
		return
	}
	saved, err := ws.Reviews.Create(r.Context(), id, domain.ReviewInput{
		BookingID: bookingID,
		Rating:    rating,
		Comment:   r.FormValue("comment"),
	})
	if err != nil {
		h.fail(w, r, err, "Failed to post review", "/reviews/new?bookingId="+url.QueryEscape(bookingID))
		return
	}
	h.success(w, r, "Review posted. Thank you!", reviewsURL(saved.PropertyID))
}

func (h *ReviewHandler) EditPage(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "reviewID")
	rv, _, ok := h.findReview(r, reviewID)
	if !ok {
		h.fail(w, r, domain.ErrReviewNotFound, "", "/reviews")
		return
	}
	if !auth.CanEditReview(h.identity(r), &rv) {
		h.fail(w, r, domain.ErrNotReviewAuthor, "", reviewsURL(rv.PropertyID))
		return
	}

	h.page(w, r, http.StatusOK, render.Page{
		Title: "Edit review",
		Sections: []render.Section{{
			Form: &render.Form{
				Action: "/reviews/" + rv.ID + "/edit",
				Submit: "Save",
				Fields: []render.Field{
					{Name: "rating", Label: "Rating", Type: "select", Options: ratingOptions(rv.Rating), Required: true},
					{Name: "comment", Label: "Comment", Type: "textarea", Value: rv.Comment, Required: true},
				},
			},
		}},
	})
}

func (h *ReviewHandler) Edit(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "reviewID")
	rating, _ := strconv.Atoi(formValue(r, "rating"))
	ws := h.workspace(r)

	_, err := ws.Reviews.Edit(r.Context(), h.identity(r), reviewID, domain.ReviewUpdate{
		Rating:  rating,
		Comment: r.FormValue("comment"),
	})
	back := reviewsURL(ws.Reviews.Snapshot().PropertyID)
	if err != nil {
		h.fail(w, r, err, "Failed to update review", back)
		return
	}
	h.success(w, r, "Review updated.", back)
}

func (h *ReviewHandler) DeletePage(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "reviewID")
	_, view, _ := h.findReview(r, reviewID)
	h.page(w, r, http.StatusOK, render.Page{
		Title: "Delete review",
		Sections: []render.Section{render.Confirm("Delete review",
			"Are you sure you want to delete this review?", "/reviews/"+reviewID+"/delete", reviewsURL(view.PropertyID))},
	})
}

func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "reviewID")
	ws := h.workspace(r)

	err := ws.Reviews.Delete(r.Context(), h.identity(r), reviewID, confirmed(r))
	back := reviewsURL(ws.Reviews.Snapshot().PropertyID)
	if err != nil {
		h.fail(w, r, err, "Failed to delete review", back)
		return
	}
	h.success(w, r, "Review deleted.", back)
}

func (h *ReviewHandler) RespondPage(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "reviewID")
	rv, _, ok := h.findReview(r, reviewID)
	if !ok {
		h.fail(w, r, domain.ErrReviewNotFound, "", "/reviews")
		return
	}

	h.page(w, r, http.StatusOK, render.Page{
		Title: "Respond to review",
		Sections: []render.Section{{
			Text: []string{fmt.Sprintf("%d/5 from %s: %s", rv.Rating, rv.UserEmail, rv.Comment)},
			Form: &render.Form{
				Action: "/reviews/" + rv.ID + "/respond",
				Submit: "Save response",
				Fields: []render.Field{{Name: "response", Label: "Your response", Type: "textarea", Value: rv.HostResponse, Required: true}},
			},
		}},
	})
}

func (h *ReviewHandler) Respond(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "reviewID")
	ws := h.workspace(r)

	_, err := ws.Reviews.Respond(r.Context(), h.identity(r), reviewID, r.FormValue("response"))
	back := reviewsURL(ws.Reviews.Snapshot().PropertyID)
	if err != nil {
		h.fail(w, r, err, "Failed to save response", back)
		return
	}
	h.success(w, r, "Response saved.", back)
}

package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dom/stay-portal/internal/apiclient"
	"github.com/dom/stay-portal/internal/auth"
	"github.com/dom/stay-portal/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// maxReviewFetches bounds the concurrent per-property review lookups used
// to broaden the reviewed-booking set
const maxReviewFetches = 4

// ReviewView is a snapshot for rendering
type ReviewView struct {
	PropertyID string
	Reviews    []domain.Review
	Bookings   []domain.Booking
	Reviewed   map[string]bool
}

// ReviewWorkflow holds the property-review list and the caller's bookings
// for one browser session.
type ReviewWorkflow struct {
	api *apiclient.Client

	mu         sync.Mutex
	propertyID string
	reviews    []domain.Review
	bookings   []domain.Booking
	// reviewed holds booking ids known to have a review from any property,
	// not only the one currently loaded
	reviewed map[string]bool
}

func NewReviewWorkflow(api *apiclient.Client) *ReviewWorkflow {
	return &ReviewWorkflow{api: api, reviewed: make(map[string]bool)}
}

func (w *ReviewWorkflow) Snapshot() ReviewView {
	w.mu.Lock()
	defer w.mu.Unlock()
	return ReviewView{
		PropertyID: w.propertyID,
		Reviews:    append([]domain.Review(nil), w.reviews...),
		Bookings:   append([]domain.Booking(nil), w.bookings...),
		Reviewed:   w.reviewedSet(),
	}
}

// reviewedSet unions the loaded property's reviews with the broadened set.
// Caller holds mu.
func (w *ReviewWorkflow) reviewedSet() map[string]bool {
	set := make(map[string]bool, len(w.reviewed)+len(w.reviews))
	for id := range w.reviewed {
		set[id] = true
	}
	for _, r := range w.reviews {
		if r.BookingID != "" {
			set[r.BookingID] = true
		}
	}
	return set
}

// LoadProperty fetches the reviews of one property. On failure the prior
// list and property stay in place.
func (w *ReviewWorkflow) LoadProperty(ctx context.Context, propertyID string) error {
	propertyID = strings.TrimSpace(propertyID)
	if propertyID == "" {
		return domain.Invalid("propertyId", "Enter a Property ID")
	}

	reviews, err := w.api.PropertyReviews(ctx, propertyID)
	if err != nil {
		return fmt.Errorf("failed to load reviews: %w", err)
	}

	w.mu.Lock()
	w.propertyID = propertyID
	w.reviews = reviews
	w.mu.Unlock()
	return nil
}

// RefreshBookings reloads the role-keyed bookings and broadens the reviewed
// set with the reviews of every property holding a COMPLETED booking. If
// broadening fails the previously known set is kept.
func (w *ReviewWorkflow) RefreshBookings(ctx context.Context, id *domain.Identity) error {
	if id == nil {
		return domain.ErrUnauthenticated
	}

	bookings, err := w.api.Bookings(ctx, id.Role)
	if err != nil {
		return fmt.Errorf("failed to load bookings: %w", err)
	}

	reviewed, err := w.broaden(ctx, bookings)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.bookings = bookings
	if err != nil {
		log.Warn().Err(err).Str("component", "review").Msg("Keeping the previous reviewed-booking set")
		return nil
	}
	w.reviewed = reviewed
	return nil
}

func (w *ReviewWorkflow) broaden(ctx context.Context, bookings []domain.Booking) (map[string]bool, error) {
	seen := make(map[string]bool)
	var propertyIDs []string
	for _, b := range bookings {
		if b.Status == domain.BookingStatusCompleted && b.PropertyID != "" && !seen[b.PropertyID] {
			seen[b.PropertyID] = true
			propertyIDs = append(propertyIDs, b.PropertyID)
		}
	}

	results := make([][]domain.Review, len(propertyIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxReviewFetches)
	for i, pid := range propertyIDs {
		g.Go(func() error {
			reviews, err := w.api.PropertyReviews(gctx, pid)
			if err != nil {
				return err
			}
			results[i] = reviews
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	reviewed := make(map[string]bool)
	for _, reviews := range results {
		for _, r := range reviews {
			if r.BookingID != "" {
				reviewed[r.BookingID] = true
			}
		}
	}
	return reviewed, nil
}

// reload refetches the loaded property's reviews after a failed merge
func (w *ReviewWorkflow) reload(ctx context.Context) {
	w.mu.Lock()
	pid := w.propertyID
	w.mu.Unlock()
	if pid == "" {
		return
	}
	if err := w.LoadProperty(ctx, pid); err != nil {
		log.Warn().Err(err).Str("component", "review").Msg("Failed to reload reviews after merge miss")
	}
}

// replace merges r into the list by id. Caller holds mu.
func (w *ReviewWorkflow) replace(r *domain.Review) bool {
	if r == nil || r.ID == "" {
		return false
	}
	for i := range w.reviews {
		if w.reviews[i].ID == r.ID {
			w.reviews[i] = *r
			return true
		}
	}
	return false
}

func (w *ReviewWorkflow) find(reviewID string) (domain.Review, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, r := range w.reviews {
		if r.ID == reviewID {
			return r, true
		}
	}
	return domain.Review{}, false
}

// Create posts a review for a COMPLETED, not yet reviewed booking
func (w *ReviewWorkflow) Create(ctx context.Context, id *domain.Identity, in domain.ReviewInput) (*domain.Review, error) {
	in.Comment = strings.TrimSpace(in.Comment)
	if in.BookingID == "" {
		return nil, domain.Invalid("bookingId", "Booking is required")
	}
	if err := domain.Validate(in); err != nil {
		return nil, err
	}

	w.mu.Lock()
	var booking *domain.Booking
	for i := range w.bookings {
		if w.bookings[i].ID == in.BookingID {
			b := w.bookings[i]
			booking = &b
		}
	}
	reviewed := w.reviewedSet()
	w.mu.Unlock()

	switch {
	case booking == nil:
		return nil, fmt.Errorf("booking %s: %w", in.BookingID, ErrNotLoaded)
	case booking.Status != domain.BookingStatusCompleted:
		return nil, domain.ErrBookingNotCompleted
	case reviewed[booking.ID]:
		return nil, domain.ErrAlreadyReviewed
	case !auth.CanCreateReview(id, booking, reviewed):
		return nil, domain.ErrForbidden
	}

	saved, err := w.api.CreateReview(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	w.mu.Lock()
	w.reviewed[booking.ID] = true
	needReload := false
	if saved.ID == "" {
		needReload = true
	} else if saved.PropertyID != "" && saved.PropertyID == w.propertyID {
		w.reviews = append([]domain.Review{*saved}, w.reviews...)
	}
	w.mu.Unlock()

	if needReload {
		w.reload(ctx)
	}
	if err := w.RefreshBookings(ctx, id); err != nil {
		log.Warn().Err(err).Str("component", "review").Msg("Failed to refresh bookings after review")
	}
	return saved, nil
}

// Edit lets the author change rating and comment
func (w *ReviewWorkflow) Edit(ctx context.Context, id *domain.Identity, reviewID string, upd domain.ReviewUpdate) (*domain.Review, error) {
	current, ok := w.find(reviewID)
	if !ok {
		return nil, domain.ErrReviewNotFound
	}
	if !auth.CanEditReview(id, &current) {
		return nil, domain.ErrNotReviewAuthor
	}
	upd.Comment = strings.TrimSpace(upd.Comment)
	if err := domain.Validate(upd); err != nil {
		return nil, err
	}

	updated, err := w.api.UpdateReview(ctx, reviewID, upd)
	if err != nil {
		return nil, fmt.Errorf("failed to update review: %w", err)
	}

	w.mu.Lock()
	merged := w.replace(updated)
	w.mu.Unlock()
	if !merged {
		w.reload(ctx)
	}
	return updated, nil
}

// Delete removes a review; the author or an admin may do so
func (w *ReviewWorkflow) Delete(ctx context.Context, id *domain.Identity, reviewID string, confirmed bool) error {
	current, ok := w.find(reviewID)
	if !ok {
		return domain.ErrReviewNotFound
	}
	if !auth.CanDeleteReview(id, &current) {
		return domain.ErrForbidden
	}
	if !confirmed {
		return domain.ErrConfirmationRequired
	}

	if err := w.api.DeleteReview(ctx, reviewID); err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}

	w.mu.Lock()
	for i := range w.reviews {
		if w.reviews[i].ID == reviewID {
			w.reviews = append(w.reviews[:i], w.reviews[i+1:]...)
			break
		}
	}
	delete(w.reviewed, current.BookingID)
	w.mu.Unlock()

	if err := w.RefreshBookings(ctx, id); err != nil {
		log.Warn().Err(err).Str("component", "review").Msg("Failed to refresh bookings after delete")
	}
	return nil
}

// Respond sets or replaces the host response of a review
func (w *ReviewWorkflow) Respond(ctx context.Context, id *domain.Identity, reviewID, response string) (*domain.Review, error) {
	if !auth.CanRespondToReview(id) {
		return nil, domain.ErrForbidden
	}
	in := domain.ReviewResponse{Response: strings.TrimSpace(response)}
	if in.Response == "" {
		return nil, domain.Invalid("response", "Response cannot be empty")
	}
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	if _, ok := w.find(reviewID); !ok {
		return nil, domain.ErrReviewNotFound
	}

	updated, err := w.api.RespondToReview(ctx, reviewID, in)
	if err != nil {
		return nil, fmt.Errorf("failed to save response: %w", err)
	}

	w.mu.Lock()
	merged := w.replace(updated)
	w.mu.Unlock()
	if !merged {
		w.reload(ctx)
	}
	return updated, nil
}

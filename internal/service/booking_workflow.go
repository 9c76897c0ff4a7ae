package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dom/stay-portal/internal/apiclient"
	"github.com/dom/stay-portal/internal/auth"
	"github.com/dom/stay-portal/internal/domain"
	"github.com/rs/zerolog/log"
)

// BookingState is the position of a browser in the booking flow
type BookingState int

const (
	StateBrowsing BookingState = iota
	StateSelecting
	StatePricePending
	StatePriceReady
	StateSubmitting
	StateCreated
	StatePaymentChoice
	StatePaymentInFlight
	StateDone
)

func (s BookingState) String() string {
	switch s {
	case StateBrowsing:
		return "Browsing"
	case StateSelecting:
		return "Selecting"
	case StatePricePending:
		return "PricePending"
	case StatePriceReady:
		return "PriceReady"
	case StateSubmitting:
		return "Submitting"
	case StateCreated:
		return "Created"
	case StatePaymentChoice:
		return "PaymentChoice"
	case StatePaymentInFlight:
		return "PaymentInFlight"
	case StateDone:
		return "Done"
	}
	return fmt.Sprintf("BookingState(%d)", int(s))
}

// BookingView is a consistent snapshot of the workflow for rendering
type BookingView struct {
	State      BookingState
	Bookings   []domain.Booking
	Properties []domain.Property
	Selected   *domain.Property
	StartDate  domain.Date
	EndDate    domain.Date
	Quote      *domain.PriceQuote
	Created    *domain.Booking
}

// BookingWorkflow drives property selection through payment hand-off for
// one browser session. The lock is never held across a network call.
type BookingWorkflow struct {
	api        *apiclient.Client
	payments   *PaymentService
	properties *PropertyService
	now        func() time.Time

	mu          sync.Mutex
	state       BookingState
	bookings    []domain.Booking
	catalogue   []domain.Property
	selected    *domain.Property
	start, end  domain.Date
	quote       *domain.PriceQuote
	quoteSeq    uint64
	cancelQuote context.CancelFunc
	created     *domain.Booking
}

func NewBookingWorkflow(api *apiclient.Client, payments *PaymentService, properties *PropertyService) *BookingWorkflow {
	return &BookingWorkflow{
		api:        api,
		payments:   payments,
		properties: properties,
		now:        timeNow,
	}
}

func (w *BookingWorkflow) Snapshot() BookingView {
	w.mu.Lock()
	defer w.mu.Unlock()

	v := BookingView{
		State:      w.state,
		Bookings:   append([]domain.Booking(nil), w.bookings...),
		Properties: append([]domain.Property(nil), w.catalogue...),
		StartDate:  w.start,
		EndDate:    w.end,
	}
	if w.selected != nil {
		p := *w.selected
		v.Selected = &p
	}
	if w.quote != nil {
		q := *w.quote
		v.Quote = &q
	}
	if w.created != nil {
		b := *w.created
		v.Created = &b
	}
	return v
}

// Booking finds a booking in the loaded list
func (w *BookingWorkflow) Booking(bookingID string) (domain.Booking, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.findBooking(bookingID)
}

func (w *BookingWorkflow) findBooking(bookingID string) (domain.Booking, bool) {
	if w.created != nil && w.created.ID == bookingID {
		return *w.created, true
	}
	for _, b := range w.bookings {
		if b.ID == bookingID {
			return b, true
		}
	}
	return domain.Booking{}, false
}

// Refresh reloads the role-keyed booking list. On failure the previous
// list stays in place.
func (w *BookingWorkflow) Refresh(ctx context.Context, id *domain.Identity) error {
	if id == nil {
		return domain.ErrUnauthenticated
	}

	bookings, err := w.api.Bookings(ctx, id.Role)
	if err != nil {
		return fmt.Errorf("failed to load bookings: %w", err)
	}

	w.mu.Lock()
	w.bookings = bookings
	w.mu.Unlock()
	return nil
}

// LoadProperties reloads the guest catalogue with the booked flag derived
// for the next night.
func (w *BookingWorkflow) LoadProperties(ctx context.Context, id *domain.Identity) error {
	if !auth.CanCreateBooking(id) {
		return domain.ErrForbidden
	}

	today := domain.NewDate(w.now())
	props, err := w.properties.Catalogue(ctx, w.api, today, domain.NewDate(today.AddDate(0, 0, 1)))
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.catalogue = props
	if w.selected != nil {
		// keep the booked flag of the current selection fresh
		for _, p := range props {
			if p.ID == w.selected.ID {
				sel := p
				w.selected = &sel
			}
		}
	}
	return nil
}

// invalidateQuote drops the cached price and supersedes any calculation in
// flight. Caller holds mu.
func (w *BookingWorkflow) invalidateQuote() {
	w.quote = nil
	w.quoteSeq++
	if w.cancelQuote != nil {
		w.cancelQuote()
		w.cancelQuote = nil
	}
}

// SelectProperty starts a new booking for a catalogue entry. The start date
// defaults to today.
func (w *BookingWorkflow) SelectProperty(propertyID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, p := range w.catalogue {
		if p.ID == propertyID {
			sel := p
			w.selected = &sel
			w.start = domain.NewDate(w.now())
			w.end = domain.Date{}
			w.created = nil
			w.invalidateQuote()
			w.state = StateSelecting
			return nil
		}
	}
	return domain.ErrPropertyRequired
}

// SetStartDate moves the start date and clears an end date that would no
// longer be after it.
func (w *BookingWorkflow) SetStartDate(d domain.Date) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.selected == nil {
		return domain.ErrPropertyRequired
	}
	if !w.interactive() {
		return domain.ErrInvalidState
	}

	w.start = d
	if !w.end.IsZero() && !w.end.After(w.start) {
		w.end = domain.Date{}
	}
	w.invalidateQuote()
	w.state = StateSelecting
	return nil
}

// SetEndDate accepts only an end strictly after the start
func (w *BookingWorkflow) SetEndDate(d domain.Date) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.selected == nil {
		return domain.ErrPropertyRequired
	}
	if !w.interactive() {
		return domain.ErrInvalidState
	}
	if w.start.IsZero() {
		return domain.ErrDatesRequired
	}

	w.invalidateQuote()
	w.state = StateSelecting
	if !d.After(w.start) {
		w.end = domain.Date{}
		return domain.ErrInvalidDateRange
	}
	w.end = d
	return nil
}

// interactive reports whether the selection may still be edited. Caller holds mu.
func (w *BookingWorkflow) interactive() bool {
	switch w.state {
	case StateSelecting, StatePricePending, StatePriceReady:
		return true
	}
	return false
}

// Quote requests the server-computed price for the current selection.
// Each call supersedes the previous one: its context is cancelled and its
// response, if it still arrives, is discarded with ErrStaleQuote.
func (w *BookingWorkflow) Quote(ctx context.Context) (*domain.PriceQuote, error) {
	w.mu.Lock()
	if w.selected == nil {
		w.mu.Unlock()
		return nil, domain.ErrPropertyRequired
	}
	if !w.interactive() {
		w.mu.Unlock()
		return nil, domain.ErrInvalidState
	}
	if w.start.IsZero() || w.end.IsZero() {
		w.mu.Unlock()
		return nil, domain.ErrDatesRequired
	}
	if !w.end.After(w.start) {
		w.mu.Unlock()
		return nil, domain.ErrInvalidDateRange
	}

	w.invalidateQuote()
	seq := w.quoteSeq
	callCtx, cancel := context.WithCancel(ctx)
	w.cancelQuote = cancel
	w.state = StatePricePending
	propertyID, start, end := w.selected.ID, w.start, w.end
	w.mu.Unlock()

	quote, err := w.api.CalculatePrice(callCtx, propertyID, start, end)

	w.mu.Lock()
	defer w.mu.Unlock()
	cancel()

	if seq != w.quoteSeq {
		log.Debug().Str("component", "booking").Uint64("seq", seq).Msg("Discarding superseded price calculation")
		return nil, domain.ErrStaleQuote
	}
	w.cancelQuote = nil

	if err != nil {
		w.state = StateSelecting
		return nil, fmt.Errorf("failed to calculate price: %w", err)
	}

	w.quote = quote
	w.state = StatePriceReady
	q := *quote
	return &q, nil
}

// Submit creates the booking. Only the property and dates are sent; the
// server answers with the authoritative total.
func (w *BookingWorkflow) Submit(ctx context.Context, id *domain.Identity, confirmed bool) (*domain.Booking, error) {
	if !auth.CanCreateBooking(id) {
		return nil, domain.ErrForbidden
	}

	w.mu.Lock()
	switch {
	case w.selected == nil:
		w.mu.Unlock()
		return nil, domain.ErrPropertyRequired
	case w.selected.Booked:
		w.mu.Unlock()
		return nil, domain.ErrPropertyBooked
	case w.start.IsZero() || w.end.IsZero():
		w.mu.Unlock()
		return nil, domain.ErrDatesRequired
	case w.quote == nil || w.state != StatePriceReady:
		w.mu.Unlock()
		return nil, domain.ErrQuoteRequired
	case !confirmed:
		w.mu.Unlock()
		return nil, domain.ErrConfirmationRequired
	}

	req := domain.BookingRequest{
		PropertyID: w.selected.ID,
		StartDate:  w.start,
		EndDate:    w.end,
	}
	w.state = StateSubmitting
	w.mu.Unlock()

	created, err := w.api.CreateBooking(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		w.state = StatePriceReady
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	w.created = created
	w.state = StateCreated
	w.bookings = append([]domain.Booking{*created}, w.bookings...)

	log.Info().
		Str("component", "booking").
		Str("booking_id", created.ID).
		Str("property_id", created.PropertyID).
		Msg("Booking created")

	// The guest is offered immediate payment or deferral next.
	w.state = StatePaymentChoice
	b := *created
	return &b, nil
}

// DeferPayment leaves the new booking unpaid and returns to the list
func (w *BookingWorkflow) DeferPayment() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StatePaymentChoice {
		return domain.ErrInvalidState
	}
	w.reset()
	return nil
}

// reset clears the selection. Caller holds mu.
func (w *BookingWorkflow) reset() {
	w.invalidateQuote()
	w.selected = nil
	w.start, w.end = domain.Date{}, domain.Date{}
	w.created = nil
	w.state = StateBrowsing
}

// Pay hands a booking to the payment sub-flow. It serves both the booking
// just created and any PENDING booking picked from the list. A pending
// outcome refreshes the list so confirmation shows up on the next view.
func (w *BookingWorkflow) Pay(ctx context.Context, id *domain.Identity, bookingID string, method domain.PaymentMethod, phone string) (*PaymentOutcome, error) {
	w.mu.Lock()
	booking, ok := w.findBooking(bookingID)
	prev := w.state
	w.mu.Unlock()

	if !ok {
		fetched, err := w.api.Booking(ctx, bookingID)
		if err != nil {
			return nil, fmt.Errorf("failed to load booking: %w", err)
		}
		booking = *fetched
	}
	if !auth.CanPayBooking(id, &booking) {
		return nil, domain.ErrForbidden
	}

	w.mu.Lock()
	if w.state == StatePaymentInFlight {
		w.mu.Unlock()
		return nil, domain.ErrInvalidState
	}
	w.state = StatePaymentInFlight
	w.mu.Unlock()

	outcome, err := w.payments.Initiate(ctx, w.api, PaymentInput{
		BookingID: booking.ID,
		Amount:    booking.TotalPrice,
		Method:    method,
		Phone:     phone,
	})
	if err != nil {
		w.mu.Lock()
		w.state = prev
		w.mu.Unlock()
		return nil, err
	}

	w.mu.Lock()
	w.reset()
	w.state = StateDone
	w.mu.Unlock()

	if outcome.Pending {
		if err := w.Refresh(ctx, id); err != nil {
			log.Warn().Err(err).Str("component", "booking").Msg("Failed to refresh bookings after payment")
		}
	}
	return outcome, nil
}

// Cancel asks the API to cancel a guest's booking, then refetches
func (w *BookingWorkflow) Cancel(ctx context.Context, id *domain.Identity, bookingID string, confirmed bool) error {
	b, ok := w.Booking(bookingID)
	if !ok {
		return fmt.Errorf("booking %s: %w", bookingID, ErrNotLoaded)
	}
	if !auth.CanCancelBooking(id, &b) {
		return domain.ErrForbidden
	}
	if !confirmed {
		return domain.ErrConfirmationRequired
	}

	if err := w.api.CancelBooking(ctx, bookingID); err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	return w.Refresh(ctx, id)
}

// Delete hard-removes a booking (admin only), then refetches
func (w *BookingWorkflow) Delete(ctx context.Context, id *domain.Identity, bookingID string, confirmed bool) error {
	if !auth.CanDeleteBooking(id) {
		return domain.ErrForbidden
	}
	if !confirmed {
		return domain.ErrConfirmationRequired
	}

	if err := w.api.DeleteBooking(ctx, bookingID); err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	return w.Refresh(ctx, id)
}

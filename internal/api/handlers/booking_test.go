package handlers_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startBooking selects prop and prices a three-night stay
func startBooking(t *testing.T, b *browser, prop domain.Property) {
	t.Helper()
	testutil.AssertRedirect(t, b.post("/bookings/select/"+prop.ID, nil), "/bookings/new")
	testutil.AssertRedirect(t, b.post("/bookings/dates", url.Values{
		"startDate": {futureDate(1)},
		"endDate":   {futureDate(4)},
	}), "/bookings/new")
}

func TestGuestBookingFlow(t *testing.T) {
	p := newPortal(t)
	guest := testutil.NewUserBuilder().Build(p.api)
	prop := testutil.NewPropertyBuilder().Build(p.api)

	b := p.browser(t)
	b.login(guest)

	body := b.page("/bookings/new")
	assert.Contains(t, body, "Seaside Cottage")
	assert.Contains(t, body, "Available")
	assert.Contains(t, body, `action="/bookings/select/`+prop.ID+`"`)

	startBooking(t, b, prop)

	body = b.page("/bookings/new")
	assert.Contains(t, body, "Your stay at Seaside Cottage")
	assert.Contains(t, body, "3 night(s) × 5,000 = 15,000")
	assert.Contains(t, body, `href="/bookings/confirm"`)

	calc, ok := p.api.LastRequest("GET /bookings/calculate")
	require.True(t, ok)
	assert.Contains(t, calc.Query, "propertyId="+prop.ID)

	body = b.page("/bookings/confirm")
	assert.Contains(t, body, `name="confirm" value="yes"`)

	t.Run("submit without confirmation is refused locally", func(t *testing.T) {
		before := len(p.api.Requests("POST /bookings/create"))
		testutil.AssertRedirect(t, b.post("/bookings/submit", nil), "/bookings/new")
		assert.Contains(t, b.page("/bookings/new"), "explicit confirmation required")
		assert.Len(t, p.api.Requests("POST /bookings/create"), before)
	})

	testutil.AssertRedirect(t, b.post("/bookings/submit", confirm()), "/bookings/new")

	created, ok := p.api.LastRequest("POST /bookings/create")
	require.True(t, ok)
	payload := created.JSON(t)
	assert.Equal(t, prop.ID, payload["propertyId"])
	assert.NotContains(t, payload, "totalPrice", "total is computed by the server")

	body = b.page("/bookings/new")
	assert.Contains(t, body, "Booking created. Total: 15,000")
	assert.Contains(t, body, "Pay now")
	assert.Contains(t, body, `action="/bookings/defer"`)

	testutil.AssertRedirect(t, b.post("/bookings/defer", nil), "/bookings")

	body = b.page("/bookings")
	assert.Contains(t, body, "Booking saved. You can pay later from My Bookings.")
	assert.Contains(t, body, "PENDING")
	assert.Contains(t, body, "15,000")
	assert.Contains(t, body, "Pay")
}

func TestBookingDates(t *testing.T) {
	p := newPortal(t)
	guest := testutil.NewUserBuilder().Build(p.api)
	prop := testutil.NewPropertyBuilder().Build(p.api)

	b := p.browser(t)
	b.login(guest)
	testutil.AssertRedirect(t, b.post("/bookings/select/"+prop.ID, nil), "/bookings/new")

	t.Run("end before start is rejected", func(t *testing.T) {
		testutil.AssertRedirect(t, b.post("/bookings/dates", url.Values{
			"startDate": {futureDate(5)},
			"endDate":   {futureDate(2)},
		}), "/bookings/new")
		assert.Contains(t, b.page("/bookings/new"), "end date must be after start date")
	})

	t.Run("garbage dates are rejected", func(t *testing.T) {
		testutil.AssertRedirect(t, b.post("/bookings/dates", url.Values{
			"startDate": {"next week"},
		}), "/bookings/new")
		assert.Contains(t, b.page("/bookings/new"), "Check-in must be a valid date")
	})

	t.Run("confirm page needs a price", func(t *testing.T) {
		testutil.AssertRedirect(t, b.get("/bookings/confirm"), "/bookings/new")
		assert.Contains(t, b.page("/bookings/new"), "price has not been calculated yet")
	})
}

func TestBookedPropertyCannotBeBooked(t *testing.T) {
	p := newPortal(t)
	guest := testutil.NewUserBuilder().Build(p.api)
	prop := testutil.NewPropertyBuilder().WithName("Lake House").Booked().Build(p.api)

	b := p.browser(t)
	b.login(guest)

	body := b.page("/bookings/new")
	assert.Contains(t, body, "Lake House")
	assert.Contains(t, body, "Booked")
	assert.NotContains(t, body, `action="/bookings/select/`+prop.ID+`"`)

	startBooking(t, b, prop)
	testutil.AssertRedirect(t, b.post("/bookings/submit", confirm()), "/bookings/new")
	assert.Contains(t, b.page("/bookings/new"), "property is already booked")
	assert.Empty(t, p.api.Requests("POST /bookings/create"))
}

func TestPayBooking(t *testing.T) {
	p := newPortal(t)
	guest := testutil.NewUserBuilder().Build(p.api)
	prop := testutil.NewPropertyBuilder().Build(p.api)

	t.Run("mobile money waits for confirmation", func(t *testing.T) {
		booking := testutil.NewBookingBuilder(guest, prop).Build(p.api)
		b := p.browser(t)
		b.login(guest)

		body := b.page("/bookings/" + booking.ID + "/pay")
		assert.Contains(t, body, "Amount due: 15,000")
		assert.Contains(t, body, "M-Pesa")

		resp := b.post("/bookings/"+booking.ID+"/pay", url.Values{"method": {"MPESA"}, "phone": {"0712345678"}})
		testutil.AssertRedirect(t, resp, "/bookings")
		assert.Contains(t, b.page("/bookings"), "Awaiting confirmation...")

		req, ok := p.api.LastRequest("POST /payments/pay")
		require.True(t, ok)
		payload := req.JSON(t)
		assert.Equal(t, booking.ID, payload["bookingId"])
		assert.Equal(t, "MPESA", payload["paymentMethod"])
		assert.Equal(t, "0712345678", payload["phoneNumber"])
	})

	t.Run("mobile money without a phone number stays on the form", func(t *testing.T) {
		booking := testutil.NewBookingBuilder(guest, prop).Build(p.api)
		b := p.browser(t)
		b.login(guest)
		before := len(p.api.Requests("POST /payments/pay"))

		resp := b.post("/bookings/"+booking.ID+"/pay", url.Values{"method": {"AIRTEL"}})
		testutil.AssertRedirect(t, resp, "/bookings/"+booking.ID+"/pay?method=AIRTEL")
		assert.Contains(t, b.page("/bookings/"+booking.ID+"/pay?method=AIRTEL"), "please enter a valid mobile money phone number")
		assert.Len(t, p.api.Requests("POST /payments/pay"), before)
	})

	t.Run("hosted checkout redirects the browser", func(t *testing.T) {
		p.api.PaymentRedirect = "https://checkout.example.com/session/abc"
		t.Cleanup(func() { p.api.PaymentRedirect = "" })

		booking := testutil.NewBookingBuilder(guest, prop).Build(p.api)
		b := p.browser(t)
		b.login(guest)

		resp := b.post("/bookings/"+booking.ID+"/pay", url.Values{"method": {"STRIPE"}})
		testutil.AssertRedirect(t, resp, "https://checkout.example.com/session/abc")

		req, ok := p.api.LastRequest("POST /payments/pay")
		require.True(t, ok)
		payload := req.JSON(t)
		assert.Equal(t, "N/A", payload["phoneNumber"])
		assert.Equal(t, "http://portal.test/payment/success", payload["returnUrl"])
		assert.Equal(t, "http://portal.test/payment/cancel", payload["cancelUrl"])

		testutil.AssertRedirect(t, b.get("/payment/success"), "/bookings")
		assert.Contains(t, b.page("/bookings"), "Payment received. Your booking will be confirmed shortly.")
	})

	t.Run("confirmed bookings cannot be paid", func(t *testing.T) {
		booking := testutil.NewBookingBuilder(guest, prop).WithStatus(domain.BookingStatusConfirmed).Build(p.api)
		b := p.browser(t)
		b.login(guest)

		testutil.AssertRedirect(t, b.get("/bookings/"+booking.ID+"/pay"), "/bookings")
	})
}

func TestCancelBooking(t *testing.T) {
	p := newPortal(t)
	guest := testutil.NewUserBuilder().Build(p.api)
	prop := testutil.NewPropertyBuilder().Build(p.api)
	booking := testutil.NewBookingBuilder(guest, prop).Build(p.api)

	b := p.browser(t)
	b.login(guest)

	assert.Contains(t, b.page("/bookings/"+booking.ID+"/cancel"), "Are you sure you want to cancel this booking?")

	testutil.AssertRedirect(t, b.post("/bookings/"+booking.ID+"/cancel", nil), "/bookings")
	status, _ := p.api.BookingStatus(booking.ID)
	assert.Equal(t, domain.BookingStatusPending, status)

	testutil.AssertRedirect(t, b.post("/bookings/"+booking.ID+"/cancel", confirm()), "/bookings")
	status, _ = p.api.BookingStatus(booking.ID)
	assert.Equal(t, domain.BookingStatusCanceled, status)

	body := b.page("/bookings")
	assert.Contains(t, body, "Booking cancelled.")
	assert.Contains(t, body, "CANCELED")
}

func TestAdminBookings(t *testing.T) {
	p := newPortal(t)
	guest := testutil.NewUserBuilder().Build(p.api)
	admin := testutil.NewUserBuilder().WithRole(domain.RoleAdmin).Build(p.api)
	prop := testutil.NewPropertyBuilder().Build(p.api)
	booking := testutil.NewBookingBuilder(guest, prop).Build(p.api)

	b := p.browser(t)
	b.login(admin)

	body := b.page("/bookings")
	assert.Contains(t, body, "Seaside Cottage")
	assert.Contains(t, body, `href="/bookings/`+booking.ID+`/delete"`)
	assert.NotContains(t, body, "Book a property")
	_, ok := p.api.LastRequest("GET /bookings/all")
	assert.True(t, ok)

	testutil.AssertRedirect(t, b.get("/bookings/new"), "/admin/dashboard?from=%2Fbookings%2Fnew")

	testutil.AssertRedirect(t, b.post("/bookings/"+booking.ID+"/delete", confirm()), "/bookings")
	_, exists := p.api.BookingStatus(booking.ID)
	assert.False(t, exists)

	body = b.page("/bookings")
	assert.Contains(t, body, "Booking deleted.")
	assert.Contains(t, body, "No bookings yet.")
}

func TestHostBookings(t *testing.T) {
	p := newPortal(t)
	guest := testutil.NewUserBuilder().Build(p.api)
	host := testutil.NewUserBuilder().WithRole(domain.RoleHost).Build(p.api)
	mine := testutil.NewPropertyBuilder().WithName("Hill Cabin").WithHost(host).Build(p.api)
	other := testutil.NewPropertyBuilder().WithName("City Loft").Build(p.api)
	testutil.NewBookingBuilder(guest, mine).Build(p.api)
	testutil.NewBookingBuilder(guest, other).Build(p.api)

	b := p.browser(t)
	b.login(host)

	body := b.page("/bookings")
	assert.Contains(t, body, "Hill Cabin")
	assert.NotContains(t, body, "City Loft")
	assert.False(t, strings.Contains(body, "/cancel\""), "hosts cannot cancel")
}

func TestBookingActionsReportLoadFailure(t *testing.T) {
	p := newPortal(t)
	guest := testutil.NewUserBuilder().Build(p.api)

	b := p.browser(t)
	b.login(guest)

	t.Run("server failure gets the generic message", func(t *testing.T) {
		p.api.Override(http.MethodGet, "/bookings/me", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusBadGateway)
		})

		testutil.AssertRedirect(t, b.get("/bookings/missing/pay"), "/bookings")
		body := b.page("/bookings")
		assert.Contains(t, body, "Failed to load bookings")
		assert.NotContains(t, body, "item is not in the current list")
	})

	t.Run("rejected token goes to the landing page", func(t *testing.T) {
		p.api.Override(http.MethodGet, "/bookings/me", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"Token revoked"}`))
		})

		testutil.AssertRedirect(t, b.post("/bookings/missing/cancel", confirm()), "/")
		assert.Contains(t, b.page("/"), "Your session has expired. Please log in again.")
	})
}

package handlers_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuestWritesReview(t *testing.T) {
	p := newPortal(t)
	guest := testutil.NewUserBuilder().Build(p.api)
	prop := testutil.NewPropertyBuilder().Build(p.api)
	done := testutil.NewBookingBuilder(guest, prop).WithStatus(domain.BookingStatusCompleted).Build(p.api)
	pending := testutil.NewBookingBuilder(guest, prop).Build(p.api)

	b := p.browser(t)
	b.login(guest)

	body := b.page("/reviews")
	assert.Contains(t, body, "Your completed stays")
	assert.Contains(t, body, "Not reviewed")
	assert.Contains(t, body, `href="/reviews/new?bookingId=`+done.ID+`"`)
	assert.NotContains(t, body, pending.ID)

	t.Run("pending bookings cannot be reviewed", func(t *testing.T) {
		testutil.AssertRedirect(t, b.get("/reviews/new?bookingId="+pending.ID), "/reviews")
		assert.Contains(t, b.page("/reviews"), "you can only review completed bookings")
	})

	assert.Contains(t, b.page("/reviews/new?bookingId="+done.ID), `name="bookingId"`)

	t.Run("short comments are rejected locally", func(t *testing.T) {
		resp := b.post("/reviews", url.Values{"bookingId": {done.ID}, "rating": {"5"}, "comment": {"ok"}})
		testutil.AssertRedirect(t, resp, "/reviews/new?bookingId="+done.ID)
		assert.Empty(t, p.api.Requests("POST /reviews"))
	})

	resp := b.post("/reviews", url.Values{"bookingId": {done.ID}, "rating": {"4"}, "comment": {"Lovely view, quiet nights"}})
	testutil.AssertRedirect(t, resp, "/reviews?propertyId="+prop.ID)

	req, ok := p.api.LastRequest("POST /reviews")
	require.True(t, ok)
	assert.Equal(t, 4.0, req.JSON(t)["rating"])

	body = b.page("/reviews?propertyId=" + prop.ID)
	assert.Contains(t, body, "Review posted. Thank you!")
	assert.Contains(t, body, "Lovely view, quiet nights")
	assert.Contains(t, body, "4/5")
	assert.Contains(t, body, "Reviewed")

	t.Run("a second review for the same stay is refused", func(t *testing.T) {
		testutil.AssertRedirect(t, b.get("/reviews/new?bookingId="+done.ID), "/reviews")
		assert.Contains(t, b.page("/reviews"), "this booking already has a review")
	})
}

func TestReviewAuthorEditsAndDeletes(t *testing.T) {
	p := newPortal(t)
	author := testutil.NewUserBuilder().Build(p.api)
	other := testutil.NewUserBuilder().Build(p.api)
	prop := testutil.NewPropertyBuilder().Build(p.api)
	booking := testutil.NewBookingBuilder(author, prop).WithStatus(domain.BookingStatusCompleted).Build(p.api)
	review := testutil.NewReview(p.api, author, booking, 3, "Decent stay overall")

	t.Run("other guests cannot edit", func(t *testing.T) {
		b := p.browser(t)
		b.login(other)

		body := b.page("/reviews?propertyId=" + prop.ID)
		assert.Contains(t, body, "Decent stay overall")
		assert.NotContains(t, body, "/reviews/"+review.ID+"/edit")

		testutil.AssertRedirect(t, b.get("/reviews/"+review.ID+"/edit"), "/reviews?propertyId="+prop.ID)
		assert.Contains(t, b.page("/reviews"), "you can only edit your own reviews")
	})

	b := p.browser(t)
	b.login(author)
	assert.Contains(t, b.page("/reviews?propertyId="+prop.ID), `href="/reviews/`+review.ID+`/edit"`)

	body := b.page("/reviews/" + review.ID + "/edit")
	assert.Contains(t, body, `<option value="3" selected>`)

	resp := b.post("/reviews/"+review.ID+"/edit", url.Values{"rating": {"5"}, "comment": {"Better on reflection"}})
	testutil.AssertRedirect(t, resp, "/reviews?propertyId="+prop.ID)
	body = b.page("/reviews?propertyId=" + prop.ID)
	assert.Contains(t, body, "Review updated.")
	assert.Contains(t, body, "Better on reflection")
	assert.Contains(t, body, "5/5")

	testutil.AssertRedirect(t, b.post("/reviews/"+review.ID+"/delete", confirm()), "/reviews?propertyId="+prop.ID)
	body = b.page("/reviews?propertyId=" + prop.ID)
	assert.Contains(t, body, "Review deleted.")
	assert.Contains(t, body, "No reviews yet.")
}

func TestHostRespondsToReview(t *testing.T) {
	p := newPortal(t)
	guest := testutil.NewUserBuilder().Build(p.api)
	host := testutil.NewUserBuilder().WithRole(domain.RoleHost).Build(p.api)
	prop := testutil.NewPropertyBuilder().WithHost(host).Build(p.api)
	booking := testutil.NewBookingBuilder(guest, prop).WithStatus(domain.BookingStatusCompleted).Build(p.api)
	review := testutil.NewReview(p.api, guest, booking, 2, "Water was cold")

	b := p.browser(t)
	b.login(host)

	body := b.page("/reviews?propertyId=" + prop.ID)
	assert.Contains(t, body, `href="/reviews/`+review.ID+`/respond"`)
	assert.NotContains(t, body, "Your completed stays")

	assert.Contains(t, b.page("/reviews/"+review.ID+"/respond"), "2/5 from "+guest.Email)

	t.Run("empty response is rejected", func(t *testing.T) {
		resp := b.post("/reviews/"+review.ID+"/respond", url.Values{"response": {"   "}})
		testutil.AssertRedirect(t, resp, "/reviews?propertyId="+prop.ID)
		assert.Contains(t, b.page("/reviews?propertyId="+prop.ID), "Response cannot be empty")
	})

	resp := b.post("/reviews/"+review.ID+"/respond", url.Values{"response": {"Boiler fixed, sorry!"}})
	testutil.AssertRedirect(t, resp, "/reviews?propertyId="+prop.ID)

	body = b.page("/reviews?propertyId=" + prop.ID)
	assert.Contains(t, body, "Response saved.")
	assert.Contains(t, body, "Boiler fixed, sorry!")

	t.Run("guests cannot respond", func(t *testing.T) {
		gb := p.browser(t)
		gb.login(guest)
		testutil.AssertRedirect(t, gb.get("/reviews/"+review.ID+"/respond"), "/guest/dashboard?from=%2Freviews%2F"+review.ID+"%2Frespond")
	})
}

func TestBookingListHidesReviewedStays(t *testing.T) {
	p := newPortal(t)
	guest := testutil.NewUserBuilder().Build(p.api)
	prop := testutil.NewPropertyBuilder().Build(p.api)
	other := testutil.NewPropertyBuilder().WithName("Lakeside Cabin").Build(p.api)
	done := testutil.NewBookingBuilder(guest, prop).WithStatus(domain.BookingStatusCompleted).Build(p.api)
	earlier := testutil.NewBookingBuilder(guest, other).WithStatus(domain.BookingStatusCompleted).Build(p.api)
	testutil.NewReview(p.api, guest, earlier, 5, "Would stay again")

	b := p.browser(t)
	b.login(guest)

	body := b.page("/bookings")
	assert.Contains(t, body, `href="/reviews/new?bookingId=`+done.ID+`"`)
	assert.NotContains(t, body, `href="/reviews/new?bookingId=`+earlier.ID+`"`)

	resp := b.post("/reviews", url.Values{"bookingId": {done.ID}, "rating": {"5"}, "comment": {"Spotless and bright"}})
	testutil.AssertRedirect(t, resp, "/reviews?propertyId="+prop.ID)

	body = b.page("/bookings")
	assert.NotContains(t, body, `href="/reviews/new?bookingId=`+done.ID+`"`)
	assert.NotContains(t, body, `href="/reviews/new?bookingId=`+earlier.ID+`"`)
}

func TestReviewPagesReportBookingLoadFailure(t *testing.T) {
	p := newPortal(t)
	guest := testutil.NewUserBuilder().Build(p.api)

	b := p.browser(t)
	b.login(guest)

	p.api.Override(http.MethodGet, "/bookings/me", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})

	testutil.AssertRedirect(t, b.get("/reviews/new?bookingId=missing"), "/reviews")
	body := b.page("/reviews")
	assert.Contains(t, body, "Failed to load bookings")
	assert.NotContains(t, body, "item is not in the current list")
}

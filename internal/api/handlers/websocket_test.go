package handlers_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dom/stay-portal/internal/testutil"
	gorillaWS "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocketRequiresLogin(t *testing.T) {
	p := newPortal(t)
	b := p.browser(t)
	b.page("/") // picks up a session cookie, but no token

	url := "ws" + strings.TrimPrefix(p.server.URL, "http") + "/ws"
	_, resp, err := gorillaWS.DefaultDialer.Dial(url, b.cookieHeader())
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketMirrorsFlashesToOtherTabs(t *testing.T) {
	p := newPortal(t)
	guest := testutil.NewUserBuilder().Build(p.api)
	prop := testutil.NewPropertyBuilder().Build(p.api)
	booking := testutil.NewBookingBuilder(guest, prop).Build(p.api)

	b := p.browser(t)
	b.login(guest)
	tab := p.openTab(t, b)

	testutil.AssertRedirect(t, b.post("/bookings/"+booking.ID+"/cancel", confirm()), "/bookings")

	msg := tab.Expect("NOTIFICATION", 2*time.Second)
	var payload struct {
		ID      string `json:"id"`
		Level   string `json:"level"`
		Message string `json:"message"`
	}
	msg.Decode(t, &payload)
	assert.Equal(t, "Booking cancelled.", payload.Message)
	assert.NotEmpty(t, payload.ID)

	t.Run("other sessions hear nothing", func(t *testing.T) {
		other := p.browser(t)
		other.login(testutil.NewUserBuilder().Build(p.api))
		otherTab := p.openTab(t, other)

		testutil.AssertRedirect(t, b.post("/bookings/"+booking.ID+"/cancel", confirm()), "/bookings")
		tab.Expect("NOTIFICATION", 2*time.Second)
		otherTab.ExpectNone("NOTIFICATION", 200*time.Millisecond)
	})
}

func TestWebSocketSessionEndedOnLogout(t *testing.T) {
	p := newPortal(t)
	guest := testutil.NewUserBuilder().Build(p.api)

	b := p.browser(t)
	b.login(guest)
	first := p.openTab(t, b)
	second := p.openTab(t, b)

	testutil.AssertRedirect(t, b.post("/logout", nil), "/")

	for _, tab := range []*testutil.WSClient{first, second} {
		msg := tab.Expect("SESSION_ENDED", 2*time.Second)
		var payload struct {
			Reason   string `json:"reason"`
			Redirect string `json:"redirect"`
		}
		msg.Decode(t, &payload)
		assert.Equal(t, "/", payload.Redirect)
	}
}

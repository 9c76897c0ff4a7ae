package handlers_test

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dom/stay-portal/internal/api"
	"github.com/dom/stay-portal/internal/apiclient"
	"github.com/dom/stay-portal/internal/config"
	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/render"
	"github.com/dom/stay-portal/internal/repository/memory"
	"github.com/dom/stay-portal/internal/service"
	"github.com/dom/stay-portal/internal/session"
	"github.com/dom/stay-portal/internal/testutil"
	"github.com/dom/stay-portal/internal/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const sessionCookie = "stay_session"

// portal is the full web stack in front of a fake booking API
type portal struct {
	api      *testutil.FakeAPI
	sessions *session.Manager
	services *service.Services
	hub      *websocket.Hub
	server   *httptest.Server
}

func newPortal(t *testing.T) *portal {
	t.Helper()

	fake := testutil.NewFakeAPI(t)
	sealer, err := session.NewRandomSealer()
	require.NoError(t, err)
	sessions := session.NewManager(memory.NewSessionRepository(), sealer, time.Hour)

	cfg := &config.Config{
		Environment:   "test",
		PublicURL:     "http://portal.test",
		SessionCookie: sessionCookie,
		SessionTTL:    time.Hour,
	}
	services := service.NewServices(apiclient.New(fake.URL(), 5*time.Second), sessions, cfg)

	hub := websocket.NewHub("/")
	go hub.Run()
	t.Cleanup(hub.Stop)
	sessions.Subscribe(hub.SessionCleared)

	views, err := render.New()
	require.NoError(t, err)

	server := httptest.NewServer(api.NewRouter(services, hub, views, cfg))
	t.Cleanup(server.Close)

	return &portal{api: fake, sessions: sessions, services: services, hub: hub, server: server}
}

// browser is one cookie jar; redirects are returned, not followed
type browser struct {
	t      *testing.T
	base   string
	jar    *cookiejar.Jar
	client *http.Client
}

func (p *portal) browser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:    t,
		base: p.server.URL,
		jar:  jar,
		client: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) do(req *http.Request) *http.Response {
	b.t.Helper()
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	b.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (b *browser) get(path string) *http.Response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.base+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) *http.Response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

// page GETs path, requires a 200 and returns the body
func (b *browser) page(path string) string {
	b.t.Helper()
	resp := b.get(path)
	require.Equal(b.t, http.StatusOK, resp.StatusCode, "GET %s", path)
	return testutil.ReadBody(b.t, resp)
}

// login signs user in and requires the redirect to their dashboard
func (b *browser) login(user domain.User) {
	b.t.Helper()
	resp := b.post("/login", url.Values{"email": {user.Email}, "password": {testutil.DefaultPassword}})
	testutil.AssertRedirect(b.t, resp, user.Role.Dashboard())
}

// cookieHeader carries the session cookie for a WebSocket dial
func (b *browser) cookieHeader() http.Header {
	u, _ := url.Parse(b.base)
	h := http.Header{}
	for _, c := range b.jar.Cookies(u) {
		h.Add("Cookie", c.Name+"="+c.Value)
	}
	return h
}

func confirm() url.Values {
	return url.Values{"confirm": {"yes"}}
}

func futureDate(days int) string {
	return domain.NewDate(time.Now().AddDate(0, 0, days)).String()
}

// sessionID is the browser's session cookie value
func (b *browser) sessionID() uuid.UUID {
	b.t.Helper()
	u, _ := url.Parse(b.base)
	for _, c := range b.jar.Cookies(u) {
		if c.Name == sessionCookie {
			id, err := uuid.Parse(c.Value)
			require.NoError(b.t, err)
			return id
		}
	}
	b.t.Fatal("browser has no session cookie")
	return uuid.Nil
}

// openTab connects a live-notification socket for the browser's session
// and waits until the hub has registered it
func (p *portal) openTab(t *testing.T, b *browser) *testutil.WSClient {
	t.Helper()
	sid := b.sessionID()
	before := p.hub.Connections(sid)
	client := testutil.NewWSClient(t, p.server.URL+"/ws", b.cookieHeader())
	require.Eventually(t, func() bool { return p.hub.Connections(sid) == before+1 },
		2*time.Second, 10*time.Millisecond, "tab was not registered")
	return client
}

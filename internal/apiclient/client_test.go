package apiclient_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dom/stay-portal/internal/apiclient"
	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/repository/memory"
	"github.com/dom/stay-portal/internal/session"
	"github.com/dom/stay-portal/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*session.Manager, *session.Store) {
	t.Helper()
	sealer, err := session.NewRandomSealer()
	require.NoError(t, err)
	m := session.NewManager(memory.NewSessionRepository(), sealer, time.Hour)
	return m, m.For(uuid.New())
}

func TestClient_AttachesBearerWhenTokenPresent(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	guest := testutil.NewUserBuilder().Build(api)
	token := api.IssueToken(guest.Email)

	_, store := newStore(t)
	require.NoError(t, store.Save(context.Background(), token, domain.RoleGuest))

	client := apiclient.New(api.URL(), 5*time.Second).ForSession(store)
	me, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, guest.Email, me.Email)

	req, ok := api.LastRequest("GET /user/me")
	require.True(t, ok)
	testutil.AssertBearer(t, req, token)
	assert.Equal(t, "application/json", req.ContentType)
}

func TestClient_SendsUnauthenticatedWithoutToken(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	testutil.NewUserBuilder().WithEmail("g@example.com").Build(api)

	_, store := newStore(t)
	client := apiclient.New(api.URL(), 5*time.Second).ForSession(store)

	require.NoError(t, client.ForgotPassword(context.Background(), "g@example.com"))

	req, ok := api.LastRequest("POST /auth/forgot-password")
	require.True(t, ok)
	assert.Empty(t, req.Authorization)
	assert.Equal(t, "g@example.com", req.JSON(t)["email"])
}

func TestClient_UnauthorizedClearsStoreAndFiresHook(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.Override(http.MethodGet, "/bookings/me", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"expired"}`, http.StatusUnauthorized)
	})

	m, store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "stale-token", domain.RoleGuest))

	var cleared []session.ClearReason
	m.Subscribe(func(id uuid.UUID, reason session.ClearReason) {
		cleared = append(cleared, reason)
	})

	client := apiclient.New(api.URL(), 5*time.Second)
	var hookPath string
	client.OnUnauthorized(func(ctx context.Context, method, path string) {
		hookPath = method + " " + path
	})

	_, err := client.ForSession(store).Bookings(ctx, domain.RoleGuest)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthenticated))

	token, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token, "401 must clear the token store")

	role, err := store.Role(ctx)
	require.NoError(t, err)
	assert.Empty(t, role)

	assert.Equal(t, []session.ClearReason{session.ReasonUnauthorized}, cleared)
	assert.Equal(t, "GET /bookings/me", hookPath)
}

func TestClient_ErrorsPassThrough(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantFault   bool
	}{
		{name: "json message", status: 400, body: `{"message":"Property not available"}`, wantMessage: "Property not available"},
		{name: "json error field", status: 403, body: `{"error":"Forbidden"}`, wantMessage: "Forbidden"},
		{name: "plain text", status: 409, body: "Booking overlaps", wantMessage: "Booking overlaps"},
		{name: "long text cut on a rune boundary", status: 409, body: strings.Repeat("a", 299) + strings.Repeat("é", 10), wantMessage: strings.Repeat("a", 299) + "é"},
		{name: "html error page", status: 502, body: "<html>Bad Gateway</html>", wantMessage: "request failed (status 502)", wantFault: true},
		{name: "empty body", status: 500, body: "", wantMessage: "request failed (status 500)", wantFault: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, store := newStore(t)
			require.NoError(t, store.Save(context.Background(), "tok", domain.RoleGuest))

			client := apiclient.New(srv.URL, time.Second).ForSession(store)
			err := client.Get(context.Background(), "/anything", nil)

			var apiErr *apiclient.APIError
			require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMessage, apiErr.Error())
			assert.Equal(t, tt.wantFault, apiErr.ServerFault())

			token, _ := store.Token(context.Background())
			assert.Equal(t, "tok", token, "non-401 errors leave the session alone")
		})
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := apiclient.New(url, time.Second)
	err := client.Get(context.Background(), "/properties", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apiclient.ErrNetwork))
}

func TestClient_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := apiclient.New(srv.URL, time.Second).Get(ctx, "/slow", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_DecodesPlainTextIntoString(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OTP sent to your email"))
	}))
	defer srv.Close()

	var out string
	err := apiclient.New(srv.URL, time.Second).Post(context.Background(), "/x", nil, &out)
	require.NoError(t, err)
	assert.Equal(t, "OTP sent to your email", out)
}

func TestClient_UpdateMeSendsMultipart(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	user := testutil.NewUserBuilder().WithEmail("me@example.com").Build(api)

	_, store := newStore(t)
	require.NoError(t, store.Save(context.Background(), api.IssueToken(user.Email), domain.RoleGuest))
	client := apiclient.New(api.URL(), 5*time.Second).ForSession(store)

	updated, err := client.UpdateMe(context.Background(), domain.ProfileUpdate{
		FirstName:   "Amina",
		LastName:    "Otieno",
		Email:       "me@example.com",
		PhoneNumber: "0712345678",
	}, &apiclient.FilePart{Filename: "face.png", Content: strings.NewReader("png-bytes")})
	require.NoError(t, err)

	assert.Equal(t, "Amina", updated.FirstName)
	assert.Equal(t, "/uploads/face.png", updated.ProfilePhotoPath)

	req, ok := api.LastRequest("PUT /user/me")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(req.ContentType, "multipart/form-data"))
	assert.NotContains(t, string(req.Body), `name="password"`, "blank password is not sent")
}

func TestClient_Endpoints(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	admin := testutil.NewUserBuilder().WithRole(domain.RoleAdmin).Build(api)
	target := testutil.NewUserBuilder().Build(api)
	prop := testutil.NewPropertyBuilder().WithPrice(5000).Build(api)

	_, store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, api.IssueToken(admin.Email), domain.RoleAdmin))
	client := apiclient.New(api.URL(), 5*time.Second).ForSession(store)

	t.Run("calculate price query", func(t *testing.T) {
		start, _ := domain.ParseDate("2024-01-01")
		end, _ := domain.ParseDate("2024-01-04")

		quote, err := client.CalculatePrice(ctx, prop.ID, start, end)
		require.NoError(t, err)
		assert.Equal(t, 3, quote.Nights)
		assert.Equal(t, 15000.0, quote.TotalPrice)

		req, _ := api.LastRequest("GET /bookings/calculate")
		assert.Contains(t, req.Query, "start=2024-01-01")
		assert.Contains(t, req.Query, "end=2024-01-04")
		assert.Contains(t, req.Query, "propertyId="+prop.ID)
	})

	t.Run("activation toggle paths", func(t *testing.T) {
		require.NoError(t, client.SetUserActive(ctx, target.ID, false))
		active, _ := api.UserActive(target.ID)
		assert.False(t, active)

		require.NoError(t, client.SetUserActive(ctx, target.ID, true))
		active, _ = api.UserActive(target.ID)
		assert.True(t, active)

		assert.Len(t, api.Requests("PATCH /admin/users/"+target.ID+"/deactivate"), 1)
		assert.Len(t, api.Requests("PATCH /admin/users/"+target.ID+"/activate"), 1)
	})

	t.Run("search drops empty filters", func(t *testing.T) {
		props, err := client.SearchProperties(ctx, domain.PropertySearch{Location: "mombasa"})
		require.NoError(t, err)
		assert.Len(t, props, 1)

		req, _ := api.LastRequest("GET /properties/search")
		assert.Equal(t, "location=mombasa", req.Query)
	})

	t.Run("admin reads all bookings", func(t *testing.T) {
		_, err := client.Bookings(ctx, domain.RoleAdmin)
		require.NoError(t, err)
		_, ok := api.LastRequest("GET /bookings/all")
		assert.True(t, ok)
	})
}

func TestClient_Login(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	host := testutil.NewUserBuilder().WithRole(domain.RoleHost).Build(api)
	client := apiclient.New(api.URL(), 5*time.Second)

	token, err := client.Login(context.Background(), host.Email, testutil.DefaultPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = client.Login(context.Background(), host.Email, "wrong")
	var apiErr *apiclient.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Invalid email or password", apiErr.Message)
}

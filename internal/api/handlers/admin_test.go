package handlers_test

import (
	"net/url"
	"regexp"
	"testing"

	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userCount = regexp.MustCompile(`(\d+) users registered\.`)

func TestAdminUserList(t *testing.T) {
	p := newPortal(t)
	admin := testutil.NewUserBuilder().WithRole(domain.RoleAdmin).WithName("Root", "Admin").Build(p.api)
	testutil.NewUserBuilder().WithName("Wanjiru", "Kamau").WithEmail("wanjiru@example.com").Build(p.api)
	testutil.NewUserBuilder().WithRole(domain.RoleHost).WithName("Baraka", "Mwangi").WithEmail("baraka@example.com").Build(p.api)

	b := p.browser(t)
	b.login(admin)

	body := b.page("/admin/users")
	assert.Contains(t, body, "Wanjiru Kamau")
	assert.Contains(t, body, "Baraka Mwangi")

	tests := []struct {
		name     string
		query    string
		contains []string
		excludes []string
	}{
		{"by name", "wanjiru", []string{"Wanjiru Kamau"}, []string{"Baraka Mwangi"}},
		{"by role", "host", []string{"Baraka Mwangi"}, []string{"Wanjiru Kamau"}},
		{"no match", "zzz", []string{"No users match."}, []string{"Wanjiru Kamau", "Baraka Mwangi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := b.page("/admin/users?" + url.Values{"q": {tt.query}}.Encode())
			for _, s := range tt.contains {
				assert.Contains(t, body, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, body, s)
			}
		})
	}

	t.Run("dashboard count ignores the filter", func(t *testing.T) {
		b.page("/admin/users?q=")
		unfiltered := userCount.FindStringSubmatch(b.page(domain.RoleAdmin.Dashboard()))
		require.Len(t, unfiltered, 2)

		b.page("/admin/users?q=baraka")
		filtered := userCount.FindStringSubmatch(b.page(domain.RoleAdmin.Dashboard()))
		require.Len(t, filtered, 2)
		assert.Equal(t, unfiltered[1], filtered[1])
		assert.NotEqual(t, "1", filtered[1])
	})

	t.Run("the filter sticks until changed", func(t *testing.T) {
		b.page("/admin/users?q=baraka")
		body := b.page("/admin/users")
		assert.Contains(t, body, `value="baraka"`)
		assert.NotContains(t, body, "Wanjiru Kamau")
	})
}

func TestAdminToggleUser(t *testing.T) {
	p := newPortal(t)
	admin := testutil.NewUserBuilder().WithRole(domain.RoleAdmin).Build(p.api)
	user := testutil.NewUserBuilder().WithName("Achieng", "Odhiambo").Build(p.api)

	b := p.browser(t)
	b.login(admin)

	// Toggling needs the list loaded in this session.
	testutil.AssertRedirect(t, b.get("/admin/users/"+user.ID+"/toggle"), "/admin/users")

	b.page("/admin/users")
	assert.Contains(t, b.page("/admin/users/"+user.ID+"/toggle"), "Deactivate the account of Achieng Odhiambo")

	testutil.AssertRedirect(t, b.post("/admin/users/"+user.ID+"/toggle", nil), "/admin/users")
	active, _ := p.api.UserActive(user.ID)
	assert.True(t, active, "unconfirmed toggle must not reach the API")

	testutil.AssertRedirect(t, b.post("/admin/users/"+user.ID+"/toggle", confirm()), "/admin/users")
	active, _ = p.api.UserActive(user.ID)
	assert.False(t, active)
	_, ok := p.api.LastRequest("PATCH /admin/users/" + user.ID + "/deactivate")
	assert.True(t, ok)

	body := b.page("/admin/users")
	assert.Contains(t, body, "Achieng Odhiambo has been deactivated.")
	assert.Contains(t, body, "Inactive")

	testutil.AssertRedirect(t, b.post("/admin/users/"+user.ID+"/toggle", confirm()), "/admin/users")
	active, _ = p.api.UserActive(user.ID)
	assert.True(t, active)
	assert.Contains(t, b.page("/admin/users"), "Achieng Odhiambo has been activated.")
}

func TestAdminCreateAndEditUser(t *testing.T) {
	p := newPortal(t)
	admin := testutil.NewUserBuilder().WithRole(domain.RoleAdmin).Build(p.api)

	b := p.browser(t)
	b.login(admin)

	t.Run("invalid phone stays on the form", func(t *testing.T) {
		resp := b.post("/admin/users", url.Values{
			"firstName":   {"Kevin"},
			"lastName":    {"Kiprop"},
			"email":       {"kevin@example.com"},
			"phoneNumber": {"12345"},
		})
		testutil.AssertRedirect(t, resp, "/admin/users/new")
		assert.Contains(t, b.page("/admin/users/new"), "Enter a valid phone")
		assert.Empty(t, p.api.Requests("POST /admin/users"))
	})

	resp := b.post("/admin/users", url.Values{
		"firstName":   {"Kevin"},
		"lastName":    {"Kiprop"},
		"email":       {"kevin@example.com"},
		"phoneNumber": {"+254712345678"},
	})
	testutil.AssertRedirect(t, resp, "/admin/users")

	req, ok := p.api.LastRequest("POST /admin/users")
	require.True(t, ok)
	payload := req.JSON(t)
	assert.Equal(t, "ADMIN", payload["role"])
	assert.Equal(t, "ADMIN", payload["creatorRole"])

	body := b.page("/admin/users")
	assert.Contains(t, body, "Admin kevin@example.com created.")
	assert.Contains(t, body, "Kevin Kiprop")

	kevinID := p.api.UserID("kevin@example.com")
	require.NotEmpty(t, kevinID)
	assert.Contains(t, b.page("/admin/users/"+kevinID+"/edit"), `value="Kiprop"`)

	resp = b.post("/admin/users/"+kevinID, url.Values{
		"firstName":   {"Kevin"},
		"lastName":    {"Cheruiyot"},
		"phoneNumber": {"0711111111"},
	})
	testutil.AssertRedirect(t, resp, "/admin/users")
	body = b.page("/admin/users")
	assert.Contains(t, body, "User updated.")
	assert.Contains(t, body, "Kevin Cheruiyot")
}

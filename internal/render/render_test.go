package render

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dom/stay-portal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name  string
	Price int
	Open  bool
}

func renderPage(t *testing.T, p Page) (int, string) {
	t.Helper()
	r, err := New()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.Render(rec, http.StatusOK, p)
	return rec.Code, rec.Body.String()
}

func TestNewTable(t *testing.T) {
	rows := []item{{Name: "Cabin", Price: 5000, Open: true}, {Name: "Loft", Price: 7000}}
	table := NewTable(rows,
		[]Column[item]{
			{Header: "Name", Value: func(i item) string { return i.Name }},
			{Header: "Price", Value: func(i item) string { return domain.FormatAmount(float64(i.Price)) }},
		},
		[]Action[item]{
			{Label: "Book", Href: func(i item) string { return "/book/" + i.Name }, Show: func(i item) bool { return i.Open }},
			{Label: "Delete", Href: func(i item) string { return "/delete/" + i.Name }, Post: true},
		},
		"Nothing here")

	assert.Equal(t, []string{"Name", "Price", "Actions"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Len(t, table.Rows[0].Actions, 2)
	require.Len(t, table.Rows[1].Actions, 1)
	assert.Equal(t, "Delete", table.Rows[1].Actions[0].Label)
	assert.True(t, table.Rows[1].Actions[0].Post)
	assert.True(t, table.HasActions())
}

func TestRender(t *testing.T) {
	t.Run("empty table shows placeholder", func(t *testing.T) {
		table := NewTable[item](nil, []Column[item]{{Header: "Name", Value: func(i item) string { return i.Name }}}, nil, "No bookings yet")
		code, body := renderPage(t, Page{Title: "Bookings", Sections: []Section{{Table: table}}})

		assert.Equal(t, http.StatusOK, code)
		assert.Contains(t, body, "No bookings yet")
		assert.NotContains(t, body, "<table>")
	})

	t.Run("cells are escaped", func(t *testing.T) {
		table := NewTable([]item{{Name: "<script>alert(1)</script>"}}, []Column[item]{{Header: "Name", Value: func(i item) string { return i.Name }}}, nil, "")
		_, body := renderPage(t, Page{Title: "x", Sections: []Section{{Table: table}}})

		assert.NotContains(t, body, "<script>alert(1)")
		assert.Contains(t, body, "&lt;script&gt;")
	})

	t.Run("file field makes the form multipart", func(t *testing.T) {
		form := &Form{Action: "/profile", Fields: []Field{
			{Name: "firstName", Label: "First name", Type: "text", Value: "Ada", Required: true},
			{Name: "photo", Label: "Photo", Type: "file"},
		}}
		_, body := renderPage(t, Page{Title: "Profile", Sections: []Section{{Form: form}}})

		assert.Contains(t, body, `enctype="multipart/form-data"`)
		assert.Contains(t, body, `name="firstName" value="Ada"`)
		assert.Contains(t, body, "required")
	})

	t.Run("select marks the chosen option", func(t *testing.T) {
		form := &Form{Action: "/register", Fields: []Field{
			{Name: "role", Label: "Role", Type: "select", Options: Options("HOST", "GUEST", "Guest", "HOST", "Host")},
		}}
		_, body := renderPage(t, Page{Title: "Register", Sections: []Section{{Form: form}}})

		assert.Contains(t, body, `<option value="HOST" selected>Host</option>`)
		assert.Contains(t, body, `<option value="GUEST">Guest</option>`)
	})

	t.Run("flashes and identity", func(t *testing.T) {
		_, body := renderPage(t, Page{
			Title:   "Dashboard",
			User:    "ada@example.com",
			Role:    domain.RoleHost,
			Nav:     NavFor(domain.RoleHost),
			Flashes: []domain.Flash{{ID: "f1", Level: domain.FlashError, Message: "Booking failed"}},
			Live:    true,
		})

		assert.Contains(t, body, `class="notice notice-error" data-id="f1"`)
		assert.Contains(t, body, "Booking failed")
		assert.Contains(t, body, "ada@example.com")
		assert.Contains(t, body, `href="/properties"`)
		assert.Contains(t, body, "new WebSocket")
	})

	t.Run("confirm section posts confirm=yes", func(t *testing.T) {
		_, body := renderPage(t, Page{Title: "Cancel booking", Sections: []Section{
			Confirm("Cancel booking", "Cancel this booking?", "/bookings/b1/cancel", "/bookings"),
		}})

		assert.Contains(t, body, `action="/bookings/b1/cancel"`)
		assert.Contains(t, body, `name="confirm" value="yes"`)
		assert.True(t, strings.Contains(body, `href="/bookings"`))
	})
}

func TestNavFor(t *testing.T) {
	assert.Equal(t, "/login", NavFor("")[0].Href)
	assert.Equal(t, domain.RoleAdmin.Dashboard(), NavFor(domain.RoleAdmin)[0].Href)
	assert.Equal(t, "/admin/users", NavFor(domain.RoleAdmin)[1].Href)
}

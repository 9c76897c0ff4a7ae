package handlers_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/dom/stay-portal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postMultipart submits fields and an optional photo the way the profile form does
func (b *browser) postMultipart(path string, fields map[string]string, photoName string, photo []byte) *http.Response {
	b.t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(b.t, mw.WriteField(k, v))
	}
	if photoName != "" {
		fw, err := mw.CreateFormFile("photo", photoName)
		require.NoError(b.t, err)
		_, err = fw.Write(photo)
		require.NoError(b.t, err)
	}
	require.NoError(b.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, b.base+path, &buf)
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return b.do(req)
}

func TestProfile(t *testing.T) {
	p := newPortal(t)
	user := testutil.NewUserBuilder().WithName("Jane", "Mutua").Build(p.api)

	b := p.browser(t)
	b.login(user)

	body := b.page("/profile")
	assert.Contains(t, body, `value="Jane"`)
	assert.Contains(t, body, `enctype="multipart/form-data"`)

	t.Run("weak new password is rejected locally", func(t *testing.T) {
		resp := b.postMultipart("/profile", map[string]string{
			"firstName": "Jane",
			"lastName":  "Mutua",
			"email":     user.Email,
			"password":  "short",
		}, "", nil)
		testutil.AssertRedirect(t, resp, "/profile")
		assert.Contains(t, b.page("/profile"), "Password does not meet all requirements")
		assert.Empty(t, p.api.Requests("PUT /user/me"))
	})

	resp := b.postMultipart("/profile", map[string]string{
		"firstName":   "Janet",
		"lastName":    "Mutua",
		"email":       user.Email,
		"phoneNumber": "0722000000",
	}, "avatar.png", []byte("\x89PNG fake image"))
	testutil.AssertRedirect(t, resp, "/profile")

	req, ok := p.api.LastRequest("PUT /user/me")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(req.ContentType, "multipart/form-data"))
	assert.Contains(t, string(req.Body), "avatar.png")
	assert.True(t, strings.HasPrefix(req.Authorization, "Bearer "))

	body = b.page("/profile")
	assert.Contains(t, body, "Profile updated.")
	assert.Contains(t, body, `value="Janet"`)
	assert.Contains(t, body, "/uploads/avatar.png")
	assert.Equal(t, testutil.DefaultPassword, p.api.Password(user.Email), "blank password keeps the old one")
}

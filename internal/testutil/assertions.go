package testutil

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode verifies the HTTP response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "unexpected status code")
}

// AssertRedirect verifies a 303 to the expected location
func AssertRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode, "expected a redirect")
	assert.Equal(t, location, resp.Header.Get("Location"), "unexpected redirect target")
}

// ReadBody returns the response body as a string
func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")
	return string(body)
}

// AssertBodyContains verifies the rendered page contains every fragment
func AssertBodyContains(t *testing.T, resp *http.Response, fragments ...string) string {
	t.Helper()
	body := ReadBody(t, resp)
	for _, f := range fragments {
		assert.Contains(t, body, f, "page is missing %q", f)
	}
	return body
}

// AssertBearer verifies a recorded request carried the given token
func AssertBearer(t *testing.T, req RecordedRequest, token string) {
	t.Helper()
	assert.Equal(t, "Bearer "+token, req.Authorization, "unexpected Authorization header")
}

package media

import (
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/creatorstation/thumbnailer/pkg/video/videotest"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenPattern = regexp.MustCompile(`name="_csrf" value="([^"]+)"`)

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestIndex(t *testing.T) {
	app, _ := newTestApp(t, &videotest.Decoder{})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Hello World")
}

func TestUploadFlow(t *testing.T) {
	app, dir := newTestApp(t, &videotest.Decoder{})

	resp, err := app.Test(httptest.NewRequest("GET", "/form/", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	match := tokenPattern.FindStringSubmatch(readBody(t, resp))
	require.Len(t, match, 2)
	token := match[1]

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "csrftoken" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	body, contentType := multipartBody(t, FormField, videotest.Fake(640, 480, 5, "page"), map[string]string{csrfField: token})
	req := httptest.NewRequest("POST", "/upload/", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(cookie)

	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	html := readBody(t, resp)
	assert.Contains(t, html, `src="data:video/mp4;base64,`)
	assert.Contains(t, html, `src="data:image/png;base64,`)
	assert.Contains(t, html, `width="300" height="225"`)
	requireEmptyDir(t, dir)
}

func TestUploadRequiresToken(t *testing.T) {
	app, dir := newTestApp(t, &videotest.Decoder{})

	body, contentType := multipartBody(t, FormField, videotest.Fake(64, 48, 5, "forged"), nil)
	req := httptest.NewRequest("POST", "/upload/", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	requireEmptyDir(t, dir)
}

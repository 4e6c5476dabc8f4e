package media

import (
	"bytes"
	"html/template"
	"time"

	"github.com/creatorstation/thumbnailer/pkg/thumbnail"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
)

const (
	csrfField      = "_csrf"
	csrfContextKey = "csrf"
)

var (
	formTmpl = template.Must(template.New("form").Parse(`<html><head><title>Video thumbnail</title></head><body>
<h1>Generate video preview and thumbnail</h1>
<h4>Choose a video file and click on 'Upload New Video'.</h4><br/>
<form enctype="multipart/form-data" action="/upload/" method="POST">
<input type="hidden" name="` + csrfField + `" value="{{.Token}}">
<hr/><input type="file" name="` + FormField + `" accept="video/*"><br/><hr/><br/>
<button type="submit"><h2><strong>Upload New Video</strong></h2></button>
</form>
</body></html>`))

	resultTmpl = template.Must(template.New("result").Parse(`<html><head><title>Video thumbnail</title></head><body>
<div style="display: flex; justify-content: space-evenly; align-items: flex-end">
<div>
<h1>Uploaded Video:</h1><br/>
<video width="300" controls autoplay><source src="{{.Video}}" type="{{.VideoMIME}}"></video><br/>
</div>
<div>
<h3>Generated Thumbnail:</h3>
<img src="{{.Thumbnail}}" width="{{.Width}}" height="{{.Height}}">
</div>
</div>
</body></html>`))

	errorTmpl = template.Must(template.New("error").Parse(`<html><head><title>Upload failed</title></head><body>
<h1>Could not generate a thumbnail</h1>
<p>{{.}}</p>
<a href="/form/">Try another video</a>
</body></html>`))
)

type pages struct {
	pipeline *thumbnail.Pipeline
}

// MountPages serves the browser upload flow: a form carrying an anti-forgery
// token and a result page embedding the video and thumbnail inline.
func MountPages(router fiber.Router, pipeline *thumbnail.Pipeline) {
	h := &pages{pipeline: pipeline}

	protect := csrf.New(csrf.Config{
		KeyLookup:      "form:" + csrfField,
		CookieName:     "csrftoken",
		CookieSameSite: "Lax",
		CookieHTTPOnly: true,
		Expiration:     time.Hour,
		ContextKey:     csrfContextKey,
	})

	router.Get("/", h.Index)
	router.Get("/form/", protect, h.Form)
	router.Post("/upload/", protect, h.Upload)
}

func (h *pages) Index(c *fiber.Ctx) error {
	c.Type("html")
	return c.SendString("<html><head></head><body><h1>Hello World</h1></body></html>")
}

func (h *pages) Form(c *fiber.Ctx) error {
	token, _ := c.Locals(csrfContextKey).(string)
	return render(c, fiber.StatusOK, formTmpl, struct{ Token string }{token})
}

func (h *pages) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile(FormField)
	if err != nil {
		return render(c, fiber.StatusBadRequest, errorTmpl, "No video was uploaded.")
	}

	fileContent, err := file.Open()
	if err != nil {
		return render(c, fiber.StatusInternalServerError, errorTmpl, err.Error())
	}
	defer fileContent.Close()

	res, err := h.pipeline.Run(c.UserContext(), fileContent)
	if err != nil {
		return render(c, statusFor(err), errorTmpl, err.Error())
	}
	res.VideoMIME = videoMIME(file.Header.Get("Content-Type"))

	// data: URIs are not in html/template's safe URL set.
	return render(c, fiber.StatusOK, resultTmpl, struct {
		Video     template.URL
		VideoMIME string
		Thumbnail template.URL
		Width     int
		Height    int
	}{
		Video:     template.URL(res.VideoDataURI()),
		VideoMIME: res.VideoMIME,
		Thumbnail: template.URL(res.ThumbnailDataURI()),
		Width:     res.Width,
		Height:    res.Height,
	})
}

func render(c *fiber.Ctx, status int, tmpl *template.Template, data any) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}
	c.Type("html")
	return c.Status(status).Send(buf.Bytes())
}

package media

import (
	"errors"
	"net/url"
	"strings"

	v "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// MediaURLBody is the JSON body of POST /media/thumbnail-url. MediaURI must
// be an absolute http or https URL pointing at the video itself.
type MediaURLBody struct {
	MediaURI string `json:"media_uri"`
}

func (b MediaURLBody) Validate() error {
	return v.ValidateStruct(&b,
		v.Field(&b.MediaURI, v.Required, is.URL, v.By(httpScheme)),
	)
}

func httpScheme(value interface{}) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return nil
	}
	return errors.New("must use http or https")
}

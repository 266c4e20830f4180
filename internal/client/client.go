package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MuhamedUsman/postit/internal/file"
	"github.com/dustin/go-humanize"
	"github.com/imroc/req/v3"
)

const (
	// FilenameField is the multipart text field carrying the file name literal
	FilenameField = "filename"
	// ImageField is the multipart file field carrying the image bytes
	ImageField = "image"
	// ExpectContinue is the Expect header value sent unless suppressed
	ExpectContinue = "100-continue"
	userAgent      = "postit"
)

var ErrStatus = errors.New("server returned non-success status")

// Upload describes the single multipart POST performed by the harness.
type Upload struct {
	URL string
	// value of the "filename" text field
	Filename string
	// file name label attached to the "image" part
	ImageLabel string
	Image      file.Buffer
	// NoExpect omits the "Expect: 100-continue" header
	NoExpect bool
}

type Result struct {
	StatusCode int
	Status     string
	Body       string
	// bytes of image content handed to the transport
	Sent int64
}

type Client struct {
	http *req.Client
}

// New returns a Client without retries, the underlying req client logs through slog.
func New() *Client {
	c := req.C().
		SetUserAgent(userAgent).
		SetLogger(slogAdapter{})
	return &Client{http: c}
}

// Upload performs one blocking multipart POST described by u.
//
// The form carries two parts, a text field FilenameField with u.Filename and a
// file field ImageField labelled u.ImageLabel with the content of u.Image.
// Unless u.NoExpect is set the request carries "Expect: 100-continue", the header
// libcurl adds to form posts by default.
//
// Returns:
//   - Result: the response status and body, also on a non-2xx response
//   - error: the transport error text from req, or ErrStatus wrapped with the
//     response status when the server did not answer with 2xx
func (c *Client) Upload(ctx context.Context, u Upload) (Result, error) {
	r := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{FilenameField: u.Filename}).
		SetFileBytes(ImageField, u.ImageLabel, u.Image.Data).
		SetUploadCallback(func(info req.UploadInfo) {
			slog.Debug("Uploading",
				"field", info.ParamName,
				"sent", humanize.Bytes(uint64(info.UploadedSize)),
				"total", humanize.Bytes(uint64(info.FileSize)),
			)
		})
	if !u.NoExpect {
		r.SetHeader("Expect", ExpectContinue)
	}

	slog.Debug("Posting form", "url", u.URL, "image", u.ImageLabel, "size", humanize.Bytes(uint64(u.Image.Size)))
	resp, err := r.Post(u.URL)
	if err != nil {
		return Result{}, fmt.Errorf("posting form to %q: %w", u.URL, err)
	}

	res := Result{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       resp.String(),
		Sent:       u.Image.Size,
	}
	if !resp.IsSuccessState() {
		return res, fmt.Errorf("%w %q from %q", ErrStatus, resp.Status, u.URL)
	}
	return res, nil
}

// slogAdapter forwards req's internal logging to the default slog logger
type slogAdapter struct{}

func (slogAdapter) Errorf(format string, v ...any) {
	slog.Error(fmt.Sprintf(format, v...), "component", "req")
}

func (slogAdapter) Warnf(format string, v ...any) {
	slog.Warn(fmt.Sprintf(format, v...), "component", "req")
}

func (slogAdapter) Debugf(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...), "component", "req")
}

package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	filenameField = "filename"
	imageField    = "image"
	// set by uploadDataHandler, picked up by the request recorder
	uploadIDHeader = "X-Upload-Id"
)

var errBadImageName = errors.New("image part has no usable file name")

func (s *Server) helloHandler(c *gin.Context) {
	c.String(http.StatusOK, helloMessage)
}

// uploadDataHandler saves the "image" part of a multipart form into the save dir
// under its own base file name, the "filename" text field is echoed back.
func (s *Server) uploadDataHandler(c *gin.Context) {
	filename := c.PostForm(filenameField)
	img, err := c.FormFile(imageField)
	if err != nil {
		s.badRequestResponse(c.Writer, c.Request, fmt.Errorf("reading %q form part: %w", imageField, err))
		return
	}
	name := filepath.Base(img.Filename)
	// Base leaves ".." intact, joining it would escape the save dir
	if name == "." || name == ".." || name == string(filepath.Separator) {
		s.badRequestResponse(c.Writer, c.Request, errBadImageName)
		return
	}
	dst := filepath.Join(s.SaveDir, name)
	if err = c.SaveUploadedFile(img, dst); err != nil {
		s.serverErrorResponse(c.Writer, c.Request, fmt.Errorf("saving uploaded file to %q: %w", dst, err))
		return
	}
	id, err := gonanoid.New()
	if err != nil {
		s.serverErrorResponse(c.Writer, c.Request, fmt.Errorf("generating upload id: %w", err))
		return
	}
	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(dst); err != nil {
		slog.Warn("Detecting content type", "file", dst, "err", err)
	} else {
		contentType = mt.String()
	}
	c.Header(uploadIDHeader, id)
	slog.Info("Received upload",
		"id", id,
		"filename", filename,
		"image", name,
		"type", contentType,
		"size", humanize.Bytes(uint64(img.Size)),
	)

	data := envelop{
		"id":       id,
		"filename": filename,
		"image":    name,
		"size":     img.Size,
		"type":     contentType,
	}
	if err = s.writeJSON(c.Writer, data, http.StatusOK, nil); err != nil {
		s.serverErrorResponse(c.Writer, c.Request, err)
	}
}

func (s *Server) requestsHandler(c *gin.Context) {
	if err := s.writeJSON(c.Writer, envelop{"requests": s.rec.List()}, http.StatusOK, nil); err != nil {
		s.serverErrorResponse(c.Writer, c.Request, err)
	}
}

package handler

import (
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-admin/internal/models"
	"github.com/noah-isme/academy-admin/internal/service"
	appErrors "github.com/noah-isme/academy-admin/pkg/errors"
	"github.com/noah-isme/academy-admin/pkg/response"
)

const defaultUploadReturn = "/items?dialog=create"

type uploader interface {
	Upload(filename, contentType string, size int64, r io.Reader) (*service.UploadResult, error)
	OpenSigned(token string) (*os.File, string, error)
}

// UploadHandler accepts item PDFs and serves signed previews.
type UploadHandler struct {
	service uploader
	logger  *zap.Logger
}

// NewUploadHandler constructs an upload handler.
func NewUploadHandler(svc uploader, logger *zap.Logger) *UploadHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadHandler{service: svc, logger: logger}
}

// Upload godoc
// @Summary Upload an item PDF
// @Description Stores a PDF and returns the filePath to use on an item
// @Tags Uploads
// @Accept mpfd
// @Produce json
// @Param file formData file true "PDF file"
// @Success 201 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Router /uploads [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	returnTo := safeReturn(c.PostForm("return"), defaultUploadReturn)

	result, err := h.store(c)
	if err != nil {
		if response.WantsJSON(c) {
			response.Error(c, err)
			return
		}
		redirectWithFlash(c, returnTo, FlashError, appErrors.UserMessage(err, "Upload failed"))
		return
	}

	if response.WantsJSON(c) {
		response.Created(c, result)
		return
	}
	redirectWithFlash(c, withUploadedFile(returnTo, result.Path), FlashSuccess, service.MsgUploadSuccess)
}

func (h *UploadHandler) store(c *gin.Context) (*service.UploadResult, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedMedia, "")
	}
	file, err := header.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "Unable to read upload")
	}
	defer file.Close()
	return h.service.Upload(header.Filename, header.Header.Get("Content-Type"), header.Size, file)
}

// Signed streams the file behind a signed token.
func (h *UploadHandler) Signed(c *gin.Context) {
	file, name, err := h.service.OpenSigned(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	modified := time.Time{}
	if info, statErr := file.Stat(); statErr == nil {
		modified = info.ModTime()
	}
	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `inline; filename="`+name+`"`)
	http.ServeContent(c.Writer, c.Request, name, modified, file)
}

// withUploadedFile reopens the item dialog at target with the PDF selected.
func withUploadedFile(target, filePath string) string {
	u, err := url.Parse(target)
	if err != nil {
		return defaultUploadReturn
	}
	q := u.Query()
	if q.Get("edit") == "" {
		q.Set("dialog", "create")
	}
	q.Set("type", string(models.ItemTypePDF))
	q.Set("filePath", filePath)
	u.RawQuery = q.Encode()
	return u.String()
}

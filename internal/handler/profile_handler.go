package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-admin/internal/apiclient"
	"github.com/noah-isme/academy-admin/internal/middleware"
	"github.com/noah-isme/academy-admin/internal/models"
	"github.com/noah-isme/academy-admin/internal/service"
	"github.com/noah-isme/academy-admin/internal/validation"
	appErrors "github.com/noah-isme/academy-admin/pkg/errors"
	"github.com/noah-isme/academy-admin/pkg/response"
)

const (
	profilePath    = "/profile"
	maxAvatarBytes = 5 * 1024 * 1024
)

type profileService interface {
	UpdateProfile(ctx context.Context, current models.Session, form validation.ProfileForm, avatar *apiclient.FilePart) (models.Profile, error)
}

// ProfileHandler lets the signed-in admin edit their own account.
type ProfileHandler struct {
	service profileService
}

// NewProfileHandler constructs a profile handler.
func NewProfileHandler(svc profileService) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

// Show godoc
// @Summary Current admin profile
// @Tags Profile
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /profile [get]
func (h *ProfileHandler) Show(c *gin.Context) {
	current, _ := middleware.CurrentSession(c)
	if response.WantsJSON(c) {
		response.JSON(c, http.StatusOK, gin.H{"profile": current.Profile, "expiresAt": current.ExpiresAt, "darkMode": current.DarkMode})
		return
	}
	h.render(c, http.StatusOK, current, validation.ProfileForm{FullName: current.Profile.FullName, Email: current.Profile.Email}, nil)
}

// Update godoc
// @Summary Update the current admin profile
// @Description Accepts an optional avatar file, which switches the upstream call to multipart
// @Tags Profile
// @Accept json
// @Accept mpfd
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /profile [post]
func (h *ProfileHandler) Update(c *gin.Context) {
	current, _ := middleware.CurrentSession(c)

	var form validation.ProfileForm
	if err := c.ShouldBind(&form); err != nil {
		h.failed(c, current, form, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "Invalid request payload"))
		return
	}

	avatar, err := readAvatar(c)
	if err != nil {
		h.failed(c, current, form, err)
		return
	}

	profile, err := h.service.UpdateProfile(c.Request.Context(), current, form, avatar)
	if err != nil {
		h.failed(c, current, form, err)
		return
	}
	if response.WantsJSON(c) {
		response.JSON(c, http.StatusOK, profile)
		return
	}
	redirectWithFlash(c, profilePath, FlashSuccess, service.MsgProfileUpdated)
}

func (h *ProfileHandler) failed(c *gin.Context, current models.Session, form validation.ProfileForm, err error) {
	if handleSessionExpired(c, err) {
		return
	}
	if response.WantsJSON(c) {
		response.Error(c, err)
		return
	}
	h.render(c, statusOf(err), current, form, err)
}

func (h *ProfileHandler) render(c *gin.Context, status int, current models.Session, form validation.ProfileForm, err error) {
	data := page(c, "Profile", profilePath)
	data["Form"] = map[string]string{"fullName": form.FullName, "email": form.Email}
	data["ExpiresAt"] = current.ExpiresAt
	if err != nil {
		appErr := appErrors.FromError(err)
		if len(appErr.Fields) > 0 {
			data["Errors"] = appErr.Fields
		} else {
			data["Error"] = appErrors.UserMessage(err, service.MsgProfileFailed)
		}
	}
	response.HTML(c, status, "profile.html", data)
}

// readAvatar returns the optional avatar part of a multipart submission.
func readAvatar(c *gin.Context) (*apiclient.FilePart, error) {
	header, err := c.FormFile("avatar")
	if err != nil || header == nil || header.Size == 0 {
		return nil, nil
	}
	if header.Size > maxAvatarBytes {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, "Avatar must be less than 5MB")
	}
	file, err := header.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "Unable to read avatar")
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxAvatarBytes))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "Unable to read avatar")
	}
	return &apiclient.FilePart{
		Field:       "avatar",
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

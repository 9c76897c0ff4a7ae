package handlers

import (
	"errors"
	"net/http"

	"github.com/dom/stay-portal/internal/apiclient"
	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/render"
	"github.com/dom/stay-portal/internal/service"
	"github.com/dom/stay-portal/internal/websocket"
)

// maxPhotoBytes bounds the profile form, photo included
const maxPhotoBytes = 5 << 20

type ProfileHandler struct {
	base
	profiles *service.ProfileService
}

func NewProfileHandler(views *render.Renderer, services *service.Services, hub *websocket.Hub) *ProfileHandler {
	return &ProfileHandler{
		base:     base{views: views, services: services, hub: hub},
		profiles: services.Profiles,
	}
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.profiles.Me(r.Context(), h.workspace(r).API)
	if err != nil {
		h.fail(w, r, err, "Failed to load profile", h.identity(r).Role.Dashboard())
		return
	}

	text := []string{user.Email + " · " + user.Role.DisplayName()}
	if user.ProfilePhotoPath != "" {
		text = append(text, "Photo: "+user.ProfilePhotoPath)
	}

	h.page(w, r, http.StatusOK, render.Page{
		Title: "Profile",
		Sections: []render.Section{{
			Text: text,
			Form: &render.Form{
				Action: "/profile",
				Submit: "Save profile",
				Fields: []render.Field{
					{Name: "firstName", Label: "First name", Type: "text", Value: user.FirstName, Required: true},
					{Name: "lastName", Label: "Last name", Type: "text", Value: user.LastName, Required: true},
					{Name: "email", Label: "Email", Type: "email", Value: user.Email, Required: true},
					{Name: "phoneNumber", Label: "Phone number", Type: "tel", Value: user.PhoneNumber},
					{Name: "password", Label: "New password", Type: "password", Help: "Leave blank to keep the current password. " + passwordHelp},
					{Name: "photo", Label: "Profile photo", Type: "file"},
				},
			},
		}},
	})
}

func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes)
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.fail(w, r, domain.Invalid("photo", "Photo must be smaller than 5 MB"), "", "/profile")
		return
	}

	var photo *apiclient.FilePart
	file, header, err := r.FormFile("photo")
	switch {
	case err == nil:
		defer file.Close()
		if header.Size > 0 {
			photo = &apiclient.FilePart{Filename: header.Filename, Content: file}
		}
	case !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart):
		h.fail(w, r, err, "Could not read the uploaded photo", "/profile")
		return
	}

	_, err = h.profiles.Update(r.Context(), h.workspace(r).API, domain.ProfileUpdate{
		FirstName:   r.FormValue("firstName"),
		LastName:    r.FormValue("lastName"),
		Email:       r.FormValue("email"),
		PhoneNumber: r.FormValue("phoneNumber"),
		Password:    r.FormValue("password"),
	}, photo)
	if err != nil {
		h.fail(w, r, err, "Failed to update profile", "/profile")
		return
	}
	h.success(w, r, "Profile updated.", "/profile")
}

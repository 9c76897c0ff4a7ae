package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dom/stay-portal/internal/apiclient"
	"github.com/dom/stay-portal/internal/domain"
)

// ProfileService reads and edits the signed-in user's own account
type ProfileService struct{}

func NewProfileService() *ProfileService {
	return &ProfileService{}
}

func (s *ProfileService) Me(ctx context.Context, api *apiclient.Client) (*domain.User, error) {
	user, err := api.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return user, nil
}

// Update sends the profile with an optional photo. A blank password leaves
// the current one unchanged.
func (s *ProfileService) Update(ctx context.Context, api *apiclient.Client, upd domain.ProfileUpdate, photo *apiclient.FilePart) (*domain.User, error) {
	upd.FirstName = strings.TrimSpace(upd.FirstName)
	upd.LastName = strings.TrimSpace(upd.LastName)
	upd.Email = strings.TrimSpace(upd.Email)
	upd.PhoneNumber = strings.TrimSpace(upd.PhoneNumber)
	if err := domain.Validate(upd); err != nil {
		return nil, err
	}
	if upd.Password != "" && !domain.PasswordRules(upd.Password).Satisfied() {
		return nil, domain.Invalid("password", "Password does not meet all requirements")
	}

	user, err := api.UpdateMe(ctx, upd, photo)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

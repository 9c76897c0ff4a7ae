package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dom/stay-portal/internal/apiclient"
	"github.com/dom/stay-portal/internal/auth"
	"github.com/dom/stay-portal/internal/config"
	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/session"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var (
	ErrGoogleDisabled = errors.New("google sign-in is not configured")
	ErrUnusableToken  = errors.New("the server returned a token the portal cannot read")
)

// AccountService runs the unauthenticated account flows and binds their
// outcome to a browser's Token Store.
type AccountService struct {
	api    *apiclient.Client
	google *oauth2.Config
}

// GoogleOAuthConfig builds the code-flow config, or nil when sign-in with
// Google is not configured
func GoogleOAuthConfig(cfg *config.Config) *oauth2.Config {
	if !cfg.GoogleEnabled() {
		return nil
	}
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
}

func NewAccountService(api *apiclient.Client, oauth *oauth2.Config) *AccountService {
	return &AccountService{api: api, google: oauth}
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// Login exchanges credentials for a token and stores it with the role the
// token carries. The returned identity's Role picks the dashboard.
func (s *AccountService) Login(ctx context.Context, store *session.Store, email, password string) (*domain.Identity, error) {
	form := loginForm{Email: strings.TrimSpace(email), Password: password}
	if err := domain.Validate(form); err != nil {
		return nil, err
	}

	token, err := s.api.Login(ctx, form.Email, form.Password)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, store, token)
}

func (s *AccountService) establish(ctx context.Context, store *session.Store, token string) (*domain.Identity, error) {
	id := auth.Resolve(token)
	if id == nil {
		return nil, ErrUnusableToken
	}
	if err := store.Save(ctx, token, id.Role); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	log.Info().Str("component", "account").Str("session_id", store.ID().String()).Str("role", id.Role.String()).Msg("Signed in")
	return id, nil
}

func (s *AccountService) GoogleEnabled() bool {
	return s.google != nil
}

// GoogleAuthURL is where the browser goes to consent; state comes back on
// the callback untouched
func (s *AccountService) GoogleAuthURL(state string) (string, error) {
	if s.google == nil {
		return "", ErrGoogleDisabled
	}
	return s.google.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// GoogleCallback redeems the authorization code, hands Google's id_token to
// the API and stores the API's own token
func (s *AccountService) GoogleCallback(ctx context.Context, store *session.Store, code string) (*domain.Identity, error) {
	if s.google == nil {
		return nil, ErrGoogleDisabled
	}
	if code == "" {
		return nil, domain.Invalid("code", "Google sign-in was cancelled")
	}

	tok, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange google code: %w", err)
	}
	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return nil, fmt.Errorf("google response carried no id_token")
	}

	token, err := s.api.GoogleLogin(ctx, idToken)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, store, token)
}

func (s *AccountService) Register(ctx context.Context, reg domain.Registration) error {
	reg.FirstName = strings.TrimSpace(reg.FirstName)
	reg.LastName = strings.TrimSpace(reg.LastName)
	reg.Email = strings.TrimSpace(reg.Email)
	reg.PhoneNumber = strings.TrimSpace(reg.PhoneNumber)
	reg.Role = domain.Role(strings.ToUpper(string(reg.Role)))
	if err := domain.Validate(reg); err != nil {
		return err
	}
	return s.api.Register(ctx, reg)
}

type forgotForm struct {
	Email string `validate:"required,email"`
}

// ForgotPassword requests a one-time code and remembers the email for the
// rest of the reset flow in this browser session only
func (s *AccountService) ForgotPassword(ctx context.Context, store *session.Store, email string) error {
	form := forgotForm{Email: strings.TrimSpace(email)}
	if err := domain.Validate(form); err != nil {
		return err
	}
	if err := s.api.ForgotPassword(ctx, form.Email); err != nil {
		return err
	}
	return store.SetForgotEmail(ctx, form.Email)
}

func (s *AccountService) forgotEmail(ctx context.Context, store *session.Store) (string, error) {
	email, err := store.ForgotEmail(ctx)
	if err != nil {
		return "", err
	}
	if email == "" {
		return "", domain.ErrNoForgotEmail
	}
	return email, nil
}

func (s *AccountService) VerifyOTP(ctx context.Context, store *session.Store, otp string) error {
	email, err := s.forgotEmail(ctx, store)
	if err != nil {
		return err
	}
	otp = strings.TrimSpace(otp)
	if !domain.ValidOTP(otp) {
		return domain.Invalid("otp", "Enter the 6-digit code sent to your email")
	}
	return s.api.VerifyOTP(ctx, email, otp)
}

// ResetPassword sets the new password and forgets the email on success
func (s *AccountService) ResetPassword(ctx context.Context, store *session.Store, newPassword, confirmPassword string) error {
	email, err := s.forgotEmail(ctx, store)
	if err != nil {
		return err
	}
	if !domain.PasswordRules(newPassword).Satisfied() {
		return domain.Invalid("newPassword", "Password does not meet all requirements")
	}
	if newPassword != confirmPassword {
		return domain.Invalid("confirmPassword", "Passwords do not match")
	}

	if err := s.api.ResetPassword(ctx, email, newPassword, confirmPassword); err != nil {
		return err
	}
	return store.ClearForgotEmail(ctx)
}

func (s *AccountService) Logout(ctx context.Context, store *session.Store) error {
	return store.Clear(ctx, session.ReasonLogout)
}

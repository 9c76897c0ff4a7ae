package handlers

import (
	"errors"
	"net/http"

	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/render"
	"github.com/dom/stay-portal/internal/service"
	"github.com/dom/stay-portal/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	googleStateCookie = "stay_oauth_state"
	passwordHelp      = "At least 8 characters with upper and lower case letters, a number and a special character."
)

// AuthHandler serves the public account pages
type AuthHandler struct {
	base
	accounts     *service.AccountService
	secureCookie bool
}

func NewAuthHandler(views *render.Renderer, services *service.Services, hub *websocket.Hub, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		base:         base{views: views, services: services, hub: hub},
		accounts:     services.Accounts,
		secureCookie: secureCookie,
	}
}

// Landing sends signed-in users to their dashboard
func (h *AuthHandler) Landing(w http.ResponseWriter, r *http.Request) {
	if id := h.identity(r); id != nil && !id.Expired(timeNow()) {
		http.Redirect(w, r, id.Role.Dashboard(), http.StatusSeeOther)
		return
	}

	h.page(w, r, http.StatusOK, render.Page{
		Title: "Welcome",
		Sections: []render.Section{{
			Text: []string{"Find a place to stay, or list your own property for guests to book."},
			Links: []render.Link{
				{Label: "Log in", Href: "/login"},
				{Label: "Create an account", Href: "/register"},
			},
		}},
	})
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	links := []render.Link{
		{Label: "Forgot password?", Href: "/forgot-password"},
		{Label: "Create an account", Href: "/register"},
	}
	if h.accounts.GoogleEnabled() {
		links = append([]render.Link{{Label: "Sign in with Google", Href: "/auth/google/login"}}, links...)
	}

	h.page(w, r, http.StatusOK, render.Page{
		Title: "Log in",
		Sections: []render.Section{{
			Form: &render.Form{
				Action: "/login",
				Submit: "Log in",
				Fields: []render.Field{
					{Name: "email", Label: "Email", Type: "email", Required: true},
					{Name: "password", Label: "Password", Type: "password", Required: true},
				},
			},
			Links: links,
		}},
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	id, err := h.accounts.Login(r.Context(), h.store(r), r.FormValue("email"), r.FormValue("password"))
	if err != nil {
		h.fail(w, r, err, "Login failed. Please try again.", "/login")
		return
	}
	h.success(w, r, "Welcome back, "+id.Email, id.Role.Dashboard())
}

func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	target, err := h.accounts.GoogleAuthURL(state)
	if err != nil {
		h.fail(w, r, err, "Google sign-in is unavailable", "/login")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     googleStateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(googleStateCookie)
	if err != nil || c.Value == "" || c.Value != r.URL.Query().Get("state") {
		log.Warn().Str("component", "web").Msg("Google callback state mismatch")
		h.fail(w, r, domain.Invalid("state", "Google sign-in could not be verified. Please try again."), "", "/login")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: googleStateCookie, Path: "/auth/google", MaxAge: -1})

	id, err := h.accounts.GoogleCallback(r.Context(), h.store(r), r.URL.Query().Get("code"))
	if err != nil {
		h.fail(w, r, err, "Google sign-in failed. Please try again.", "/login")
		return
	}
	h.success(w, r, "Welcome, "+id.Email, id.Role.Dashboard())
}

func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, http.StatusOK, render.Page{
		Title: "Create an account",
		Sections: []render.Section{{
			Form: &render.Form{
				Action: "/register",
				Submit: "Register",
				Fields: []render.Field{
					{Name: "firstName", Label: "First name", Type: "text", Required: true},
					{Name: "lastName", Label: "Last name", Type: "text", Required: true},
					{Name: "email", Label: "Email", Type: "email", Required: true},
					{Name: "phoneNumber", Label: "Phone number", Type: "tel", Placeholder: "0712345678", Required: true},
					{Name: "password", Label: "Password", Type: "password", Help: passwordHelp, Required: true},
					{Name: "role", Label: "I want to", Type: "select", Options: render.Options(string(domain.RoleGuest),
						string(domain.RoleGuest), "Book stays",
						string(domain.RoleHost), "List my properties")},
				},
			},
			Links: []render.Link{{Label: "Already registered? Log in", Href: "/login"}},
		}},
	})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	err := h.accounts.Register(r.Context(), domain.Registration{
		FirstName:   r.FormValue("firstName"),
		LastName:    r.FormValue("lastName"),
		Email:       r.FormValue("email"),
		Password:    r.FormValue("password"),
		PhoneNumber: r.FormValue("phoneNumber"),
		Role:        domain.Role(r.FormValue("role")),
	})
	if err != nil {
		h.fail(w, r, err, "Registration failed. Please try again.", "/register")
		return
	}
	h.success(w, r, "Registration successful. Please log in.", "/login")
}

func (h *AuthHandler) ForgotPasswordPage(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, http.StatusOK, render.Page{
		Title: "Forgot password",
		Sections: []render.Section{{
			Text: []string{"Enter your email and we will send you a one-time code."},
			Form: &render.Form{
				Action: "/forgot-password",
				Submit: "Send code",
				Fields: []render.Field{{Name: "email", Label: "Email", Type: "email", Required: true}},
			},
		}},
	})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.ForgotPassword(r.Context(), h.store(r), r.FormValue("email")); err != nil {
		h.fail(w, r, err, "Could not send the code. Please try again.", "/forgot-password")
		return
	}
	h.success(w, r, "A one-time code has been sent to your email.", "/verify-otp")
}

func (h *AuthHandler) VerifyOTPPage(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, http.StatusOK, render.Page{
		Title: "Verify code",
		Sections: []render.Section{{
			Form: &render.Form{
				Action: "/verify-otp",
				Submit: "Verify",
				Fields: []render.Field{{Name: "otp", Label: "6-digit code", Type: "text", Placeholder: "123456", Required: true}},
			},
			Links: []render.Link{{Label: "Send a new code", Href: "/forgot-password"}},
		}},
	})
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	err := h.accounts.VerifyOTP(r.Context(), h.store(r), r.FormValue("otp"))
	if errors.Is(err, domain.ErrNoForgotEmail) {
		h.fail(w, r, err, "", "/forgot-password")
		return
	}
	if err != nil {
		h.fail(w, r, err, "Invalid or expired code.", "/verify-otp")
		return
	}
	h.success(w, r, "Code verified. Choose a new password.", "/reset-password")
}

func (h *AuthHandler) ResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, http.StatusOK, render.Page{
		Title: "Reset password",
		Sections: []render.Section{{
			Form: &render.Form{
				Action: "/reset-password",
				Submit: "Reset password",
				Fields: []render.Field{
					{Name: "newPassword", Label: "New password", Type: "password", Help: passwordHelp, Required: true},
					{Name: "confirmPassword", Label: "Confirm password", Type: "password", Required: true},
				},
			},
		}},
	})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	err := h.accounts.ResetPassword(r.Context(), h.store(r), r.FormValue("newPassword"), r.FormValue("confirmPassword"))
	if errors.Is(err, domain.ErrNoForgotEmail) {
		h.fail(w, r, err, "", "/forgot-password")
		return
	}
	if err != nil {
		h.fail(w, r, err, "Password reset failed. Please try again.", "/reset-password")
		return
	}
	h.success(w, r, "Password reset. Please log in with your new password.", "/login")
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Logout(r.Context(), h.store(r)); err != nil {
		h.fail(w, r, err, "Logout failed. Please try again.", "/")
		return
	}
	h.success(w, r, "You have been logged out.", "/")
}

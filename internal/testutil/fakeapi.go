package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dom/stay-portal/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RecordedRequest is one call the fake API received
type RecordedRequest struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	ContentType   string
	Body          []byte
}

// JSON decodes the recorded body into a generic map
func (r RecordedRequest) JSON(t *testing.T) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(r.Body, &m); err != nil {
		t.Fatalf("request body is not JSON: %v (%s)", err, r.Body)
	}
	return m
}

type account struct {
	user     domain.User
	password string
}

// FakeAPI is an in-memory stand-in for the booking REST API. Routes can be
// replaced per test with Override.
type FakeAPI struct {
	Server *httptest.Server

	mu         sync.Mutex
	accounts   map[string]*account // by lower-case email
	properties []domain.Property
	booked     map[string]bool // property ids excluded from /properties/available
	bookings   []domain.Booking
	reviews    []domain.Review
	requests   []RecordedRequest
	overrides  map[string]http.HandlerFunc

	// OTP is the code /auth/verify-otp accepts
	OTP string
	// PaymentRedirect, when set, is returned as redirectUrl by /payments/pay
	PaymentRedirect string
	// GoogleEmail is the account /auth/google-login signs in as
	GoogleEmail string
	// TokenTTL is the lifetime of tokens issued by login
	TokenTTL time.Duration
}

// NewFakeAPI starts the fake and returns it; URL() is the API base URL
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		accounts:  make(map[string]*account),
		booked:    make(map[string]bool),
		overrides: make(map[string]http.HandlerFunc),
		OTP:       "123456",
		TokenTTL:  time.Hour,
	}

	f.Server = httptest.NewServer(f.routes())
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the base URL including the /api prefix
func (f *FakeAPI) URL() string {
	return f.Server.URL + "/api"
}

// Override replaces the handler for a route pattern, e.g. ("GET", "/bookings/calculate")
func (f *FakeAPI) Override(method, pattern string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides[method+" "+pattern] = h
}

// Requests returns every recorded call, optionally filtered by "METHOD /path"
func (f *FakeAPI) Requests(filter ...string) []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(filter) == 0 {
		return append([]RecordedRequest(nil), f.requests...)
	}
	var out []RecordedRequest
	for _, r := range f.requests {
		for _, want := range filter {
			if r.Method+" "+r.Path == want {
				out = append(out, r)
			}
		}
	}
	return out
}

// LastRequest returns the most recent call matching "METHOD /path"
func (f *FakeAPI) LastRequest(key string) (RecordedRequest, bool) {
	reqs := f.Requests(key)
	if len(reqs) == 0 {
		return RecordedRequest{}, false
	}
	return reqs[len(reqs)-1], true
}

// AddAccount seeds a user that can log in
func (f *FakeAPI) AddAccount(user domain.User, password string) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	f.accounts[strings.ToLower(user.Email)] = &account{user: user, password: password}
	return user
}

// Password returns the stored password of an account
func (f *FakeAPI) Password(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.accounts[strings.ToLower(email)]; ok {
		return a.password
	}
	return ""
}

func (f *FakeAPI) AddProperty(p domain.Property) domain.Property {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Currency == "" {
		p.Currency = "KES"
	}
	f.properties = append(f.properties, p)
	return p
}

// MarkBooked hides a property from the availability query
func (f *FakeAPI) MarkBooked(propertyID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.booked[propertyID] = true
}

func (f *FakeAPI) AddBooking(b domain.Booking) domain.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = domain.BookingStatusPending
	}
	f.bookings = append(f.bookings, b)
	return b
}

func (f *FakeAPI) AddReview(r domain.Review) domain.Review {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	f.reviews = append(f.reviews, r)
	return r
}

// BookingStatus returns the stored status of a booking
func (f *FakeAPI) BookingStatus(id string) (domain.BookingStatus, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.ID == id {
			return b.Status, true
		}
	}
	return "", false
}

// UserActive returns the stored activation flag of a user
func (f *FakeAPI) UserActive(id string) (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.user.ID == id {
			return a.user.Active, true
		}
	}
	return false, false
}

// UserID returns the id of the account registered under email
func (f *FakeAPI) UserID(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.accounts[strings.ToLower(email)]; ok {
		return a.user.ID
	}
	return ""
}

// IssueToken mints a token the fake accepts for an existing account, or
// "" when the account does not exist
func (f *FakeAPI) IssueToken(email string) string {
	f.mu.Lock()
	a, ok := f.accounts[strings.ToLower(email)]
	f.mu.Unlock()
	if !ok {
		return ""
	}
	token, _ := signClaims(TestSigningSecret, accessClaims(a.user.Email, a.user.Role, time.Now().Add(f.TokenTTL)))
	return token
}

func (f *FakeAPI) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(f.record)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			f.handle(r, http.MethodPost, "/auth/login", f.login)
			f.handle(r, http.MethodPost, "/auth/google-login", f.googleLogin)
			f.handle(r, http.MethodPost, "/auth/register", f.register)
			f.handle(r, http.MethodPost, "/auth/forgot-password", f.forgotPassword)
			f.handle(r, http.MethodPost, "/auth/verify-otp", f.verifyOTP)
			f.handle(r, http.MethodPost, "/auth/reset-password", f.resetPassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(f.requireBearer)

			f.handle(r, http.MethodGet, "/user/me", f.me)
			f.handle(r, http.MethodPut, "/user/me", f.updateMe)

			f.handle(r, http.MethodGet, "/bookings/me", f.listBookings)
			f.handle(r, http.MethodGet, "/bookings/host/my", f.listBookings)
			f.handle(r, http.MethodGet, "/bookings/all", f.listBookings)
			f.handle(r, http.MethodGet, "/bookings/calculate", f.calculate)
			f.handle(r, http.MethodPost, "/bookings/create", f.createBooking)
			f.handle(r, http.MethodGet, "/bookings/{id}", f.getBooking)
			f.handle(r, http.MethodPost, "/bookings/{id}/cancel", f.cancelBooking)
			f.handle(r, http.MethodDelete, "/bookings/{id}", f.deleteBooking)

			f.handle(r, http.MethodGet, "/properties", f.listProperties)
			f.handle(r, http.MethodGet, "/properties/host/my-properties", f.listProperties)
			f.handle(r, http.MethodGet, "/properties/guest/all-properties", f.listProperties)
			f.handle(r, http.MethodGet, "/properties/search", f.searchProperties)
			f.handle(r, http.MethodGet, "/properties/available", f.availableProperties)
			f.handle(r, http.MethodGet, "/properties/{id}", f.getProperty)
			f.handle(r, http.MethodPost, "/properties", f.saveProperty)
			f.handle(r, http.MethodPut, "/properties/{id}", f.saveProperty)
			f.handle(r, http.MethodDelete, "/properties/{id}", f.deleteProperty)

			f.handle(r, http.MethodPost, "/payments/pay", f.pay)

			f.handle(r, http.MethodGet, "/reviews/property/{id}", f.propertyReviews)
			f.handle(r, http.MethodPost, "/reviews", f.createReview)
			f.handle(r, http.MethodPut, "/reviews/{id}", f.updateReview)
			f.handle(r, http.MethodDelete, "/reviews/{id}", f.deleteReview)
			f.handle(r, http.MethodPost, "/reviews/{id}/response", f.respondReview)

			f.handle(r, http.MethodGet, "/admin/users", f.listUsers)
			f.handle(r, http.MethodPost, "/admin/users", f.createUser)
			f.handle(r, http.MethodGet, "/admin/users/{id}", f.getUser)
			f.handle(r, http.MethodPut, "/admin/users/{id}", f.updateUser)
			f.handle(r, http.MethodPatch, "/admin/users/{id}/activate", f.setActive(true))
			f.handle(r, http.MethodPatch, "/admin/users/{id}/deactivate", f.setActive(false))
		})
	})
	return r
}

func (f *FakeAPI) handle(r chi.Router, method, pattern string, h http.HandlerFunc) {
	key := method + " " + pattern
	r.MethodFunc(method, pattern, func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		override := f.overrides[key]
		f.mu.Unlock()
		if override != nil {
			override(w, req)
			return
		}
		h(w, req)
	})
}

func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method:        r.Method,
			Path:          strings.TrimPrefix(r.URL.Path, "/api"),
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
			Body:          body,
		})
		f.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

type callerKey struct{}

type caller struct {
	email string
	role  domain.Role
}

func (f *FakeAPI) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "Full authentication is required")
			return
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return []byte(TestSigningSecret), nil
		})
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		email, _ := claims["email"].(string)
		role, _ := claims["role"].(string)
		ctx := contextWithCaller(r, caller{email: email, role: domain.Role(role)})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func contextWithCaller(r *http.Request, c caller) context.Context {
	return context.WithValue(r.Context(), callerKey{}, c)
}

func callerOf(r *http.Request) caller {
	c, _ := r.Context().Value(callerKey{}).(caller)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func decode(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}

// Auth

func (f *FakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var req struct{ Email, Password string }
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	f.mu.Lock()
	a, ok := f.accounts[strings.ToLower(req.Email)]
	f.mu.Unlock()
	if !ok || a.password != req.Password {
		writeError(w, http.StatusBadRequest, "Invalid email or password")
		return
	}
	if !a.user.Active {
		writeError(w, http.StatusForbidden, "Account is deactivated")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": f.IssueToken(a.user.Email)})
}

func (f *FakeAPI) googleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct{ Token string }
	if !decode(r, &req) || req.Token == "" || f.GoogleEmail == "" {
		writeError(w, http.StatusBadRequest, "Invalid Google token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": f.IssueToken(f.GoogleEmail)})
}

func (f *FakeAPI) register(w http.ResponseWriter, r *http.Request) {
	var reg domain.Registration
	if !decode(r, &reg) {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	f.mu.Lock()
	_, exists := f.accounts[strings.ToLower(reg.Email)]
	f.mu.Unlock()
	if exists {
		writeError(w, http.StatusConflict, "Email already registered")
		return
	}

	f.AddAccount(domain.User{
		FirstName:   reg.FirstName,
		LastName:    reg.LastName,
		Email:       reg.Email,
		PhoneNumber: reg.PhoneNumber,
		Role:        reg.Role,
		Active:      true,
	}, reg.Password)
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Registered"})
}

func (f *FakeAPI) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct{ Email string }
	decode(r, &req)

	f.mu.Lock()
	_, ok := f.accounts[strings.ToLower(req.Email)]
	f.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "OTP sent"})
}

func (f *FakeAPI) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct{ Email, OTP string }
	decode(r, &req)
	if req.OTP != f.OTP {
		writeError(w, http.StatusBadRequest, "Invalid OTP")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "OTP verified"})
}

func (f *FakeAPI) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email           string `json:"email"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	decode(r, &req)
	if req.NewPassword != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "Passwords do not match")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[strings.ToLower(req.Email)]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	a.password = req.NewPassword
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset"})
}

// Profile

func (f *FakeAPI) me(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[strings.ToLower(callerOf(r).email)]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, a.user)
}

func (f *FakeAPI) updateMe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Expected multipart form")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[strings.ToLower(callerOf(r).email)]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	a.user.FirstName = r.FormValue("firstName")
	a.user.LastName = r.FormValue("lastName")
	a.user.PhoneNumber = r.FormValue("phoneNumber")
	if pw := r.FormValue("password"); pw != "" {
		a.password = pw
	}
	if _, hdr, err := r.FormFile("photo"); err == nil {
		a.user.ProfilePhotoPath = "/uploads/" + hdr.Filename
	}
	writeJSON(w, http.StatusOK, a.user)
}

// Bookings

func (f *FakeAPI) listBookings(w http.ResponseWriter, r *http.Request) {
	c := callerOf(r)

	f.mu.Lock()
	defer f.mu.Unlock()

	out := []domain.Booking{}
	for _, b := range f.bookings {
		switch {
		case strings.HasSuffix(r.URL.Path, "/bookings/all"):
			if c.role != domain.RoleAdmin {
				writeError(w, http.StatusForbidden, "Access denied")
				return
			}
			out = append(out, b)
		case strings.HasSuffix(r.URL.Path, "/bookings/host/my"):
			if p := f.findProperty(b.PropertyID); p != nil && strings.EqualFold(p.HostEmail, c.email) {
				out = append(out, b)
			}
		default:
			if a := f.accounts[strings.ToLower(c.email)]; a != nil && a.user.ID == b.UserID {
				out = append(out, b)
			}
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) calculate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err1 := domain.ParseDate(q.Get("start"))
	end, err2 := domain.ParseDate(q.Get("end"))
	if err1 != nil || err2 != nil || !end.After(start) {
		writeError(w, http.StatusBadRequest, "Invalid date range")
		return
	}

	f.mu.Lock()
	p := f.findProperty(q.Get("propertyId"))
	f.mu.Unlock()
	if p == nil {
		writeError(w, http.StatusNotFound, "Property not found")
		return
	}

	nights := start.NightsUntil(end)
	writeJSON(w, http.StatusOK, domain.PriceQuote{
		Nights:        nights,
		PricePerNight: p.PricePerNight,
		TotalPrice:    float64(nights) * p.PricePerNight,
	})
}

func (f *FakeAPI) createBooking(w http.ResponseWriter, r *http.Request) {
	var req domain.BookingRequest
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	p := f.findProperty(req.PropertyID)
	if p == nil {
		writeError(w, http.StatusNotFound, "Property not found")
		return
	}
	if !req.EndDate.After(req.StartDate) {
		writeError(w, http.StatusBadRequest, "End date must be after start date")
		return
	}

	var userID string
	if a := f.accounts[strings.ToLower(callerOf(r).email)]; a != nil {
		userID = a.user.ID
	}
	now := time.Now()
	b := domain.Booking{
		ID:           uuid.NewString(),
		PropertyID:   p.ID,
		PropertyName: p.Name,
		UserID:       userID,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		TotalPrice:   float64(req.StartDate.NightsUntil(req.EndDate)) * p.PricePerNight,
		Status:       domain.BookingStatusPending,
		CreatedAt:    &now,
	}
	f.bookings = append(f.bookings, b)
	writeJSON(w, http.StatusCreated, b)
}

func (f *FakeAPI) getBooking(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.ID == chi.URLParam(r, "id") {
			writeJSON(w, http.StatusOK, b)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Booking not found")
}

func (f *FakeAPI) cancelBooking(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.bookings {
		if f.bookings[i].ID == chi.URLParam(r, "id") {
			f.bookings[i].Status = domain.BookingStatusCanceled
			writeJSON(w, http.StatusOK, f.bookings[i])
			return
		}
	}
	writeError(w, http.StatusNotFound, "Booking not found")
}

func (f *FakeAPI) deleteBooking(w http.ResponseWriter, r *http.Request) {
	if callerOf(r).role != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, "Access denied")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.bookings {
		if f.bookings[i].ID == chi.URLParam(r, "id") {
			f.bookings = append(f.bookings[:i], f.bookings[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Booking not found")
}

// Properties

func (f *FakeAPI) findProperty(id string) *domain.Property {
	for i := range f.properties {
		if f.properties[i].ID == id {
			return &f.properties[i]
		}
	}
	return nil
}

func (f *FakeAPI) listProperties(w http.ResponseWriter, r *http.Request) {
	c := callerOf(r)
	mine := strings.HasSuffix(r.URL.Path, "/host/my-properties")

	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Property{}
	for _, p := range f.properties {
		if mine && !strings.EqualFold(p.HostEmail, c.email) {
			continue
		}
		out = append(out, p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) searchProperties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	minPrice, _ := strconv.ParseFloat(q.Get("minPrice"), 64)
	maxPrice, _ := strconv.ParseFloat(q.Get("maxPrice"), 64)

	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Property{}
	for _, p := range f.properties {
		if loc := q.Get("location"); loc != "" && !strings.Contains(strings.ToLower(p.Location), strings.ToLower(loc)) {
			continue
		}
		if d := q.Get("description"); d != "" && !strings.Contains(strings.ToLower(p.Description), strings.ToLower(d)) {
			continue
		}
		if minPrice > 0 && p.PricePerNight < minPrice {
			continue
		}
		if maxPrice > 0 && p.PricePerNight > maxPrice {
			continue
		}
		out = append(out, p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) availableProperties(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Property{}
	for _, p := range f.properties {
		if !f.booked[p.ID] {
			out = append(out, p)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) getProperty(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p := f.findProperty(chi.URLParam(r, "id")); p != nil {
		writeJSON(w, http.StatusOK, p)
		return
	}
	writeError(w, http.StatusNotFound, "Property not found")
}

func (f *FakeAPI) saveProperty(w http.ResponseWriter, r *http.Request) {
	c := callerOf(r)
	if c.role == domain.RoleGuest {
		writeError(w, http.StatusForbidden, "Access denied")
		return
	}

	var in domain.PropertyInput
	if !decode(r, &in) {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	if id := chi.URLParam(r, "id"); id != "" {
		p := f.findProperty(id)
		if p == nil {
			writeError(w, http.StatusNotFound, "Property not found")
			return
		}
		p.Name, p.Description, p.Location = in.Name, in.Description, in.Location
		p.PricePerNight, p.Currency, p.UpdatedAt = in.PricePerNight, in.Currency, &now
		writeJSON(w, http.StatusOK, p)
		return
	}

	p := domain.Property{
		ID:            uuid.NewString(),
		HostEmail:     c.email,
		Name:          in.Name,
		Description:   in.Description,
		Location:      in.Location,
		PricePerNight: in.PricePerNight,
		Currency:      in.Currency,
		CreatedAt:     &now,
		UpdatedAt:     &now,
	}
	f.properties = append(f.properties, p)
	writeJSON(w, http.StatusCreated, p)
}

func (f *FakeAPI) deleteProperty(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.properties {
		if f.properties[i].ID == chi.URLParam(r, "id") {
			f.properties = append(f.properties[:i], f.properties[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Property not found")
}

// Payments

func (f *FakeAPI) pay(w http.ResponseWriter, r *http.Request) {
	var req domain.PaymentRequest
	if !decode(r, &req) || !req.PaymentMethod.IsValid() {
		writeError(w, http.StatusBadRequest, "Invalid payment request")
		return
	}

	resp := domain.PaymentResponse{PaymentID: uuid.NewString(), Status: "PENDING"}
	if f.PaymentRedirect != "" {
		resp.RedirectURL = f.PaymentRedirect
	} else {
		resp.Message = "STK push sent"
	}
	writeJSON(w, http.StatusOK, resp)
}

// Reviews

func (f *FakeAPI) propertyReviews(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Review{}
	for _, rv := range f.reviews {
		if rv.PropertyID == chi.URLParam(r, "id") {
			out = append(out, rv)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) createReview(w http.ResponseWriter, r *http.Request) {
	var in domain.ReviewInput
	if !decode(r, &in) {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	c := callerOf(r)

	f.mu.Lock()
	defer f.mu.Unlock()

	var booking *domain.Booking
	for i := range f.bookings {
		if f.bookings[i].ID == in.BookingID {
			booking = &f.bookings[i]
		}
	}
	if booking == nil {
		writeError(w, http.StatusNotFound, "Booking not found")
		return
	}
	for _, rv := range f.reviews {
		if rv.BookingID == in.BookingID {
			writeError(w, http.StatusConflict, "Booking already reviewed")
			return
		}
	}

	now := time.Now()
	rv := domain.Review{
		ID:         uuid.NewString(),
		PropertyID: booking.PropertyID,
		UserID:     booking.UserID,
		BookingID:  booking.ID,
		Rating:     in.Rating,
		Comment:    in.Comment,
		CreatedAt:  &now,
		UserEmail:  c.email,
	}
	f.reviews = append(f.reviews, rv)
	writeJSON(w, http.StatusCreated, rv)
}

func (f *FakeAPI) findReview(id string) *domain.Review {
	for i := range f.reviews {
		if f.reviews[i].ID == id {
			return &f.reviews[i]
		}
	}
	return nil
}

func (f *FakeAPI) updateReview(w http.ResponseWriter, r *http.Request) {
	var in domain.ReviewUpdate
	decode(r, &in)

	f.mu.Lock()
	defer f.mu.Unlock()
	rv := f.findReview(chi.URLParam(r, "id"))
	if rv == nil {
		writeError(w, http.StatusNotFound, "Review not found")
		return
	}
	rv.Rating, rv.Comment = in.Rating, in.Comment
	writeJSON(w, http.StatusOK, rv)
}

func (f *FakeAPI) deleteReview(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.reviews {
		if f.reviews[i].ID == chi.URLParam(r, "id") {
			f.reviews = append(f.reviews[:i], f.reviews[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Review not found")
}

func (f *FakeAPI) respondReview(w http.ResponseWriter, r *http.Request) {
	var in domain.ReviewResponse
	decode(r, &in)

	f.mu.Lock()
	defer f.mu.Unlock()
	rv := f.findReview(chi.URLParam(r, "id"))
	if rv == nil {
		writeError(w, http.StatusNotFound, "Review not found")
		return
	}
	now := time.Now()
	rv.HostResponse, rv.HostRespondedAt = in.Response, &now
	writeJSON(w, http.StatusOK, rv)
}

// Admin users

func (f *FakeAPI) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if callerOf(r).role != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, "Access denied")
		return false
	}
	return true
}

func (f *FakeAPI) listUsers(w http.ResponseWriter, r *http.Request) {
	if !f.requireAdmin(w, r) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.User{}
	for _, a := range f.accounts {
		out = append(out, a.user)
	}
	sortUsers(out)
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) findUser(id string) *account {
	for _, a := range f.accounts {
		if a.user.ID == id {
			return a
		}
	}
	return nil
}

func (f *FakeAPI) getUser(w http.ResponseWriter, r *http.Request) {
	if !f.requireAdmin(w, r) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if a := f.findUser(chi.URLParam(r, "id")); a != nil {
		writeJSON(w, http.StatusOK, a.user)
		return
	}
	writeError(w, http.StatusNotFound, "User not found")
}

func (f *FakeAPI) createUser(w http.ResponseWriter, r *http.Request) {
	if !f.requireAdmin(w, r) {
		return
	}
	var in domain.NewAdminUser
	if !decode(r, &in) {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if in.CreatorRole != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, "Only admins can create admins")
		return
	}
	now := time.Now()
	u := f.AddAccount(domain.User{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       in.Email,
		PhoneNumber: in.PhoneNumber,
		Role:        in.Role,
		Active:      true,
		CreatedAt:   &now,
	}, "")
	writeJSON(w, http.StatusCreated, u)
}

func (f *FakeAPI) updateUser(w http.ResponseWriter, r *http.Request) {
	if !f.requireAdmin(w, r) {
		return
	}
	var in domain.UserUpdate
	decode(r, &in)

	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.findUser(chi.URLParam(r, "id"))
	if a == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	a.user.FirstName, a.user.LastName, a.user.PhoneNumber = in.FirstName, in.LastName, in.PhoneNumber
	writeJSON(w, http.StatusOK, a.user)
}

func (f *FakeAPI) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !f.requireAdmin(w, r) {
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		a := f.findUser(chi.URLParam(r, "id"))
		if a == nil {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		a.user.Active = active
		writeJSON(w, http.StatusOK, a.user)
	}
}

func sortUsers(users []domain.User) {
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
}

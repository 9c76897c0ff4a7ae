package apiclient

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dom/stay-portal/internal/auth"
	"github.com/dom/stay-portal/internal/domain"
)

// Auth

type loginResponse struct {
	AccessToken string `json:"accessToken"`
	Token       string `json:"token"`
}

func (r loginResponse) token() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Token
}

// Login exchanges credentials for a bearer token
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp loginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.Post(ctx, "/auth/login", body, &resp); err != nil {
		return "", err
	}
	if resp.token() == "" {
		return "", fmt.Errorf("login response carried no token")
	}
	return resp.token(), nil
}

// GoogleLogin exchanges a Google id_token for a bearer token
func (c *Client) GoogleLogin(ctx context.Context, idToken string) (string, error) {
	var resp loginResponse
	if err := c.Post(ctx, "/auth/google-login", map[string]string{"token": idToken}, &resp); err != nil {
		return "", err
	}
	if resp.token() == "" {
		return "", fmt.Errorf("google login response carried no token")
	}
	return resp.token(), nil
}

func (c *Client) Register(ctx context.Context, reg domain.Registration) error {
	return c.Post(ctx, "/auth/register", reg, nil)
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.Post(ctx, "/auth/forgot-password", map[string]string{"email": email}, nil)
}

func (c *Client) VerifyOTP(ctx context.Context, email, otp string) error {
	return c.Post(ctx, "/auth/verify-otp", map[string]string{"email": email, "otp": otp}, nil)
}

func (c *Client) ResetPassword(ctx context.Context, email, newPassword, confirmPassword string) error {
	body := map[string]string{
		"email":           email,
		"newPassword":     newPassword,
		"confirmPassword": confirmPassword,
	}
	return c.Post(ctx, "/auth/reset-password", body, nil)
}

// Profile

func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.Get(ctx, "/user/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateMe sends the profile as multipart so a photo can ride along
func (c *Client) UpdateMe(ctx context.Context, upd domain.ProfileUpdate, photo *FilePart) (*domain.User, error) {
	form := NewMultipart().
		Set("firstName", upd.FirstName).
		Set("lastName", upd.LastName).
		Set("email", upd.Email).
		Set("phoneNumber", upd.PhoneNumber)
	if upd.Password != "" {
		form.Set("password", upd.Password)
	}
	if photo != nil {
		photo.Field = "photo"
		form.File = photo
	}

	var user domain.User
	if err := c.Put(ctx, "/user/me", form, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Bookings

// Bookings fetches the role-keyed booking list
func (c *Client) Bookings(ctx context.Context, role domain.Role) ([]domain.Booking, error) {
	var bookings []domain.Booking
	if err := c.Get(ctx, auth.BookingsEndpoint(role), &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (c *Client) Booking(ctx context.Context, id string) (*domain.Booking, error) {
	var b domain.Booking
	if err := c.Get(ctx, "/bookings/"+url.PathEscape(id), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) CreateBooking(ctx context.Context, req domain.BookingRequest) (*domain.Booking, error) {
	var b domain.Booking
	if err := c.Post(ctx, "/bookings/create", req, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) CancelBooking(ctx context.Context, id string) error {
	return c.Post(ctx, "/bookings/"+url.PathEscape(id)+"/cancel", nil, nil)
}

func (c *Client) DeleteBooking(ctx context.Context, id string) error {
	return c.Delete(ctx, "/bookings/"+url.PathEscape(id), nil)
}

// CalculatePrice asks the server for the authoritative price of a stay
func (c *Client) CalculatePrice(ctx context.Context, propertyID string, start, end domain.Date) (*domain.PriceQuote, error) {
	q := url.Values{}
	q.Set("propertyId", propertyID)
	q.Set("start", start.String())
	q.Set("end", end.String())

	var quote domain.PriceQuote
	if err := c.Get(ctx, "/bookings/calculate?"+q.Encode(), &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// Properties

// Properties fetches the role-keyed property list
func (c *Client) Properties(ctx context.Context, role domain.Role) ([]domain.Property, error) {
	var props []domain.Property
	if err := c.Get(ctx, auth.PropertiesEndpoint(role), &props); err != nil {
		return nil, err
	}
	return props, nil
}

func (c *Client) Property(ctx context.Context, id string) (*domain.Property, error) {
	var p domain.Property
	if err := c.Get(ctx, "/properties/"+url.PathEscape(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) SearchProperties(ctx context.Context, s domain.PropertySearch) ([]domain.Property, error) {
	q := url.Values{}
	for k, v := range map[string]string{
		"location":    s.Location,
		"description": s.Description,
		"minPrice":    s.MinPrice,
		"maxPrice":    s.MaxPrice,
		"guests":      s.Guests,
	} {
		if v != "" {
			q.Set(k, v)
		}
	}

	var props []domain.Property
	if err := c.Get(ctx, "/properties/search?"+q.Encode(), &props); err != nil {
		return nil, err
	}
	return props, nil
}

// AvailableProperties lists properties with no booking overlapping the range
func (c *Client) AvailableProperties(ctx context.Context, start, end domain.Date) ([]domain.Property, error) {
	q := url.Values{}
	q.Set("startDate", start.String())
	q.Set("endDate", end.String())

	var props []domain.Property
	if err := c.Get(ctx, "/properties/available?"+q.Encode(), &props); err != nil {
		return nil, err
	}
	return props, nil
}

func (c *Client) CreateProperty(ctx context.Context, in domain.PropertyInput) (*domain.Property, error) {
	var p domain.Property
	if err := c.Post(ctx, "/properties", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProperty(ctx context.Context, id string, in domain.PropertyInput) (*domain.Property, error) {
	var p domain.Property
	if err := c.Put(ctx, "/properties/"+url.PathEscape(id), in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeleteProperty(ctx context.Context, id string) error {
	return c.Delete(ctx, "/properties/"+url.PathEscape(id), nil)
}

// Payments

func (c *Client) Pay(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentResponse, error) {
	var resp domain.PaymentResponse
	if err := c.Post(ctx, "/payments/pay", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reviews

func (c *Client) PropertyReviews(ctx context.Context, propertyID string) ([]domain.Review, error) {
	var reviews []domain.Review
	if err := c.Get(ctx, "/reviews/property/"+url.PathEscape(propertyID), &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (c *Client) CreateReview(ctx context.Context, in domain.ReviewInput) (*domain.Review, error) {
	var r domain.Review
	if err := c.Post(ctx, "/reviews", in, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) UpdateReview(ctx context.Context, id string, in domain.ReviewUpdate) (*domain.Review, error) {
	var r domain.Review
	if err := c.Put(ctx, "/reviews/"+url.PathEscape(id), in, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) DeleteReview(ctx context.Context, id string) error {
	return c.Delete(ctx, "/reviews/"+url.PathEscape(id), nil)
}

func (c *Client) RespondToReview(ctx context.Context, id string, in domain.ReviewResponse) (*domain.Review, error) {
	var r domain.Review
	if err := c.Post(ctx, "/reviews/"+url.PathEscape(id)+"/response", in, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Admin users

func (c *Client) Users(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := c.Get(ctx, "/admin/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) User(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	if err := c.Get(ctx, "/admin/users/"+url.PathEscape(id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) CreateUser(ctx context.Context, in domain.NewAdminUser) (*domain.User, error) {
	var u domain.User
	if err := c.Post(ctx, "/admin/users", in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, in domain.UserUpdate) (*domain.User, error) {
	var u domain.User
	if err := c.Put(ctx, "/admin/users/"+url.PathEscape(id), in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SetUserActive calls activate or deactivate depending on the target state
func (c *Client) SetUserActive(ctx context.Context, id string, active bool) error {
	action := "deactivate"
	if active {
		action = "activate"
	}
	return c.Patch(ctx, "/admin/users/"+url.PathEscape(id)+"/"+action, nil, nil)
}

package testutil

import (
	"fmt"
	"time"

	"github.com/dom/stay-portal/internal/domain"
	"github.com/google/uuid"
)

// DefaultPassword satisfies the strong-password rule
const DefaultPassword = "Passw0rd!"

// UserBuilder creates API accounts with a builder pattern
type UserBuilder struct {
	user     domain.User
	password string
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	suffix := uuid.New().String()[:8]
	return &UserBuilder{
		user: domain.User{
			FirstName:   "Test",
			LastName:    "User",
			Email:       fmt.Sprintf("user_%s@example.com", suffix),
			PhoneNumber: "0712345678",
			Role:        domain.RoleGuest,
			Active:      true,
		},
		password: DefaultPassword,
	}
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.user.Email = email
	return b
}

func (b *UserBuilder) WithName(first, last string) *UserBuilder {
	b.user.FirstName, b.user.LastName = first, last
	return b
}

func (b *UserBuilder) WithPhone(phone string) *UserBuilder {
	b.user.PhoneNumber = phone
	return b
}

func (b *UserBuilder) WithRole(role domain.Role) *UserBuilder {
	b.user.Role = role
	return b
}

func (b *UserBuilder) Inactive() *UserBuilder {
	b.user.Active = false
	return b
}

func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// Build registers the account with the fake API and returns it
func (b *UserBuilder) Build(api *FakeAPI) domain.User {
	return api.AddAccount(b.user, b.password)
}

// PropertyBuilder creates listings
type PropertyBuilder struct {
	prop   domain.Property
	booked bool
}

func NewPropertyBuilder() *PropertyBuilder {
	return &PropertyBuilder{
		prop: domain.Property{
			Name:          "Seaside Cottage",
			Description:   "Two bedrooms, ocean view",
			Location:      "Mombasa",
			PricePerNight: 5000,
			Currency:      "KES",
		},
	}
}

func (b *PropertyBuilder) WithName(name string) *PropertyBuilder {
	b.prop.Name = name
	return b
}

func (b *PropertyBuilder) WithLocation(loc string) *PropertyBuilder {
	b.prop.Location = loc
	return b
}

func (b *PropertyBuilder) WithPrice(price float64) *PropertyBuilder {
	b.prop.PricePerNight = price
	return b
}

func (b *PropertyBuilder) WithHost(host domain.User) *PropertyBuilder {
	b.prop.HostID, b.prop.HostEmail = host.ID, host.Email
	return b
}

// Booked hides the property from the availability query
func (b *PropertyBuilder) Booked() *PropertyBuilder {
	b.booked = true
	return b
}

func (b *PropertyBuilder) Build(api *FakeAPI) domain.Property {
	p := api.AddProperty(b.prop)
	if b.booked {
		api.MarkBooked(p.ID)
	}
	return p
}

// BookingBuilder creates reservations directly in the fake
type BookingBuilder struct {
	booking domain.Booking
}

func NewBookingBuilder(guest domain.User, prop domain.Property) *BookingBuilder {
	start := domain.NewDate(time.Now().AddDate(0, 0, -10))
	end := domain.NewDate(time.Now().AddDate(0, 0, -7))
	return &BookingBuilder{
		booking: domain.Booking{
			PropertyID:   prop.ID,
			PropertyName: prop.Name,
			UserID:       guest.ID,
			StartDate:    start,
			EndDate:      end,
			TotalPrice:   float64(start.NightsUntil(end)) * prop.PricePerNight,
			Status:       domain.BookingStatusPending,
		},
	}
}

func (b *BookingBuilder) WithStatus(status domain.BookingStatus) *BookingBuilder {
	b.booking.Status = status
	return b
}

func (b *BookingBuilder) Build(api *FakeAPI) domain.Booking {
	return api.AddBooking(b.booking)
}

// NewReview seeds a review written by author for booking
func NewReview(api *FakeAPI, author domain.User, booking domain.Booking, rating int, comment string) domain.Review {
	now := time.Now()
	return api.AddReview(domain.Review{
		PropertyID: booking.PropertyID,
		UserID:     author.ID,
		BookingID:  booking.ID,
		Rating:     rating,
		Comment:    comment,
		CreatedAt:  &now,
		UserEmail:  author.Email,
	})
}

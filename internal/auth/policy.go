package auth

import (
	"strings"

	"github.com/dom/stay-portal/internal/domain"
)

// BookingsEndpoint is the role-keyed read endpoint for bookings
func BookingsEndpoint(role domain.Role) string {
	switch role {
	case domain.RoleHost:
		return "/bookings/host/my"
	case domain.RoleAdmin:
		return "/bookings/all"
	default:
		return "/bookings/me"
	}
}

// PropertiesEndpoint is the role-keyed read endpoint for properties
func PropertiesEndpoint(role domain.Role) string {
	switch role {
	case domain.RoleHost:
		return "/properties/host/my-properties"
	case domain.RoleAdmin:
		return "/properties"
	default:
		return "/properties/guest/all-properties"
	}
}

func CanCreateBooking(id *domain.Identity) bool {
	return id != nil && id.Role == domain.RoleGuest
}

func CanPayBooking(id *domain.Identity, b *domain.Booking) bool {
	return id != nil && id.Role == domain.RoleGuest && b.Status == domain.BookingStatusPending
}

func CanCancelBooking(id *domain.Identity, b *domain.Booking) bool {
	return id != nil && id.Role == domain.RoleGuest && b.Status != domain.BookingStatusCanceled
}

func CanDeleteBooking(id *domain.Identity) bool {
	return id != nil && id.Role == domain.RoleAdmin
}

// CanCreateReview allows a review only for a completed booking that is not
// already in the reviewed set.
func CanCreateReview(id *domain.Identity, b *domain.Booking, reviewed map[string]bool) bool {
	return id != nil && id.Role == domain.RoleGuest &&
		b.Status == domain.BookingStatusCompleted && !reviewed[b.ID]
}

// IsReviewAuthor matches the viewer to the review by email
func IsReviewAuthor(id *domain.Identity, r *domain.Review) bool {
	return id != nil && id.Email != "" && strings.EqualFold(id.Email, r.UserEmail)
}

func CanEditReview(id *domain.Identity, r *domain.Review) bool {
	return IsReviewAuthor(id, r)
}

func CanDeleteReview(id *domain.Identity, r *domain.Review) bool {
	return IsReviewAuthor(id, r) || (id != nil && id.Role == domain.RoleAdmin)
}

func CanRespondToReview(id *domain.Identity) bool {
	return id != nil && (id.Role == domain.RoleHost || id.Role == domain.RoleAdmin)
}

func CanManageProperty(id *domain.Identity, p *domain.Property) bool {
	if id == nil {
		return false
	}
	switch id.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleHost:
		return p.HostEmail == "" || strings.EqualFold(p.HostEmail, id.Email)
	}
	return false
}

func CanManageUsers(id *domain.Identity) bool {
	return id != nil && id.Role == domain.RoleAdmin
}

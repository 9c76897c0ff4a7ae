package domain

import "errors"

// Session errors
var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrForbidden       = errors.New("action not permitted for this role")
	ErrNoForgotEmail   = errors.New("password reset has not been started")
)

// Validation errors. None of these ever reach the network layer.
var (
	ErrValidation           = errors.New("validation failed")
	ErrConfirmationRequired = errors.New("explicit confirmation required")
	ErrInvalidDateRange     = errors.New("end date must be after start date")
	ErrPropertyRequired     = errors.New("select a property first")
	ErrDatesRequired        = errors.New("start and end dates are required")
	ErrQuoteRequired        = errors.New("price has not been calculated yet")
	ErrPropertyBooked       = errors.New("property is already booked")
	ErrPaymentMethod        = errors.New("please select a payment method")
	ErrPhoneRequired        = errors.New("please enter a valid mobile money phone number")
)

// Review errors
var (
	ErrBookingNotCompleted = errors.New("you can only review completed bookings")
	ErrAlreadyReviewed     = errors.New("this booking already has a review")
	ErrNotReviewAuthor     = errors.New("you can only edit your own reviews")
	ErrReviewNotFound      = errors.New("review not found")
)

// Workflow errors
var (
	ErrStaleQuote   = errors.New("price calculation superseded by a newer request")
	ErrInvalidState = errors.New("invalid workflow state for this action")
)

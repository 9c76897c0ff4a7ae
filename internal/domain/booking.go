package domain

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// BookingStatus is the server-assigned lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCanceled  BookingStatus = "CANCELED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

// Booking is a guest's reservation of one property for a date range
type Booking struct {
	ID           string        `json:"bookingId"`
	PropertyID   string        `json:"propertyId"`
	PropertyName string        `json:"propertyName,omitempty"`
	UserID       string        `json:"userId"`
	StartDate    Date          `json:"startDate"`
	EndDate      Date          `json:"endDate"`
	TotalPrice   float64       `json:"totalPrice"`
	Status       BookingStatus `json:"status"`
	CreatedAt    *time.Time    `json:"createdAt,omitempty"`
}

// BookingRequest is the creation payload. The amount is never sent; the
// server computes and returns the authoritative total.
type BookingRequest struct {
	PropertyID string `json:"propertyId"`
	StartDate  Date   `json:"startDate"`
	EndDate    Date   `json:"endDate"`
}

// PriceQuote is the server-computed price for a prospective booking
type PriceQuote struct {
	Nights        int     `json:"nights"`
	PricePerNight float64 `json:"pricePerNight"`
	TotalPrice    float64 `json:"totalPrice"`
}

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders an amount with thousands separators, dropping
// the fraction for whole values.
func FormatAmount(v float64) string {
	if v == math.Trunc(v) {
		return amountPrinter.Sprintf("%d", int64(v))
	}
	return amountPrinter.Sprintf("%.2f", v)
}

// Summary renders the quote as shown under the date pickers
func (q PriceQuote) Summary() string {
	return fmt.Sprintf("%d night(s) × %s = %s", q.Nights, FormatAmount(q.PricePerNight), FormatAmount(q.TotalPrice))
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dom/stay-portal/internal/apiclient"
	"github.com/dom/stay-portal/internal/domain"
	"github.com/rs/zerolog/log"
)

// PaymentInput is what the checkout form collects. Amount is the server's
// total for the booking and is never recomputed here.
type PaymentInput struct {
	BookingID string
	Amount    float64
	Method    domain.PaymentMethod
	Phone     string
}

// PaymentOutcome is one of two disjoint results: a hosted-checkout redirect
// or an asynchronous pending confirmation.
type PaymentOutcome struct {
	RedirectURL string
	Pending     bool
	Message     string
}

const AwaitingConfirmation = "Awaiting confirmation..."

type PaymentService struct {
	publicURL string
}

func NewPaymentService(publicURL string) *PaymentService {
	return &PaymentService{publicURL: strings.TrimRight(publicURL, "/")}
}

// ReturnURL is where hosted checkouts send the browser after paying
func (s *PaymentService) ReturnURL() string {
	return s.publicURL + "/payment/success"
}

// CancelURL is where hosted checkouts send the browser after backing out
func (s *PaymentService) CancelURL() string {
	return s.publicURL + "/payment/cancel"
}

// Validate applies the checkout form rules without touching the network
func (s *PaymentService) Validate(in PaymentInput) error {
	if in.BookingID == "" {
		return domain.ErrInvalidState
	}
	if !in.Method.IsValid() {
		return domain.ErrPaymentMethod
	}
	if in.Method.RequiresPhone() && !domain.ValidMobileMoneyPhone(in.Phone) {
		return domain.ErrPhoneRequired
	}
	return nil
}

// Initiate posts the payment request and classifies the reply
func (s *PaymentService) Initiate(ctx context.Context, api *apiclient.Client, in PaymentInput) (*PaymentOutcome, error) {
	if err := s.Validate(in); err != nil {
		return nil, err
	}

	phone := "N/A"
	if in.Method.RequiresPhone() {
		phone = strings.TrimSpace(in.Phone)
	}

	resp, err := api.Pay(ctx, domain.PaymentRequest{
		BookingID:     in.BookingID,
		Amount:        in.Amount,
		PaymentMethod: in.Method,
		PhoneNumber:   phone,
		ReturnURL:     s.ReturnURL(),
		CancelURL:     s.CancelURL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initiate payment: %w", err)
	}

	log.Info().
		Str("component", "payment").
		Str("booking_id", in.BookingID).
		Str("method", string(in.Method)).
		Bool("redirect", resp.RedirectURL != "").
		Msg("Payment initiated")

	if resp.RedirectURL != "" {
		return &PaymentOutcome{RedirectURL: resp.RedirectURL}, nil
	}
	return &PaymentOutcome{Pending: true, Message: AwaitingConfirmation}, nil
}

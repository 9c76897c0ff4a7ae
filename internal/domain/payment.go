package domain

// PaymentMethod is one of the fixed payment channels offered at checkout
type PaymentMethod string

const (
	PaymentMPesa  PaymentMethod = "MPESA"
	PaymentAirtel PaymentMethod = "AIRTEL"
	PaymentPayPal PaymentMethod = "PAYPAL"
	PaymentStripe PaymentMethod = "STRIPE"
)

// AllPaymentMethods lists the methods in the order they are offered
var AllPaymentMethods = []PaymentMethod{PaymentMPesa, PaymentAirtel, PaymentPayPal, PaymentStripe}

// IsValid checks if the method is one of the offered channels
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMPesa, PaymentAirtel, PaymentPayPal, PaymentStripe:
		return true
	}
	return false
}

// RequiresPhone reports whether the method is mobile money
func (m PaymentMethod) RequiresPhone() bool {
	return m == PaymentMPesa || m == PaymentAirtel
}

// PaymentRequest is the body of POST /payments/pay
type PaymentRequest struct {
	BookingID     string        `json:"bookingId"`
	Amount        float64       `json:"amount"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	PhoneNumber   string        `json:"phoneNumber"`
	ReturnURL     string        `json:"returnUrl"`
	CancelURL     string        `json:"cancelUrl"`
}

// PaymentResponse is the initiation reply; RedirectURL is set for hosted checkouts
type PaymentResponse struct {
	PaymentID   string `json:"paymentId,omitempty"`
	Status      string `json:"status,omitempty"`
	RedirectURL string `json:"redirectUrl,omitempty"`
	Message     string `json:"message,omitempty"`
}

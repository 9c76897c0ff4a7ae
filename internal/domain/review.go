package domain

import "time"

// Review is a guest's rating of a completed stay, optionally answered by the host
type Review struct {
	ID              string     `json:"reviewId"`
	PropertyID      string     `json:"propertyId"`
	UserID          string     `json:"userId"`
	BookingID       string     `json:"bookingId"`
	Rating          int        `json:"rating"`
	Comment         string     `json:"comment"`
	HostResponse    string     `json:"hostResponse,omitempty"`
	HostRespondedAt *time.Time `json:"hostRespondedAt,omitempty"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
	UserEmail       string     `json:"userEmail,omitempty"`
}

// ReviewInput is the create payload
type ReviewInput struct {
	BookingID string `json:"bookingId" validate:"required"`
	Rating    int    `json:"rating" validate:"min=1,max=5"`
	Comment   string `json:"comment" validate:"required,min=3,max=2000"`
}

// ReviewUpdate is the author's edit payload
type ReviewUpdate struct {
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Comment string `json:"comment" validate:"required,min=3,max=2000"`
}

// ReviewResponse is the host/admin answer payload
type ReviewResponse struct {
	Response string `json:"response" validate:"required,max=2000"`
}

package domain

import "time"

// Property is a listing owned by a host
type Property struct {
	ID            string     `json:"propertyId"`
	HostID        string     `json:"hostId,omitempty"`
	HostEmail     string     `json:"hostEmail,omitempty"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Location      string     `json:"location"`
	PricePerNight float64    `json:"pricePerNight"`
	Currency      string     `json:"currency"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`

	// Booked is derived per fetch from the availability query, never sent back
	Booked bool `json:"-"`
}

// PropertyInput is the host's create/edit form
type PropertyInput struct {
	Name          string  `json:"name" validate:"required,max=120"`
	Description   string  `json:"description" validate:"max=2000"`
	Location      string  `json:"location" validate:"required"`
	PricePerNight float64 `json:"pricePerNight" validate:"gt=0"`
	Currency      string  `json:"currency" validate:"required,len=3,alpha"`
}

// PropertySearch holds the optional filters of /properties/search
type PropertySearch struct {
	Location    string
	Description string
	MinPrice    string
	MaxPrice    string
	Guests      string
}

// Empty reports whether no filter is set
func (s PropertySearch) Empty() bool {
	return s.Location == "" && s.Description == "" && s.MinPrice == "" && s.MaxPrice == "" && s.Guests == ""
}

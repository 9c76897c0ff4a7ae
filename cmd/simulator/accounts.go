package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dom/stay-portal/internal/apiclient"
	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/session"
	"github.com/google/uuid"
)

// simPassword satisfies the API's strong-password rule
const simPassword = "Sim!ul4tor"

// tokenHolder is an in-memory token source for one simulated account
type tokenHolder struct {
	token string
}

func (t *tokenHolder) Token(context.Context) (string, error) { return t.token, nil }

func (t *tokenHolder) Clear(context.Context, session.ClearReason) error {
	t.token = ""
	return nil
}

// Account is a registered, signed-in simulated user
type Account struct {
	Email  string
	Role   domain.Role
	Client *apiclient.Client
}

// RegisterAccount signs up a throwaway user of role and logs it in
func RegisterAccount(ctx context.Context, base *apiclient.Client, role domain.Role, n int) (*Account, error) {
	email := fmt.Sprintf("sim-%s-%d-%s@example.com", strings.ToLower(string(role)), n, uuid.NewString()[:6])

	err := base.Register(ctx, domain.Registration{
		FirstName:   "Sim",
		LastName:    role.DisplayName(),
		Email:       email,
		Password:    simPassword,
		PhoneNumber: "0712345678",
		Role:        role,
	})
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", email, err)
	}
	return Login(ctx, base, email, simPassword, role)
}

func Login(ctx context.Context, base *apiclient.Client, email, password string, role domain.Role) (*Account, error) {
	token, err := base.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login %s: %w", email, err)
	}
	return &Account{
		Email:  email,
		Role:   role,
		Client: base.ForSession(&tokenHolder{token: token}),
	}, nil
}

var sampleProperties = []domain.PropertyInput{
	{Name: "Seaside Cottage", Location: "Mombasa", Description: "Two bedrooms, ocean view", PricePerNight: 5000, Currency: "KES"},
	{Name: "Karen Garden House", Location: "Nairobi", Description: "Quiet garden, sleeps six", PricePerNight: 8500, Currency: "KES"},
	{Name: "Lakeside Cabin", Location: "Naivasha", Description: "Wood cabin on the lake shore", PricePerNight: 6200, Currency: "KES"},
	{Name: "Old Town Loft", Location: "Lamu", Description: "Rooftop terrace, walk to the harbour", PricePerNight: 7000, Currency: "KES"},
	{Name: "Mountain View Lodge", Location: "Nanyuki", Description: "Views of Mount Kenya", PricePerNight: 9800, Currency: "KES"},
}

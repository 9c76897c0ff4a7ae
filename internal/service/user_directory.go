package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dom/stay-portal/internal/apiclient"
	"github.com/dom/stay-portal/internal/auth"
	"github.com/dom/stay-portal/internal/domain"
	"github.com/rs/zerolog/log"
)

// UserDirectory is the admin user-management list of one browser session
type UserDirectory struct {
	api *apiclient.Client

	mu    sync.Mutex
	users []domain.User
	query string
}

func NewUserDirectory(api *apiclient.Client) *UserDirectory {
	return &UserDirectory{api: api}
}

// Load fetches every account; on failure the prior list stays
func (d *UserDirectory) Load(ctx context.Context, id *domain.Identity) error {
	if !auth.CanManageUsers(id) {
		return domain.ErrForbidden
	}

	users, err := d.api.Users(ctx)
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}

	d.mu.Lock()
	d.users = users
	d.mu.Unlock()
	return nil
}

func (d *UserDirectory) SetQuery(q string) {
	d.mu.Lock()
	d.query = q
	d.mu.Unlock()
}

func (d *UserDirectory) Query() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.query
}

// Len counts the loaded accounts regardless of the query
func (d *UserDirectory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.users)
}

// Filtered applies the current query to the loaded list
func (d *UserDirectory) Filtered() []domain.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	return FilterUsers(d.users, d.query)
}

// FilterUsers keeps users whose "first last", email, phone or role contains
// q, case-insensitively. An empty query keeps everyone.
func FilterUsers(users []domain.User, q string) []domain.User {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return append([]domain.User(nil), users...)
	}

	var out []domain.User
	for _, u := range users {
		fields := []string{
			strings.ToLower(u.FirstName + " " + u.LastName),
			strings.ToLower(u.Email),
			strings.ToLower(u.PhoneNumber),
			strings.ToLower(string(u.Role)),
		}
		for _, f := range fields {
			if strings.Contains(f, q) {
				out = append(out, u)
				break
			}
		}
	}
	return out
}

// User looks up a loaded account regardless of the filter
func (d *UserDirectory) User(userID string) (domain.User, bool) {
	return d.find(userID)
}

func (d *UserDirectory) find(userID string) (domain.User, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.ID == userID {
			return u, true
		}
	}
	return domain.User{}, false
}

// Toggle flips activation through the endpoint matching the current state,
// then flips the local flag without refetching.
func (d *UserDirectory) Toggle(ctx context.Context, id *domain.Identity, userID string, confirmed bool) (*domain.User, error) {
	if !auth.CanManageUsers(id) {
		return nil, domain.ErrForbidden
	}
	u, ok := d.find(userID)
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotLoaded)
	}
	if !confirmed {
		return nil, domain.ErrConfirmationRequired
	}

	if err := d.api.SetUserActive(ctx, userID, !u.Active); err != nil {
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.users {
		if d.users[i].ID == userID {
			d.users[i].Active = !d.users[i].Active
			u = d.users[i]
		}
	}

	log.Info().Str("component", "users").Str("user_id", userID).Bool("active", u.Active).Msg("User activation changed")
	return &u, nil
}

// Create registers a new ADMIN account. The session's role travels as
// creatorRole so the API can authorize the request.
func (d *UserDirectory) Create(ctx context.Context, id *domain.Identity, in domain.NewAdminUser) (*domain.User, error) {
	if !auth.CanManageUsers(id) {
		return nil, domain.ErrForbidden
	}

	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.Role = domain.RoleAdmin
	in.CreatorRole = id.Role
	if err := domain.Validate(in); err != nil {
		return nil, err
	}

	created, err := d.api.CreateUser(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := d.Load(ctx, id); err != nil {
		log.Warn().Err(err).Str("component", "users").Msg("Failed to reload users after create")
	}
	return created, nil
}

// Update edits an account's name and phone, merging the reply by id
func (d *UserDirectory) Update(ctx context.Context, id *domain.Identity, userID string, in domain.UserUpdate) (*domain.User, error) {
	if !auth.CanManageUsers(id) {
		return nil, domain.ErrForbidden
	}
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if err := domain.Validate(in); err != nil {
		return nil, err
	}

	updated, err := d.api.UpdateUser(ctx, userID, in)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	d.mu.Lock()
	merged := false
	if updated.ID != "" {
		for i := range d.users {
			if d.users[i].ID == updated.ID {
				d.users[i] = *updated
				merged = true
			}
		}
	}
	d.mu.Unlock()

	if !merged {
		if err := d.Load(ctx, id); err != nil {
			log.Warn().Err(err).Str("component", "users").Msg("Failed to reload users after update")
		}
	}
	return updated, nil
}

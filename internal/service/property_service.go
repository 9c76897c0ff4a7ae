package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dom/stay-portal/internal/apiclient"
	"github.com/dom/stay-portal/internal/auth"
	"github.com/dom/stay-portal/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// PropertyService is stateless; every call runs on the caller's
// session-bound client.
type PropertyService struct{}

func NewPropertyService() *PropertyService {
	return &PropertyService{}
}

// List returns the role-keyed property list. Guests get the booked flag.
func (s *PropertyService) List(ctx context.Context, api *apiclient.Client, id *domain.Identity) ([]domain.Property, error) {
	if id == nil {
		return nil, domain.ErrUnauthenticated
	}
	if id.Role == domain.RoleGuest {
		today := domain.NewDate(timeNow())
		return s.Catalogue(ctx, api, today, domain.NewDate(today.AddDate(0, 0, 1)))
	}

	props, err := api.Properties(ctx, id.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to load properties: %w", err)
	}
	return props, nil
}

// Catalogue loads the guest catalogue and the availability for [start, end)
// together, flagging every property missing from the available set. A
// failed availability query leaves every flag clear.
func (s *PropertyService) Catalogue(ctx context.Context, api *apiclient.Client, start, end domain.Date) ([]domain.Property, error) {
	var (
		props     []domain.Property
		available []domain.Property
		availErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		props, err = api.Properties(gctx, domain.RoleGuest)
		return err
	})
	g.Go(func() error {
		available, availErr = api.AvailableProperties(gctx, start, end)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load properties: %w", err)
	}

	if availErr != nil {
		log.Warn().Err(availErr).Str("component", "property").Msg("Availability unknown, showing every property as free")
		return props, nil
	}
	return MarkBooked(props, available), nil
}

// MarkBooked sets Booked on every property absent from available
func MarkBooked(props, available []domain.Property) []domain.Property {
	free := make(map[string]bool, len(available))
	for _, p := range available {
		free[p.ID] = true
	}
	out := make([]domain.Property, len(props))
	for i, p := range props {
		p.Booked = !free[p.ID]
		out[i] = p
	}
	return out
}

// SearchForm is the single-field search box: one filter kind and a query
type SearchForm struct {
	Filter string // location, description, price, guests
	Query  string
}

// ParseSearch turns the search box into API filters. Price takes "min-max",
// "min-" or "-max".
func ParseSearch(form SearchForm) (domain.PropertySearch, error) {
	q := strings.TrimSpace(form.Query)
	if q == "" {
		return domain.PropertySearch{}, domain.Invalid("query", fmt.Sprintf("Please enter a %s to search.", form.Filter))
	}

	var s domain.PropertySearch
	switch form.Filter {
	case "location":
		s.Location = q
	case "description":
		s.Description = q
	case "price":
		lo, hi, _ := strings.Cut(q, "-")
		s.MinPrice, s.MaxPrice = strings.TrimSpace(lo), strings.TrimSpace(hi)
		for _, v := range []string{s.MinPrice, s.MaxPrice} {
			if v == "" {
				continue
			}
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				return domain.PropertySearch{}, domain.Invalid("query", "Price range must look like 1000-5000")
			}
		}
	case "guests":
		if n, err := strconv.Atoi(q); err != nil || n < 1 {
			return domain.PropertySearch{}, domain.Invalid("query", "Guests must be a positive number")
		}
		s.Guests = q
	default:
		return domain.PropertySearch{}, domain.Invalid("filter", "Unknown search filter")
	}

	if s.Empty() {
		return domain.PropertySearch{}, domain.Invalid("query", "Please enter a price range to search.")
	}
	return s, nil
}

func (s *PropertyService) Search(ctx context.Context, api *apiclient.Client, form SearchForm) ([]domain.Property, error) {
	filters, err := ParseSearch(form)
	if err != nil {
		return nil, err
	}
	props, err := api.SearchProperties(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to search properties: %w", err)
	}
	return props, nil
}

func (s *PropertyService) Get(ctx context.Context, api *apiclient.Client, propertyID string) (*domain.Property, error) {
	return api.Property(ctx, propertyID)
}

func (s *PropertyService) Create(ctx context.Context, api *apiclient.Client, id *domain.Identity, in domain.PropertyInput) (*domain.Property, error) {
	if id == nil || (id.Role != domain.RoleHost && id.Role != domain.RoleAdmin) {
		return nil, domain.ErrForbidden
	}
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if err := domain.Validate(in); err != nil {
		return nil, err
	}

	p, err := api.CreateProperty(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to create property: %w", err)
	}
	return p, nil
}

func (s *PropertyService) Update(ctx context.Context, api *apiclient.Client, id *domain.Identity, propertyID string, in domain.PropertyInput) (*domain.Property, error) {
	current, err := api.Property(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load property: %w", err)
	}
	if !auth.CanManageProperty(id, current) {
		return nil, domain.ErrForbidden
	}
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if err := domain.Validate(in); err != nil {
		return nil, err
	}

	p, err := api.UpdateProperty(ctx, propertyID, in)
	if err != nil {
		return nil, fmt.Errorf("failed to update property: %w", err)
	}
	return p, nil
}

func (s *PropertyService) Delete(ctx context.Context, api *apiclient.Client, id *domain.Identity, propertyID string, confirmed bool) error {
	current, err := api.Property(ctx, propertyID)
	if err != nil {
		return fmt.Errorf("failed to load property: %w", err)
	}
	if !auth.CanManageProperty(id, current) {
		return domain.ErrForbidden
	}
	if !confirmed {
		return domain.ErrConfirmationRequired
	}
	if err := api.DeleteProperty(ctx, propertyID); err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}
	return nil
}

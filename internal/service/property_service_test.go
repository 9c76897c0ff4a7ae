package service_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/service"
	"github.com/dom/stay-portal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSearch(t *testing.T) {
	tests := []struct {
		name    string
		form    service.SearchForm
		want    domain.PropertySearch
		wantErr string
	}{
		{"location", service.SearchForm{Filter: "location", Query: " Nairobi "}, domain.PropertySearch{Location: "Nairobi"}, ""},
		{"description", service.SearchForm{Filter: "description", Query: "pool"}, domain.PropertySearch{Description: "pool"}, ""},
		{"price range", service.SearchForm{Filter: "price", Query: "1000-5000"}, domain.PropertySearch{MinPrice: "1000", MaxPrice: "5000"}, ""},
		{"price floor only", service.SearchForm{Filter: "price", Query: "2000-"}, domain.PropertySearch{MinPrice: "2000"}, ""},
		{"guests", service.SearchForm{Filter: "guests", Query: "4"}, domain.PropertySearch{Guests: "4"}, ""},
		{"empty query", service.SearchForm{Filter: "location", Query: ""}, domain.PropertySearch{}, "Please enter a location to search."},
		{"bad price", service.SearchForm{Filter: "price", Query: "cheap"}, domain.PropertySearch{}, "Price range must look like 1000-5000"},
		{"bare dash", service.SearchForm{Filter: "price", Query: "-"}, domain.PropertySearch{}, "Please enter a price range to search."},
		{"zero guests", service.SearchForm{Filter: "guests", Query: "0"}, domain.PropertySearch{}, "Guests must be a positive number"},
		{"unknown filter", service.SearchForm{Filter: "colour", Query: "blue"}, domain.PropertySearch{}, "Unknown search filter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.ParseSearch(tt.form)
			if tt.wantErr != "" {
				require.ErrorIs(t, err, domain.ErrValidation)
				assert.Equal(t, tt.wantErr, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarkBooked(t *testing.T) {
	props := []domain.Property{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	got := service.MarkBooked(props, []domain.Property{{ID: "b"}})

	assert.True(t, got[0].Booked)
	assert.False(t, got[1].Booked)
	assert.True(t, got[2].Booked)
	assert.False(t, props[0].Booked, "input is not modified")
}

func TestPropertyService_ListForGuestFlagsBooked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	guest := testutil.NewUserBuilder().Build(env.api)
	free := testutil.NewPropertyBuilder().WithName("Free").Build(env.api)
	taken := testutil.NewPropertyBuilder().WithName("Taken").Booked().Build(env.api)
	client, id := env.signIn(t, guest)
	props := service.NewPropertyService()

	list, err := props.List(ctx, client, id)
	require.NoError(t, err)
	booked := map[string]bool{}
	for _, p := range list {
		booked[p.ID] = p.Booked
	}
	assert.False(t, booked[free.ID])
	assert.True(t, booked[taken.ID])

	avail, ok := env.api.LastRequest("GET /properties/available")
	require.True(t, ok)
	assert.Contains(t, avail.Query, "startDate=")
	assert.Contains(t, avail.Query, "endDate=")

	env.api.Override(http.MethodGet, "/properties/available", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	})
	list, err = props.List(ctx, client, id)
	require.NoError(t, err, "availability failure degrades instead of failing")
	for _, p := range list {
		assert.False(t, p.Booked)
	}
}

func TestPropertyService_Manage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	guest := testutil.NewUserBuilder().Build(env.api)
	host := testutil.NewUserBuilder().WithRole(domain.RoleHost).Build(env.api)
	rival := testutil.NewUserBuilder().WithRole(domain.RoleHost).Build(env.api)
	props := service.NewPropertyService()

	input := domain.PropertyInput{
		Name:          "Lakeside Lodge",
		Description:   "Quiet cabin by the lake",
		Location:      "Naivasha",
		PricePerNight: 7500,
		Currency:      "kes",
	}

	guestClient, guestID := env.signIn(t, guest)
	_, err := props.Create(ctx, guestClient, guestID, input)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	hostClient, hostID := env.signIn(t, host)
	bad := input
	bad.PricePerNight = 0
	_, err = props.Create(ctx, hostClient, hostID, bad)
	assert.ErrorIs(t, err, domain.ErrValidation)

	created, err := props.Create(ctx, hostClient, hostID, input)
	require.NoError(t, err)
	assert.Equal(t, "KES", created.Currency)

	rivalClient, rivalID := env.signIn(t, rival)
	_, err = props.Update(ctx, rivalClient, rivalID, created.ID, input)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	input.PricePerNight = 8000
	updated, err := props.Update(ctx, hostClient, hostID, created.ID, input)
	require.NoError(t, err)
	assert.Equal(t, 8000.0, updated.PricePerNight)

	assert.ErrorIs(t, props.Delete(ctx, hostClient, hostID, created.ID, false), domain.ErrConfirmationRequired)
	require.NoError(t, props.Delete(ctx, hostClient, hostID, created.ID, true))
	assert.Len(t, env.api.Requests("DELETE /properties/"+created.ID), 1)
}

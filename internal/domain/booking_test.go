package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/dom/stay-portal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceQuote_Summary(t *testing.T) {
	q := domain.PriceQuote{Nights: 3, PricePerNight: 5000, TotalPrice: 15000}
	assert.Equal(t, "3 night(s) × 5,000 = 15,000", q.Summary())
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "950", domain.FormatAmount(950))
	assert.Equal(t, "1,250,000", domain.FormatAmount(1250000))
}

func TestDate_JSON(t *testing.T) {
	var b domain.Booking
	err := json.Unmarshal([]byte(`{"bookingId":"b1","startDate":"2024-01-01","endDate":"2024-01-04","status":"PENDING"}`), &b)
	require.NoError(t, err)

	assert.Equal(t, "2024-01-01", b.StartDate.String())
	assert.Equal(t, 3, b.StartDate.NightsUntil(b.EndDate))
	assert.True(t, b.EndDate.After(b.StartDate))
	assert.Equal(t, domain.BookingStatusPending, b.Status)

	out, err := json.Marshal(domain.BookingRequest{PropertyID: "p1", StartDate: b.StartDate, EndDate: b.EndDate})
	require.NoError(t, err)
	assert.JSONEq(t, `{"propertyId":"p1","startDate":"2024-01-01","endDate":"2024-01-04"}`, string(out))
}

func TestParseDate_Empty(t *testing.T) {
	d, err := domain.ParseDate("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = domain.ParseDate("01/02/2024")
	assert.Error(t, err)
}

func TestRole(t *testing.T) {
	r, ok := domain.ParseRole(" host ")
	assert.True(t, ok)
	assert.Equal(t, domain.RoleHost, r)
	assert.Equal(t, "/host/dashboard", r.Dashboard())

	_, ok = domain.ParseRole("SUPERUSER")
	assert.False(t, ok)
	assert.Equal(t, "/", domain.Role("SUPERUSER").Dashboard())
}

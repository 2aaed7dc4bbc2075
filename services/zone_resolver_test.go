package services_test

import (
	"errors"
	"testing"

	"github.com/smarte-commerce/ecomm-shipping-sub000/models"
	"github.com/smarte-commerce/ecomm-shipping-sub000/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usZones() []models.ShippingZone {
	return []models.ShippingZone{
		{Name: "North America", Code: "NA", Countries: []string{"US", "CA"}},
		{Name: "US Domestic", Code: "US-ALL", Countries: []string{"US"}},
		{
			Name:      "New York Metro",
			Code:      "US-NYC",
			Countries: []string{"US"},
			PostalPatterns: []models.PostalPattern{
				{Type: models.PostalPatternRange, Low: "10000", High: "10299"},
			},
		},
		{
			Name:            "California",
			Code:            "US-CA",
			Countries:       []string{"us"},
			StatesProvinces: []string{"CA"},
		},
	}
}

func TestResolveZone_PostalRangeBeatsCountryWide(t *testing.T) {
	zone, err := services.ResolveZone("US", "NY", "10001", usZones())
	require.NoError(t, err)
	assert.Equal(t, "US-NYC", zone.Code)
}

func TestResolveZone_SingleCountryBeatsMultiCountry(t *testing.T) {
	zone, err := services.ResolveZone("us", "TX", "75001", usZones())
	require.NoError(t, err)
	assert.Equal(t, "US-ALL", zone.Code)
}

func TestResolveZone_StateMatch(t *testing.T) {
	zone, err := services.ResolveZone("US", " ca ", "94105", usZones())
	require.NoError(t, err)
	assert.Equal(t, "US-CA", zone.Code)
}

func TestResolveZone_EmptyInputsKeepWildcardZones(t *testing.T) {
	zone, err := services.ResolveZone("CA", "", "", usZones())
	require.NoError(t, err)
	assert.Equal(t, "NA", zone.Code)
}

func TestResolveZone_ConstrainedZoneExcludedWhenUnsatisfied(t *testing.T) {
	zones := []models.ShippingZone{
		{
			Code:            "DE-BY",
			Countries:       []string{"DE"},
			StatesProvinces: []string{"BY"},
		},
		{
			Code:      "DE-BERLIN",
			Countries: []string{"DE"},
			PostalPatterns: []models.PostalPattern{
				{Type: models.PostalPatternPrefix, Value: "10"},
			},
		},
	}

	_, err := services.ResolveZone("DE", "", "", zones)
	assert.True(t, errors.Is(err, services.ErrZoneNotFound))

	_, err = services.ResolveZone("DE", "HE", "60311", zones)
	assert.True(t, errors.Is(err, services.ErrZoneNotFound))
}

func TestResolveZone_TiesKeepFirstSeen(t *testing.T) {
	zones := []models.ShippingZone{
		{Code: "FIRST", Countries: []string{"FR"}},
		{Code: "SECOND", Countries: []string{"FR"}},
	}
	zone, err := services.ResolveZone("FR", "", "75001", zones)
	require.NoError(t, err)
	assert.Equal(t, "FIRST", zone.Code)
}

func TestResolveZone_PatternKinds(t *testing.T) {
	tests := []struct {
		name    string
		pattern models.PostalPattern
		postal  string
		match   bool
	}{
		{"exact normalized", models.PostalPattern{Type: models.PostalPatternExact, Value: "sw1a 1aa"}, "SW1A 1AA", true},
		{"exact mismatch", models.PostalPattern{Type: models.PostalPatternExact, Value: "SW1A1AA"}, "SW1A1AB", false},
		{"prefix", models.PostalPattern{Type: models.PostalPatternPrefix, Value: "EC"}, "ec1a 1bb", true},
		{"prefix mismatch", models.PostalPattern{Type: models.PostalPatternPrefix, Value: "EC"}, "WC2N", false},
		{"numeric range inclusive low", models.PostalPattern{Type: models.PostalPatternRange, Low: "100", High: "200"}, "100", true},
		{"numeric range inclusive high", models.PostalPattern{Type: models.PostalPatternRange, Low: "100", High: "200"}, "200", true},
		{"numeric range outside", models.PostalPattern{Type: models.PostalPatternRange, Low: "100", High: "200"}, "201", false},
		{"alpha range falls back to prefix compare", models.PostalPattern{Type: models.PostalPatternRange, Low: "M1", High: "M9"}, "M5V 2T6", true},
		{"alpha range outside", models.PostalPattern{Type: models.PostalPatternRange, Low: "M1", High: "M9"}, "K1A 0B1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zones := []models.ShippingZone{{Code: "Z", Countries: []string{"GB"}, PostalPatterns: []models.PostalPattern{tt.pattern}}}
			_, err := services.ResolveZone("GB", "", tt.postal, zones)
			if tt.match {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, services.ErrZoneNotFound)
			}
		})
	}
}

func TestResolveZone_UnknownCountry(t *testing.T) {
	_, err := services.ResolveZone("JP", "", "100-0001", usZones())
	assert.ErrorIs(t, err, services.ErrZoneNotFound)

	_, err = services.ResolveZone("", "", "", usZones())
	assert.ErrorIs(t, err, services.ErrZoneNotFound)
}

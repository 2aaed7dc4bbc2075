package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/smarte-commerce/ecomm-shipping-sub000/models"
)

const (
	scoreCountry       = 10
	scoreState         = 20
	scorePostal        = 30
	scoreSingleCountry = 5
)

// ResolveZone picks the most specific zone serving the address.
//
// Zones must list the country. Non-empty state and postal constraints must be
// satisfied. Among eligible zones the highest score wins and ties keep the
// earliest zone, so a narrow postal-range zone beats a country-wide one.
func ResolveZone(country, state, postalCode string, zones []models.ShippingZone) (*models.ShippingZone, error) {
	country = normalizeCode(country)
	state = normalizeCode(state)
	postalCode = normalizePostal(postalCode)

	if country == "" {
		return nil, fmt.Errorf("%w: country is required", ErrZoneNotFound)
	}

	best := -1
	bestScore := 0
	for i := range zones {
		score, ok := scoreZone(&zones[i], country, state, postalCode)
		if !ok {
			continue
		}
		if best == -1 || score > bestScore {
			best = i
			bestScore = score
		}
	}

	if best == -1 {
		return nil, fmt.Errorf("%w: country=%s state=%s postal=%s", ErrZoneNotFound, country, state, postalCode)
	}
	return &zones[best], nil
}

func scoreZone(z *models.ShippingZone, country, state, postalCode string) (int, bool) {
	if !containsFold(z.Countries, country) {
		return 0, false
	}
	score := scoreCountry

	if len(z.StatesProvinces) > 0 {
		if state == "" || !containsFold(z.StatesProvinces, state) {
			return 0, false
		}
		score += scoreState
	}

	if len(z.PostalPatterns) > 0 {
		if postalCode == "" || !matchesAnyPattern(z.PostalPatterns, postalCode) {
			return 0, false
		}
		score += scorePostal
	}

	if len(z.Countries) == 1 {
		score += scoreSingleCountry
	}
	return score, true
}

func matchesAnyPattern(patterns []models.PostalPattern, code string) bool {
	for _, p := range patterns {
		if matchPostalPattern(p, code) {
			return true
		}
	}
	return false
}

// matchPostalPattern expects code to be normalized already.
func matchPostalPattern(p models.PostalPattern, code string) bool {
	switch models.PostalPatternType(strings.ToUpper(string(p.Type))) {
	case models.PostalPatternExact:
		return normalizePostal(p.Value) == code
	case models.PostalPatternPrefix:
		prefix := normalizePostal(p.Value)
		return prefix != "" && strings.HasPrefix(code, prefix)
	case models.PostalPatternRange:
		return inPostalRange(code, normalizePostal(p.Low), normalizePostal(p.High))
	}
	return false
}

// inPostalRange compares numerically when all sides parse as integers and
// otherwise compares the leading len(low) characters of the code.
func inPostalRange(code, low, high string) bool {
	if low == "" || high == "" {
		return false
	}
	c, errC := strconv.ParseInt(code, 10, 64)
	l, errL := strconv.ParseInt(low, 10, 64)
	h, errH := strconv.ParseInt(high, 10, 64)
	if errC == nil && errL == nil && errH == nil {
		return c >= l && c <= h
	}

	head := code
	if len(head) > len(low) {
		head = head[:len(low)]
	}
	return head >= low && head <= high
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), want) {
			return true
		}
	}
	return false
}

func normalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// normalizePostal upper-cases and drops inner spaces ("sw1a 1aa" -> "SW1A1AA").
func normalizePostal(s string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}

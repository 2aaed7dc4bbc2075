package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smarte-commerce/ecomm-shipping-sub000/models"
)

type keyAddress struct {
	Country string `json:"c"`
	State   string `json:"s"`
	Postal  string `json:"p"`
	City    string `json:"y"`
}

type keyPackage struct {
	VendorID string     `json:"v"`
	From     keyAddress `json:"f"`
	Weight   string     `json:"w"`
	Value    string     `json:"d"`
	Packages int        `json:"n"`
}

type keyRequest struct {
	To          keyAddress   `json:"t"`
	Currency    string       `json:"cur"`
	ServiceType string       `json:"svc"`
	CarrierID   string       `json:"car"`
	Packages    []keyPackage `json:"pkg"`
}

// QuoteCacheKey hashes the routing and package shape of a request so that
// semantically identical requests share one cache slot.
func QuoteCacheKey(req models.QuoteRequest) string {
	k := keyRequest{
		To:          toKeyAddress(req.ToAddress),
		Currency:    normalizeCode(req.Currency),
		ServiceType: normalizeCode(req.ServiceType),
	}
	if req.CarrierID != nil {
		k.CarrierID = req.CarrierID.String()
	}

	if req.IsMultiVendor() {
		for _, v := range req.Vendors {
			k.Packages = append(k.Packages, keyPackage{
				VendorID: strings.TrimSpace(v.VendorID),
				From:     toKeyAddress(v.FromAddress),
				Weight:   canonicalDecimal(v.TotalWeight),
				Value:    canonicalDecimal(v.TotalValue),
				Packages: v.PackageCount,
			})
		}
		sort.Slice(k.Packages, func(i, j int) bool {
			return k.Packages[i].VendorID < k.Packages[j].VendorID
		})
	} else {
		k.Packages = []keyPackage{{
			From:     toKeyAddress(req.FromAddress),
			Weight:   canonicalDecimal(req.TotalWeight),
			Value:    canonicalDecimal(req.TotalValue),
			Packages: req.PackageCount,
		}}
	}

	// Marshalling a struct of strings and ints cannot fail.
	b, _ := json.Marshal(k)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func toKeyAddress(a models.Address) keyAddress {
	return keyAddress{
		Country: normalizeCode(a.Country),
		State:   normalizeCode(a.State),
		Postal:  normalizePostal(a.PostalCode),
		City:    normalizeCode(a.City),
	}
}

// canonicalDecimal renders 5, 5.0 and 5.000 identically.
func canonicalDecimal(d decimal.Decimal) string {
	return d.String()
}

package model

import "strings"

// Country is read-only reference data: one row per ISO 3166-1 alpha-2 code.
type Country struct {
	Code string `json:"code" db:"country_code"`
	Name string `json:"name" db:"country_name"`
}

// VisitedCountry records that a user has been to a country.
// ID is the visit row's own id, which the delete form posts back.
type VisitedCountry struct {
	ID          int64  `json:"id"          db:"id"`
	CountryCode string `json:"countryCode" db:"country_code"`
	CountryName string `json:"countryName" db:"country_name"`
}

// JoinCodes returns the country codes of visits as a comma-separated list,
// the format the map script consumes ("FR,JP,US").
func JoinCodes(visits []VisitedCountry) string {
	codes := make([]string, 0, len(visits))
	for _, v := range visits {
		codes = append(codes, v.CountryCode)
	}
	return strings.Join(codes, ",")
}

// Package locale defines the geographic scope tags attached to questions and
// the fallback hierarchy used when generating question sets for a student.
package locale

import (
	"fmt"
	"strings"
)

// Global matches questions relevant to every audience.
const Global = "GLOBAL"

const (
	countryPrefix = "COUNTRY:"
	statePrefix   = "STATE:"
)

// CountryScope builds the scope tag for a country code, e.g. "COUNTRY:US".
func CountryScope(country string) string {
	return countryPrefix + strings.ToUpper(strings.TrimSpace(country))
}

// StateScope builds the scope tag for a region within a country,
// e.g. "STATE:US-CA".
func StateScope(country, region string) string {
	return statePrefix + strings.ToUpper(strings.TrimSpace(country)) + "-" + strings.ToUpper(strings.TrimSpace(region))
}

// BuildHierarchy returns the ordered list of scope tags to search for a
// student, most specific first. The global tier is always present, so every
// student gets at least globally-scoped content:
//
//	("US", "CA") -> [STATE:US-CA, COUNTRY:US, GLOBAL]
//	("US", "")   -> [COUNTRY:US, GLOBAL]
//	("", "")     -> [GLOBAL]
//
// A region without a country cannot form a state tag and is ignored.
func BuildHierarchy(country, region string) []string {
	country = strings.TrimSpace(country)
	region = strings.TrimSpace(region)

	hierarchy := make([]string, 0, 3)
	if country != "" && region != "" {
		hierarchy = append(hierarchy, StateScope(country, region))
	}
	if country != "" {
		hierarchy = append(hierarchy, CountryScope(country))
	}
	return append(hierarchy, Global)
}

// IsValidScope reports whether tag is a well-formed scope tag.
func IsValidScope(tag string) bool {
	switch {
	case tag == Global:
		return true
	case strings.HasPrefix(tag, countryPrefix):
		return len(tag) > len(countryPrefix)
	case strings.HasPrefix(tag, statePrefix):
		body := tag[len(statePrefix):]
		country, region, ok := strings.Cut(body, "-")
		return ok && country != "" && region != ""
	}
	return false
}

// ParseScope splits a scope tag into its country and region parts. Both are
// empty for the global scope.
func ParseScope(tag string) (country, region string, err error) {
	switch {
	case tag == Global:
		return "", "", nil
	case strings.HasPrefix(tag, countryPrefix):
		country = tag[len(countryPrefix):]
		if country == "" {
			return "", "", fmt.Errorf("invalid locale scope %q", tag)
		}
		return country, "", nil
	case strings.HasPrefix(tag, statePrefix):
		body := tag[len(statePrefix):]
		country, region, ok := strings.Cut(body, "-")
		if !ok || country == "" || region == "" {
			return "", "", fmt.Errorf("invalid locale scope %q", tag)
		}
		return country, region, nil
	}
	return "", "", fmt.Errorf("invalid locale scope %q", tag)
}

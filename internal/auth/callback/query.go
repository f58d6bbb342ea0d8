package callback

import (
	"net/url"
)

// ParseQuery maps each query parameter name on raw to its first decoded value.
// The fragment is not read. Missing parameters and malformed URLs give an empty map, never an error.
func ParseQuery(raw string) map[string]string {
	params := make(map[string]string)
	if raw == "" {
		return params
	}

	u, err := url.Parse(raw)
	if err != nil {
		return params
	}

	// ParseQuery keeps every well-formed pair even when it reports an error
	values, _ := url.ParseQuery(u.RawQuery)
	for key, vals := range values {
		if len(vals) > 0 {
			params[key] = vals[0]
		}
	}
	return params
}

// Code returns the authorization code on raw's query, or "" when there is none
func Code(raw string) string {
	return ParseQuery(raw)[codeParam]
}

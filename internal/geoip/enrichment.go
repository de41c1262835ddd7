// Package geoip resolves source addresses to geolocation and ISP metadata
// through an ip-api compatible lookup service, with a per-key cache and a
// single-flight guard so each key costs at most one outbound call per cache
// lifetime.
package geoip

import "logsight-backend/internal/model"

// Sentinel values used when the lookup service omits a field or fails.
const (
	NotAvailable = "N/A"
	Unknown      = "Unknown"
)

// Status classifies the outcome of one lookup.
type Status int

const (
	// StatusSuccess means the service answered with geolocation data.
	StatusSuccess Status = iota
	// StatusAPIError means the service answered but rejected the query
	// (rate limit, reserved range, malformed address).
	StatusAPIError
	// StatusNetworkError means the call never produced a usable response.
	StatusNetworkError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusAPIError:
		return "api_error"
	default:
		return "network_error"
	}
}

// Enrichment is the immutable outcome of one lookup. Failed lookups still
// produce an Enrichment with the Unknown sentinels so every record merges
// consistently.
type Enrichment struct {
	Country string
	City    string
	ISP     string
	Status  Status
	Reason  string // service-provided failure message, API errors only
}

// Fields returns the overlay applied onto a merged record, in render order.
// The raw lookup query never appears here.
func (e Enrichment) Fields() []model.Field {
	fields := []model.Field{
		{Key: "country", Value: e.Country},
		{Key: "city", Value: e.City},
	}
	if e.ISP != "" {
		fields = append(fields, model.Field{Key: "isp", Value: e.ISP})
	}
	fields = append(fields, model.Field{Key: "status", Value: e.Status.String()})
	if e.Reason != "" {
		fields = append(fields, model.Field{Key: "message", Value: e.Reason})
	}
	return fields
}

package rentalapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
)

// ListQuery is the filter and paging tuple of one backend list request.
// Zero-valued optional fields are omitted from the query string.
type ListQuery struct {
	Endpoint   Endpoint
	Page       int
	Limit      int
	Month      int
	Year       int
	Type       string
	Status     string
	LocationID string
}

// Values encodes the query parameters the backend list endpoints accept.
func (q ListQuery) Values() url.Values {
	v := url.Values{}
	page := q.Page
	if page < 1 {
		page = 1
	}
	v.Set("page", strconv.Itoa(page))
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Month >= 1 && q.Month <= 12 {
		v.Set("month", strconv.Itoa(q.Month))
	}
	if q.Year > 0 {
		v.Set("year", strconv.Itoa(q.Year))
	}
	if q.Type != "" {
		v.Set("type", q.Type)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.LocationID != "" {
		v.Set("location_id", q.LocationID)
	}
	return v
}

// ListResult is one decoded page of entities.
type ListResult struct {
	Items      []Entity
	Page       int
	TotalPages int
	Total      int
}

// HasMore reports whether a page after this one exists.
func (r ListResult) HasMore() bool {
	return r.Page < r.TotalPages
}

// pageMeta is the paging block the backend attaches to list responses.
type pageMeta struct {
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
	Total      int `json:"total"`
	Limit      int `json:"limit"`
}

// envelope matches both response shapes the backend uses: {items, meta} and
// {data, meta}.
type envelope struct {
	Items []json.RawMessage `json:"items"`
	Data  []json.RawMessage `json:"data"`
	Meta  pageMeta          `json:"meta"`
}

// decodePage decodes a list response body into typed entities for endpoint.
// Items that fail to decode are kept as identity-only entities so a single
// bad record never hides a whole page.
func decodePage(endpoint Endpoint, body []byte, q ListQuery) (ListResult, error) {
	if !endpoint.Valid() {
		return ListResult{}, fmt.Errorf("unknown endpoint %q", endpoint)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ListResult{}, fmt.Errorf("decoding %s page: %w", endpoint, err)
	}

	raw := env.Items
	if len(raw) == 0 {
		raw = env.Data
	}

	items := make([]Entity, 0, len(raw))
	for _, msg := range raw {
		entity := newEntity(endpoint)
		if err := json.Unmarshal(msg, entity); err != nil {
			var ident struct {
				ID ID `json:"id"`
			}
			_ = json.Unmarshal(msg, &ident)
			slog.Warn("rental api item did not match schema",
				slog.String("endpoint", string(endpoint)),
				slog.String("id", ident.ID.String()),
				slog.Any("error", err),
			)
			entity = withID(endpoint, ident.ID)
		}
		items = append(items, entity)
	}

	res := ListResult{
		Items:      items,
		Page:       env.Meta.Page,
		TotalPages: env.Meta.TotalPages,
		Total:      env.Meta.Total,
	}
	if res.Page < 1 {
		res.Page = max(q.Page, 1)
	}
	if res.TotalPages < 1 && res.Total > 0 && env.Meta.Limit > 0 {
		res.TotalPages = (res.Total + env.Meta.Limit - 1) / env.Meta.Limit
	}
	if res.TotalPages < res.Page && len(items) > 0 {
		// No usable meta: assume this is the last page.
		res.TotalPages = res.Page
	}
	return res, nil
}

// withID returns an otherwise empty entity carrying only its identifier.
func withID(endpoint Endpoint, id ID) Entity {
	switch endpoint {
	case EndpointFleets:
		return &Fleet{ID: id}
	case EndpointProducts:
		return &Product{ID: id}
	case EndpointInspections:
		return &Inspection{ID: id}
	default:
		return &Maintenance{ID: id}
	}
}

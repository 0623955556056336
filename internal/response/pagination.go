// file: internal/response/pagination.go
package response

import (
	"net/http"
	"net/url"
	"strconv"

	"platewise/internal/models"
	"platewise/internal/services"
)

// ===============================
// PAGINATION CONFIGURATION
// ===============================

// PaginationConfig bounds what clients may ask for
type PaginationConfig struct {
	DefaultLimit int
	MaxLimit     int
	AllowedSorts []string
}

// DefaultPaginationConfig returns sensible pagination defaults
func DefaultPaginationConfig() *PaginationConfig {
	return &PaginationConfig{
		DefaultLimit: 20,
		MaxLimit:     100,
	}
}

// ===============================
// QUERY PARSING
// ===============================

// ParsePagination extracts pagination parameters from the request query,
// clamping the limit and validating the sort field against the allow list.
func ParsePagination(r *http.Request, config *PaginationConfig) (models.PaginationParams, error) {
	if config == nil {
		config = DefaultPaginationConfig()
	}
	query := r.URL.Query()

	params := models.PaginationParams{
		Limit: config.DefaultLimit,
		Sort:  query.Get("sort"),
		Order: query.Get("order"),
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return params, services.NewValidationError("limit must be a positive integer", nil)
		}
		if limit > config.MaxLimit {
			limit = config.MaxLimit
		}
		params.Limit = limit
	}

	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return params, services.NewValidationError("offset must be a non-negative integer", nil)
		}
		params.Offset = offset
	}

	if params.Order != "" && params.Order != "asc" && params.Order != "desc" {
		return params, services.NewValidationError("order must be asc or desc", nil)
	}

	if params.Sort != "" && !sortAllowed(params.Sort, config.AllowedSorts) {
		return params, services.NewValidationError("unsupported sort field", nil)
	}

	return params, nil
}

func sortAllowed(sort string, allowed []string) bool {
	for _, s := range allowed {
		if s == sort {
			return true
		}
	}
	return false
}

// ===============================
// PAGINATED WRITER
// ===============================

// WritePaginated writes a paginated collection response. The page
// metadata travels inside the data envelope the same way the repository
// layer produces it.
func (b *Builder) WritePaginated(w http.ResponseWriter, r *http.Request, page interface{}) {
	b.WriteSuccess(w, r, page)
}

// BuildPageMeta derives page-number metadata from limit/offset totals
func BuildPageMeta(params models.PaginationParams, total int64) models.PaginationMeta {
	limit := params.Limit
	if limit <= 0 {
		limit = 1
	}
	currentPage := params.Offset/limit + 1
	totalPages := int((total + int64(limit) - 1) / int64(limit))

	return models.PaginationMeta{
		CurrentPage:  currentPage,
		TotalPages:   totalPages,
		TotalItems:   total,
		ItemsPerPage: limit,
		HasNext:      currentPage < totalPages,
		HasPrev:      currentPage > 1,
	}
}

// NextPageURL rebuilds the request URL pointing at the next page, or
// returns an empty string on the last page.
func NextPageURL(r *http.Request, params models.PaginationParams, total int64) string {
	if int64(params.Offset+params.Limit) >= total {
		return ""
	}
	u := *r.URL
	q := url.Values{}
	for k, v := range u.Query() {
		q[k] = v
	}
	q.Set("limit", strconv.Itoa(params.Limit))
	q.Set("offset", strconv.Itoa(params.Offset+params.Limit))
	u.RawQuery = q.Encode()
	return u.String()
}

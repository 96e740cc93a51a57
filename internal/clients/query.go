package clients

import "context"

// Page bounds.
const (
	DefaultPage  = 1
	DefaultLimit = 50
	MaxLimit     = 100
)

// Filter restricts a listing. Nil fields do not filter.
type Filter struct {
	PublicSector *bool
	MinEdad      *int
	MaxEdad      *int
	MinIngreso   *float64
}

// Matches reports whether r satisfies every set predicate.
func (f Filter) Matches(r Record) bool {
	p := r.Perfil
	if f.PublicSector != nil && p.IsPublicSector() != *f.PublicSector {
		return false
	}
	if f.MinEdad != nil && p.Edad < *f.MinEdad {
		return false
	}
	if f.MaxEdad != nil && p.Edad > *f.MaxEdad {
		return false
	}
	if f.MinIngreso != nil && p.Ingreso < *f.MinIngreso {
		return false
	}
	return true
}

// PageRequest selects a window of a listing.
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize applies defaults and clamps limit to [1, MaxLimit].
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	switch {
	case p.Limit == 0:
		p.Limit = DefaultLimit
	case p.Limit < 1:
		p.Limit = 1
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}
	return p
}

// Pagination describes the window returned by Query.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// PageResult is one page of a filtered listing.
type PageResult struct {
	Clients    []Record   `json:"clients"`
	Pagination Pagination `json:"pagination"`
}

// Query filters the dataset and returns the requested page.
func (s *Store) Query(ctx context.Context, filter Filter, page PageRequest) PageResult {
	return Paginate(s.LoadAll(ctx), filter, page)
}

// Paginate applies filter as a conjunction and slices the requested page.
func Paginate(records []Record, filter Filter, page PageRequest) PageResult {
	page = page.Normalize()

	matched := make([]Record, 0, len(records))
	for _, r := range records {
		if filter.Matches(r) {
			matched = append(matched, r)
		}
	}

	total := len(matched)
	start := total
	if page.Page-1 <= total/page.Limit {
		start = min((page.Page-1)*page.Limit, total)
	}
	end := start + page.Limit
	if end > total {
		end = total
	}

	return PageResult{
		Clients: matched[start:end],
		Pagination: Pagination{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      total,
			TotalPages: (total + page.Limit - 1) / page.Limit,
		},
	}
}

package clients

import (
	"context"
	"testing"

	"github.com/proingenius/aria-banking/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestPageRequest_Normalize(t *testing.T) {
	tests := []struct {
		in   PageRequest
		want PageRequest
	}{
		{PageRequest{}, PageRequest{Page: 1, Limit: 50}},
		{PageRequest{Page: -4, Limit: 10}, PageRequest{Page: 1, Limit: 10}},
		{PageRequest{Page: 3, Limit: 500}, PageRequest{Page: 3, Limit: 100}},
		{PageRequest{Page: 2, Limit: -1}, PageRequest{Page: 2, Limit: 1}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.Normalize())
	}
}

func TestPaginate_SecondPage(t *testing.T) {
	store := NewMemoryStore(fixture(25), observability.NopLogger())

	res := store.Query(context.Background(), Filter{}, PageRequest{Page: 2, Limit: 10})

	require.Len(t, res.Clients, 10)
	assert.Equal(t, "cli_00011", res.Clients[0].ClienteID)
	assert.Equal(t, "cli_00020", res.Clients[9].ClienteID)
	assert.Equal(t, Pagination{Page: 2, Limit: 10, Total: 25, TotalPages: 3}, res.Pagination)
}

func TestPaginate_PagesReconstructFilteredSet(t *testing.T) {
	records := fixture(97)
	filter := Filter{MinEdad: intPtr(30), MinIngreso: floatPtr(15000)}

	for _, limit := range []int{1, 7, 10, 50, 100} {
		var expected []string
		for _, r := range records {
			if filter.Matches(r) {
				expected = append(expected, r.ClienteID)
			}
		}

		first := Paginate(records, filter, PageRequest{Page: 1, Limit: limit})
		seen := make(map[string]bool)
		var got []string
		for page := 1; page <= first.Pagination.TotalPages; page++ {
			res := Paginate(records, filter, PageRequest{Page: page, Limit: limit})
			assert.LessOrEqual(t, len(res.Clients), limit)
			for _, r := range res.Clients {
				assert.False(t, seen[r.ClienteID], "duplicate %s", r.ClienteID)
				seen[r.ClienteID] = true
				got = append(got, r.ClienteID)
			}
		}
		assert.Equal(t, expected, got, "limit %d", limit)
	}
}

func TestPaginate_BeyondLastPage(t *testing.T) {
	res := Paginate(fixture(5), Filter{}, PageRequest{Page: 4, Limit: 10})
	assert.NotNil(t, res.Clients)
	assert.Empty(t, res.Clients)
	assert.Equal(t, 5, res.Pagination.Total)
	assert.Equal(t, 1, res.Pagination.TotalPages)

	huge := Paginate(fixture(5), Filter{}, PageRequest{Page: 1 << 62, Limit: 100})
	assert.Empty(t, huge.Clients)
}

func TestFilter_Conjunction(t *testing.T) {
	records := []Record{
		{ClienteID: "pub-young", Perfil: &Profile{Edad: 25, Ingreso: 4000, SectorPublicoFlag: 1}},
		{ClienteID: "pub-old", Perfil: &Profile{Edad: 60, Ingreso: 9000, SectorPublicoFlag: 1}},
		{ClienteID: "priv-mid", Perfil: &Profile{Edad: 40, Ingreso: 7000}},
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"none", Filter{}, []string{"pub-young", "pub-old", "priv-mid"}},
		{"public", Filter{PublicSector: boolPtr(true)}, []string{"pub-young", "pub-old"}},
		{"private", Filter{PublicSector: boolPtr(false)}, []string{"priv-mid"}},
		{"age window", Filter{MinEdad: intPtr(30), MaxEdad: intPtr(50)}, []string{"priv-mid"}},
		{"public and income", Filter{PublicSector: boolPtr(true), MinIngreso: floatPtr(5000)}, []string{"pub-old"}},
		{"empty intersection", Filter{PublicSector: boolPtr(false), MaxEdad: intPtr(30)}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Paginate(records, tt.filter, PageRequest{Page: 1, Limit: 100})
			ids := []string{}
			for _, r := range res.Clients {
				ids = append(ids, r.ClienteID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

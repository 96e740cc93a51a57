package portfolio

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/proingenius/aria-banking/internal/clients"
)

// MemoryRepository answers portfolio queries from the JSONL client dataset.
// Columns the dataset does not carry (location, segmentation, balances) are nil.
type MemoryRepository struct {
	store *clients.Store
}

// NewMemoryRepository creates a repository over store.
func NewMemoryRepository(store *clients.Store) *MemoryRepository {
	return &MemoryRepository{store: store}
}

// FromRecord maps a dataset record to a portfolio row.
func FromRecord(rec clients.Record) Client {
	c := Client{
		ClienteID:   rec.ClienteID,
		DataQuality: rec.DataQuality,
	}
	if rec.Resumen != "" {
		resumen := rec.Resumen
		c.Resumen = &resumen
	}
	if p := rec.Perfil; p != nil {
		sexo, edad, ingreso, antiguedad, flag := p.Sexo, p.Edad, p.Ingreso, p.AntiguedadLaboral, p.SectorPublicoFlag
		if sexo != "" {
			c.Sexo = &sexo
		}
		c.Edad = &edad
		c.Ingreso = &ingreso
		c.AntiguedadLaboral = &antiguedad
		c.SectorPublicoFlag = &flag
	}
	return c
}

func (r *MemoryRepository) rows(ctx context.Context) []Client {
	records := r.store.LoadAll(ctx)
	out := make([]Client, 0, len(records))
	for _, rec := range records {
		out = append(out, FromRecord(rec))
	}
	return out
}

// GeneralStats aggregates the dataset.
func (r *MemoryRepository) GeneralStats(ctx context.Context) (GeneralStats, error) {
	var (
		stats        GeneralStats
		edadSum      float64
		edadCount    int
		ingresoSum   float64
		ingresoCount int
	)
	for _, c := range r.rows(ctx) {
		stats.Total++
		if c.IsPublicSector() {
			stats.SectorPublico++
		} else {
			stats.SectorPrivado++
		}
		if c.Sexo != nil {
			switch *c.Sexo {
			case clients.SexMale:
				stats.Hombres++
			case clients.SexFemale:
				stats.Mujeres++
			}
		}
		if c.Edad != nil {
			edadSum += float64(*c.Edad)
			edadCount++
		}
		if c.Ingreso != nil {
			ingresoSum += *c.Ingreso
			ingresoCount++
		}
	}
	stats.EdadPromedio = mean(edadSum, edadCount)
	stats.IngresoPromedio = mean(ingresoSum, ingresoCount)
	return stats, nil
}

// SearchClients filters the dataset in id order.
func (r *MemoryRepository) SearchClients(ctx context.Context, criteria Criteria) ([]ClientSummary, error) {
	limit := clampLimit(criteria.Limit)
	rows := r.rows(ctx)
	sort.Slice(rows, func(i, j int) bool { return rows[i].ClienteID < rows[j].ClienteID })

	out := make([]ClientSummary, 0, limit)
	for _, c := range rows {
		if !criteria.matches(c) {
			continue
		}
		out = append(out, c.Summary())
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (cr Criteria) matches(c Client) bool {
	if cr.SectorPublico != nil && (c.SectorPublicoFlag == nil || *c.SectorPublicoFlag != *cr.SectorPublico) {
		return false
	}
	if cr.IngresoMin != nil && (c.Ingreso == nil || *c.Ingreso < *cr.IngresoMin) {
		return false
	}
	if cr.IngresoMax != nil && (c.Ingreso == nil || *c.Ingreso > *cr.IngresoMax) {
		return false
	}
	if cr.EdadMin != nil && (c.Edad == nil || *c.Edad < *cr.EdadMin) {
		return false
	}
	if cr.EdadMax != nil && (c.Edad == nil || *c.Edad > *cr.EdadMax) {
		return false
	}
	if cr.Sexo != "" && !equalPtr(c.Sexo, cr.Sexo) {
		return false
	}
	if cr.Profesion != "" && (c.Profesion == nil ||
		!strings.Contains(strings.ToLower(*c.Profesion), strings.ToLower(cr.Profesion))) {
		return false
	}
	if cr.Provincia != "" && !equalPtr(c.ProvinciaDefault, cr.Provincia) {
		return false
	}
	if cr.Generacion != "" && !equalPtr(c.Generacion, cr.Generacion) {
		return false
	}
	return true
}

// Segment groups the dataset, ordered by segment label.
func (r *MemoryRepository) Segment(ctx context.Context, groupBy GroupBy) ([]Segment, error) {
	type acc struct {
		count        int
		ingresoSum   float64
		ingresoCount int
		edadSum      float64
		edadCount    int
	}
	groups := make(map[string]*acc)

	for _, c := range r.rows(ctx) {
		var key string
		switch groupBy {
		case GroupByGeneracion:
			if c.Generacion == nil {
				continue
			}
			key = *c.Generacion
		case GroupByNSE:
			if c.NSE == nil {
				continue
			}
			key = "NSE " + strconv.Itoa(*c.NSE)
		default:
			key = SegmentPrivate
			if c.IsPublicSector() {
				key = SegmentPublic
			}
		}

		g, ok := groups[key]
		if !ok {
			g = &acc{}
			groups[key] = g
		}
		g.count++
		if c.Ingreso != nil {
			g.ingresoSum += *c.Ingreso
			g.ingresoCount++
		}
		if c.Edad != nil {
			g.edadSum += float64(*c.Edad)
			g.edadCount++
		}
	}

	out := make([]Segment, 0, len(groups))
	for key, g := range groups {
		out = append(out, Segment{
			Segmento:        key,
			Cantidad:        g.count,
			IngresoPromedio: mean(g.ingresoSum, g.ingresoCount),
			EdadPromedio:    mean(g.edadSum, g.edadCount),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Segmento < out[j].Segmento })
	return out, nil
}

// ProductAnalysis sums product balances. The JSONL dataset carries none, so
// totals are zero unless rows were enriched.
func (r *MemoryRepository) ProductAnalysis(ctx context.Context) (ProductAnalysis, error) {
	return analyseProducts(r.rows(ctx)), nil
}

func analyseProducts(rows []Client) ProductAnalysis {
	var pa ProductAnalysis
	for _, c := range rows {
		b := c.Balances
		capt, coloc := b.Captaciones(), b.Colocaciones()
		pa.Totales.TotalCaptaciones += capt
		pa.Totales.TotalColocaciones += coloc
		if capt > 0 {
			pa.Totales.ClientesConCaptaciones++
		}
		if coloc > 0 {
			pa.Totales.ClientesConColocaciones++
		}
		pa.Desglose.CETotal += sum(b.CE)
		pa.Desglose.CDITotal += sum(b.CDI)
		pa.Desglose.PlanMetasTotal += sum(b.CEPlanMetas)
		pa.Desglose.TDTotal += sum(b.TD)
		pa.Desglose.PrendarioTotal += sum(b.PrPrendario)
		pa.Desglose.HipotecarioTotal += sum(b.PrHipotecario)
		pa.Desglose.OtrosCreditosTotal += sum(b.PrOtros)
		pa.Desglose.TCTotal += sum(b.TC)
	}
	return pa
}

// ClientByID returns ErrNotFound for unknown ids.
func (r *MemoryRepository) ClientByID(ctx context.Context, clienteID string) (Client, error) {
	rec, ok := r.store.GetByID(ctx, clienteID)
	if !ok {
		return Client{}, ErrNotFound
	}
	return FromRecord(rec), nil
}

func mean(total float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

func equalPtr(p *string, v string) bool {
	return p != nil && *p == v
}

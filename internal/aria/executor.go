package aria

import (
	"context"
	"errors"
	"fmt"

	"github.com/proingenius/aria-banking/internal/portfolio"
)

// Result tags.
const (
	TipoEstadisticas = "estadisticas_generales"
	TipoBusqueda     = "busqueda_clientes"
	TipoSegmentacion = "segmentacion"
	TipoProductos    = "analisis_productos"
	TipoCliente      = "cliente_especifico"
)

// Result is the structured outcome of one repository query.
type Result interface {
	ResultType() string
}

// StatsResult answers general_stats.
type StatsResult struct {
	Tipo  string                 `json:"tipo"`
	Datos portfolio.GeneralStats `json:"datos"`
}

// SearchResult answers client_search.
type SearchResult struct {
	Tipo     string                    `json:"tipo"`
	Cantidad int                       `json:"cantidad"`
	Clientes []portfolio.ClientSummary `json:"clientes"`
}

// SegmentationResult answers segmentation.
type SegmentationResult struct {
	Tipo      string              `json:"tipo"`
	Criterio  string              `json:"criterio"`
	Segmentos []portfolio.Segment `json:"segmentos"`
}

// ProductsResult answers products and product metrics.
type ProductsResult struct {
	Tipo     string                     `json:"tipo"`
	Totales  portfolio.ProductTotals    `json:"totales"`
	Desglose portfolio.ProductBreakdown `json:"desglose_productos"`
}

// ClientResult answers specific_client.
type ClientResult struct {
	Tipo       string        `json:"tipo"`
	Encontrado bool          `json:"encontrado"`
	Cliente    *ClientDetail `json:"cliente,omitempty"`
	Mensaje    string        `json:"mensaje,omitempty"`
}

func (StatsResult) ResultType() string        { return TipoEstadisticas }
func (SearchResult) ResultType() string       { return TipoBusqueda }
func (SegmentationResult) ResultType() string { return TipoSegmentacion }
func (ProductsResult) ResultType() string     { return TipoProductos }
func (ClientResult) ResultType() string       { return TipoCliente }

// ClientDetail is the nested client view given to the model.
type ClientDetail struct {
	ID           string           `json:"id"`
	Perfil       DetailProfile    `json:"perfil"`
	Ubicacion    DetailLocation   `json:"ubicacion"`
	Productos    DetailProducts   `json:"productos"`
	Segmentacion DetailSegmenting `json:"segmentacion"`
	Resumen      *string          `json:"resumen"`
}

type DetailProfile struct {
	Edad              *int     `json:"edad"`
	Sexo              *string  `json:"sexo"`
	Profesion         *string  `json:"profesion"`
	Ingreso           *float64 `json:"ingreso"`
	AntiguedadLaboral *float64 `json:"antiguedad_laboral"`
	Sector            string   `json:"sector"`
	EstadoCivil       *string  `json:"estado_civil"`
	Hijos             *int     `json:"hijos"`
	Generacion        *string  `json:"generacion"`
	NivelEducativo    *string  `json:"nivel_educativo"`
}

type DetailLocation struct {
	Provincia *string `json:"provincia"`
	Canton    *string `json:"canton"`
	Distrito  *string `json:"distrito"`
}

type DetailProducts struct {
	Captaciones  DetailDeposits `json:"captaciones"`
	Colocaciones DetailLoans    `json:"colocaciones"`
}

type DetailDeposits struct {
	CE        *float64 `json:"ce"`
	CDI       *float64 `json:"cdi"`
	PlanMetas *float64 `json:"plan_metas"`
	TD        *float64 `json:"td"`
	Total     float64  `json:"total"`
}

type DetailLoans struct {
	Prendario   *float64 `json:"prendario"`
	Hipotecario *float64 `json:"hipotecario"`
	Otros       *float64 `json:"otros"`
	TC          *float64 `json:"tc"`
	Total       float64  `json:"total"`
}

type DetailSegmenting struct {
	NSE           *int    `json:"nse"`
	NivelValor    *string `json:"nivel_valor"`
	SegmentoBanca *string `json:"segmento_banca"`
}

func detailOf(c portfolio.Client) *ClientDetail {
	b := c.Balances
	return &ClientDetail{
		ID: c.ClienteID,
		Perfil: DetailProfile{
			Edad:              c.Edad,
			Sexo:              c.Sexo,
			Profesion:         c.Profesion,
			Ingreso:           c.Ingreso,
			AntiguedadLaboral: c.AntiguedadLaboral,
			Sector:            c.SectorLabel(),
			EstadoCivil:       c.EstadoCivil,
			Hijos:             c.Hijos,
			Generacion:        c.Generacion,
			NivelEducativo:    c.NivelEducativo,
		},
		Ubicacion: DetailLocation{
			Provincia: c.ProvinciaDefault,
			Canton:    c.CantonDefault,
			Distrito:  c.DistritoDefault,
		},
		Productos: DetailProducts{
			Captaciones: DetailDeposits{
				CE: b.CE, CDI: b.CDI, PlanMetas: b.CEPlanMetas, TD: b.TD,
				Total: b.Captaciones(),
			},
			Colocaciones: DetailLoans{
				Prendario: b.PrPrendario, Hipotecario: b.PrHipotecario, Otros: b.PrOtros, TC: b.TC,
				Total: b.Colocaciones(),
			},
		},
		Segmentacion: DetailSegmenting{
			NSE:           c.NSE,
			NivelValor:    c.NivelValor,
			SegmentoBanca: c.SegmentoBanca,
		},
		Resumen: c.Resumen,
	}
}

type handlerFunc func(ctx context.Context, p Params) (Result, error)

// Executor runs one repository query per intent.
type Executor struct {
	repo     portfolio.Repository
	handlers map[Intent]handlerFunc
}

// NewExecutor creates an Executor over repo.
func NewExecutor(repo portfolio.Repository) *Executor {
	e := &Executor{repo: repo}
	e.handlers = map[Intent]handlerFunc{
		IntentGeneralStats:   e.generalStats,
		IntentClientSearch:   e.searchClients,
		IntentSegmentation:   e.segmentation,
		IntentProducts:       e.products,
		IntentSpecificClient: e.specificClient,
		IntentMetrics:        e.metrics,
	}
	return e
}

// Execute dispatches qc to its handler. Unknown intents run general_stats.
func (e *Executor) Execute(ctx context.Context, qc QueryContext) (Result, error) {
	h, ok := e.handlers[qc.Type]
	if !ok {
		h = e.generalStats
	}
	return h(ctx, qc.Params)
}

func (e *Executor) generalStats(ctx context.Context, _ Params) (Result, error) {
	stats, err := e.repo.GeneralStats(ctx)
	if err != nil {
		return nil, err
	}
	return StatsResult{Tipo: TipoEstadisticas, Datos: stats}, nil
}

func (e *Executor) searchClients(ctx context.Context, p Params) (Result, error) {
	hits, err := e.repo.SearchClients(ctx, p.Criteria())
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []portfolio.ClientSummary{}
	}
	return SearchResult{Tipo: TipoBusqueda, Cantidad: len(hits), Clientes: hits}, nil
}

func (e *Executor) segmentation(ctx context.Context, p Params) (Result, error) {
	groupBy := p.Grouping()
	segs, err := e.repo.Segment(ctx, groupBy)
	if err != nil {
		return nil, err
	}
	if segs == nil {
		segs = []portfolio.Segment{}
	}
	return SegmentationResult{Tipo: TipoSegmentacion, Criterio: string(groupBy), Segmentos: segs}, nil
}

func (e *Executor) products(ctx context.Context, _ Params) (Result, error) {
	pa, err := e.repo.ProductAnalysis(ctx)
	if err != nil {
		return nil, err
	}
	return ProductsResult{Tipo: TipoProductos, Totales: pa.Totales, Desglose: pa.Desglose}, nil
}

func (e *Executor) specificClient(ctx context.Context, p Params) (Result, error) {
	c, err := e.repo.ClientByID(ctx, p.ClienteID)
	if errors.Is(err, portfolio.ErrNotFound) {
		return ClientResult{
			Tipo:    TipoCliente,
			Mensaje: fmt.Sprintf("No se encontró el cliente %s", p.ClienteID),
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return ClientResult{Tipo: TipoCliente, Encontrado: true, Cliente: detailOf(c)}, nil
}

func (e *Executor) metrics(ctx context.Context, p Params) (Result, error) {
	switch p.Metric {
	case "captaciones", "colocaciones":
		return e.products(ctx, p)
	}
	return e.generalStats(ctx, p)
}

// Package portfolio provides read models over the full client portfolio used
// by the ARIA assistant, backed by SQL or by the in-memory client dataset.
package portfolio

// GroupBy selects the segmentation criterion.
type GroupBy string

const (
	GroupBySector     GroupBy = "sector"
	GroupByGeneracion GroupBy = "generacion"
	GroupByNSE        GroupBy = "nse"
)

// Valid reports whether g is a supported criterion.
func (g GroupBy) Valid() bool {
	switch g {
	case GroupBySector, GroupByGeneracion, GroupByNSE:
		return true
	}
	return false
}

// Segment labels for the sector criterion.
const (
	SegmentPublic  = "Sector Público"
	SegmentPrivate = "Sector Privado"
)

// GeneralStats aggregates the whole portfolio.
type GeneralStats struct {
	Total           int     `json:"total"`
	EdadPromedio    float64 `json:"edadPromedio"`
	IngresoPromedio float64 `json:"ingresoPromedio"`
	SectorPublico   int     `json:"sectorPublico"`
	SectorPrivado   int     `json:"sectorPrivado"`
	Hombres         int     `json:"hombres"`
	Mujeres         int     `json:"mujeres"`
}

// Criteria filters SearchClients. Nil or empty fields are ignored; the rest are ANDed.
type Criteria struct {
	SectorPublico *int
	IngresoMin    *float64
	IngresoMax    *float64
	EdadMin       *int
	EdadMax       *int
	Sexo          string
	Profesion     string // case-insensitive substring
	Provincia     string
	Generacion    string
	Limit         int
}

// ClientSummary is one search hit.
type ClientSummary struct {
	ClienteID      string   `json:"cliente_id"`
	NombreFicticio string   `json:"nombre_ficticio"`
	Edad           *int     `json:"edad"`
	Sexo           *string  `json:"sexo"`
	Ingreso        *float64 `json:"ingreso"`
	Profesion      *string  `json:"profesion"`
	Sector         string   `json:"sector"`
	Provincia      *string  `json:"provincia"`
	Resumen        *string  `json:"resumen"`
}

// Segment is one group of a segmentation.
type Segment struct {
	Segmento        string  `json:"segmento"`
	Cantidad        int     `json:"cantidad"`
	IngresoPromedio float64 `json:"ingreso_promedio"`
	EdadPromedio    float64 `json:"edad_promedio"`
}

// ProductTotals summarises deposits (captaciones) and loans (colocaciones).
type ProductTotals struct {
	TotalCaptaciones        float64 `json:"total_captaciones"`
	TotalColocaciones       float64 `json:"total_colocaciones"`
	ClientesConCaptaciones  int     `json:"clientes_con_captaciones"`
	ClientesConColocaciones int     `json:"clientes_con_colocaciones"`
}

// ProductBreakdown sums each product balance over the portfolio.
type ProductBreakdown struct {
	CETotal            float64 `json:"ce_total"`
	CDITotal           float64 `json:"cdi_total"`
	PlanMetasTotal     float64 `json:"plan_metas_total"`
	TDTotal            float64 `json:"td_total"`
	PrendarioTotal     float64 `json:"prendario_total"`
	HipotecarioTotal   float64 `json:"hipotecario_total"`
	OtrosCreditosTotal float64 `json:"otros_creditos_total"`
	TCTotal            float64 `json:"tc_total"`
}

// ProductAnalysis pairs totals with the per-product breakdown.
type ProductAnalysis struct {
	Totales  ProductTotals    `json:"totales"`
	Desglose ProductBreakdown `json:"desglose_productos"`
}

// Balances are the eight product balances of one client. Nil means not reported.
type Balances struct {
	CE            *float64
	CDI           *float64
	CEPlanMetas   *float64
	TD            *float64
	PrPrendario   *float64
	PrHipotecario *float64
	PrOtros       *float64
	TC            *float64
}

// Captaciones sums the deposit balances, treating nil as zero.
func (b Balances) Captaciones() float64 {
	return sum(b.CE, b.CDI, b.CEPlanMetas, b.TD)
}

// Colocaciones sums the loan balances, treating nil as zero.
func (b Balances) Colocaciones() float64 {
	return sum(b.PrPrendario, b.PrHipotecario, b.PrOtros, b.TC)
}

// Client is a full portfolio row.
type Client struct {
	ClienteID         string
	Sexo              *string
	Edad              *int
	EstadoCivil       *string
	Profesion         *string
	NivelEducativo    *string
	Generacion        *string
	Hijos             *int
	SectorPublicoFlag *int
	AntiguedadLaboral *float64
	Ingreso           *float64
	NSE               *int
	ProvinciaDefault  *string
	CantonDefault     *string
	DistritoDefault   *string
	SegmentoBanca     *string
	NivelValor        *string
	Balances          Balances
	Resumen           *string
	DataQuality       []string
}

// IsPublicSector reports whether the sector flag is 1.
func (c Client) IsPublicSector() bool {
	return c.SectorPublicoFlag != nil && *c.SectorPublicoFlag == 1
}

// SectorLabel returns "Público" or "Privado".
func (c Client) SectorLabel() string {
	if c.IsPublicSector() {
		return "Público"
	}
	return "Privado"
}

// Summary projects the row to a search hit.
func (c Client) Summary() ClientSummary {
	return ClientSummary{
		ClienteID:      c.ClienteID,
		NombreFicticio: "Cliente " + c.ClienteID,
		Edad:           c.Edad,
		Sexo:           c.Sexo,
		Ingreso:        c.Ingreso,
		Profesion:      c.Profesion,
		Sector:         c.SectorLabel(),
		Provincia:      c.ProvinciaDefault,
		Resumen:        c.Resumen,
	}
}

// ColumnMeta describes one dataset column.
type ColumnMeta struct {
	Name        string   `json:"name"`
	Type        string   `json:"type,omitempty"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
	Tables      []string `json:"tables,omitempty"`
	PII         bool     `json:"pii"`
	Sensitivity string   `json:"sensitivity,omitempty"`
}

func sum(values ...*float64) float64 {
	var total float64
	for _, v := range values {
		if v != nil {
			total += *v
		}
	}
	return total
}

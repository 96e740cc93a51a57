package aria

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/proingenius/aria-banking/internal/clients"
	"github.com/proingenius/aria-banking/internal/portfolio"
)

// Params is the typed view of the classifier's params object. Fields the
// model omitted or sent with an unusable type stay nil or empty.
type Params struct {
	SectorPublico *int
	IngresoMin    *float64
	IngresoMax    *float64
	EdadMin       *int
	EdadMax       *int
	Sexo          string
	Profesion     string
	Provincia     string
	Generacion    string
	Limit         *int
	GroupBy       string
	ClienteID     string
	Metric        string
}

// QueryContext is the classifier output.
type QueryContext struct {
	Type   Intent
	Params Params
}

// SearchLimit applies the default of 10 and clamps to [1, 50].
func (p Params) SearchLimit() int {
	if p.Limit == nil || *p.Limit == 0 {
		return portfolio.DefaultSearchLimit
	}
	return min(max(*p.Limit, 1), portfolio.MaxSearchLimit)
}

// Grouping returns the segmentation criterion, defaulting to sector.
func (p Params) Grouping() portfolio.GroupBy {
	g := portfolio.GroupBy(p.GroupBy)
	if g.Valid() {
		return g
	}
	return portfolio.GroupBySector
}

// Criteria converts the params to repository search criteria.
func (p Params) Criteria() portfolio.Criteria {
	return portfolio.Criteria{
		SectorPublico: p.SectorPublico,
		IngresoMin:    p.IngresoMin,
		IngresoMax:    p.IngresoMax,
		EdadMin:       p.EdadMin,
		EdadMax:       p.EdadMax,
		Sexo:          p.Sexo,
		Profesion:     p.Profesion,
		Provincia:     p.Provincia,
		Generacion:    p.Generacion,
		Limit:         p.SearchLimit(),
	}
}

// decodeParams coerces an untrusted params object.
func decodeParams(raw map[string]json.RawMessage) Params {
	var p Params

	if v, ok := asInt(raw["sector_publico"]); ok && (v == 0 || v == 1) {
		p.SectorPublico = &v
	} else if b, ok := asBool(raw["sector_publico"]); ok {
		flag := 0
		if b {
			flag = 1
		}
		p.SectorPublico = &flag
	}
	if v, ok := asFloat(raw["ingreso_min"]); ok {
		p.IngresoMin = &v
	}
	if v, ok := asFloat(raw["ingreso_max"]); ok {
		p.IngresoMax = &v
	}
	if v, ok := asInt(raw["edad_min"]); ok {
		p.EdadMin = &v
	}
	if v, ok := asInt(raw["edad_max"]); ok {
		p.EdadMax = &v
	}
	if v, ok := asInt(raw["limit"]); ok {
		p.Limit = &v
	}

	p.Sexo = normalizeSexo(asString(raw["sexo"]))
	p.Profesion = asString(raw["profesion"])
	p.Provincia = asString(raw["provincia"])
	p.Generacion = asString(raw["generacion"])
	p.GroupBy = normalizeGroupBy(asString(raw["group_by"]))
	p.ClienteID = asString(raw["cliente_id"])
	p.Metric = strings.ToLower(asString(raw["metric"]))

	return p
}

func asString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func asFloat(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, true
		}
	}
	return 0, false
}

func asInt(raw json.RawMessage) (int, bool) {
	f, ok := asFloat(raw)
	if !ok || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(math.Round(f)), true
}

func asBool(raw json.RawMessage) (bool, bool) {
	if len(raw) == 0 {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, false
	}
	return b, true
}

func normalizeSexo(s string) string {
	switch strings.ToUpper(s) {
	case "":
		return ""
	case "FEMENINO", "F", "MUJER", "MUJERES", "FEMALE":
		return clients.SexFemale
	case "MASCULINO", "M", "HOMBRE", "HOMBRES", "MALE":
		return clients.SexMale
	}
	return strings.ToUpper(s)
}

func normalizeGroupBy(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "ó", "o")
	switch s {
	case "sector", "sector_publico":
		return string(portfolio.GroupBySector)
	case "generacion", "generation":
		return string(portfolio.GroupByGeneracion)
	case "nse", "nivel_socioeconomico":
		return string(portfolio.GroupByNSE)
	}
	return ""
}

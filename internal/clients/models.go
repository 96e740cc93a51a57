// Package clients provides the in-memory client dataset loaded from JSONL.
package clients

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Sex values as they appear in the dataset.
const (
	SexFemale = "FEMENINO"
	SexMale   = "MASCULINO"
)

// Profile holds the sociodemographic fields of a client.
type Profile struct {
	Sexo              string  `json:"sexo"`
	Edad              int     `json:"edad"`
	Ingreso           float64 `json:"ingreso"`
	AntiguedadLaboral float64 `json:"antiguedad_laboral"`
	SectorPublicoFlag int     `json:"sector_publico_flag"`
}

// UnmarshalJSON decodes a profile leniently. Numeric fields accept integers,
// fractional numbers or numeric strings; anything else decodes to zero.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw struct {
		Sexo              string     `json:"sexo"`
		Edad              flexNumber `json:"edad"`
		Ingreso           flexNumber `json:"ingreso"`
		AntiguedadLaboral flexNumber `json:"antiguedad_laboral"`
		SectorPublicoFlag flexNumber `json:"sector_publico_flag"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = Profile{
		Sexo:              raw.Sexo,
		Edad:              int(math.Round(float64(raw.Edad))),
		Ingreso:           float64(raw.Ingreso),
		AntiguedadLaboral: float64(raw.AntiguedadLaboral),
	}
	if raw.SectorPublicoFlag == 1 {
		p.SectorPublicoFlag = 1
	}
	return nil
}

// flexNumber is a number that tolerates float, string and null encodings.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*n = 0
		return nil
	}
	*n = flexNumber(v)
	return nil
}

// IsPublicSector reports whether the client works in the public sector.
// An absent flag decodes to 0 and counts as private.
func (p Profile) IsPublicSector() bool {
	return p.SectorPublicoFlag == 1
}

// SectorLabel returns the display label used in prompts and answers.
func (p Profile) SectorLabel() string {
	if p.IsPublicSector() {
		return "Público"
	}
	return "Privado"
}

// Record is one client row of the dataset.
type Record struct {
	ClienteID   string   `json:"cliente_id"`
	Perfil      *Profile `json:"perfil"`
	Resumen     string   `json:"resumen"`
	Fuente      string   `json:"fuente,omitempty"`
	DataQuality []string `json:"data_quality"`
}

// Stats is the aggregate computed over the whole dataset.
type Stats struct {
	Total           int `json:"total"`
	SectorPublico   int `json:"sectorPublico"`
	SectorPrivado   int `json:"sectorPrivado"`
	Mujeres         int `json:"mujeres"`
	Hombres         int `json:"hombres"`
	EdadPromedio    int `json:"edadPromedio"`
	IngresoPromedio int `json:"ingresoPromedio"`
}

// valid reports whether a decoded line carries the fields every consumer relies on.
func (r *Record) valid() bool {
	return r.ClienteID != "" && r.Perfil != nil
}

// normalize clamps negative or out-of-range profile values.
func (r *Record) normalize() {
	if r.Perfil.Edad < 0 {
		r.Perfil.Edad = 0
	}
	if r.Perfil.Ingreso < 0 {
		r.Perfil.Ingreso = 0
	}
	if r.Perfil.SectorPublicoFlag != 1 {
		r.Perfil.SectorPublicoFlag = 0
	}
	if r.DataQuality == nil {
		r.DataQuality = []string{}
	}
}

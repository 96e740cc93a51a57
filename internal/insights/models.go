// Package insights produces the per-client executive analysis, either from the
// LLM or from deterministic rules when the LLM is unavailable.
package insights

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Source says where an Insights value came from.
type Source string

const (
	SourceLLM      Source = "llm"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

// Insights is the four-section client analysis.
type Insights struct {
	SnapshotEjecutivo      string                 `json:"snapshot_ejecutivo"`
	AnalisisComportamiento AnalisisComportamiento `json:"analisis_comportamiento"`
	Oportunidades          Oportunidades          `json:"oportunidades"`
	AlertasRiesgos         AlertasRiesgos         `json:"alertas_riesgos"`
}

// AnalisisComportamiento describes observed behaviour.
type AnalisisComportamiento struct {
	PatronTransaccional string `json:"patron_transaccional"`
	EngagementDigital   string `json:"engagement_digital"`
	Tendencias          string `json:"tendencias"`
}

// Oportunidades lists commercial opportunities.
type Oportunidades struct {
	ProductosNBA []string `json:"productos_nba"`
	CrossSell    string   `json:"cross_sell"`
	MomentosVida string   `json:"momentos_vida"`
}

// AlertasRiesgos lists risk alerts.
type AlertasRiesgos struct {
	Churn      string `json:"churn"`
	Documentos string `json:"documentos"`
	Compliance string `json:"compliance"`
}

// rawInsights mirrors Insights but tolerates loosely typed LLM output.
type rawInsights struct {
	SnapshotEjecutivo      flexString `json:"snapshot_ejecutivo"`
	AnalisisComportamiento struct {
		PatronTransaccional flexString `json:"patron_transaccional"`
		EngagementDigital   flexString `json:"engagement_digital"`
		Tendencias          flexString `json:"tendencias"`
	} `json:"analisis_comportamiento"`
	Oportunidades struct {
		ProductosNBA flexStrings `json:"productos_nba"`
		CrossSell    flexString  `json:"cross_sell"`
		MomentosVida flexString  `json:"momentos_vida"`
	} `json:"oportunidades"`
	AlertasRiesgos struct {
		Churn      flexString `json:"churn"`
		Documentos flexString `json:"documentos"`
		Compliance flexString `json:"compliance"`
	} `json:"alertas_riesgos"`
}

// flexString accepts a JSON string or any scalar, which it renders as text.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = flexString(strings.TrimSpace(str))
		return nil
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return err
	}
	*s = flexString(compact.String())
	return nil
}

// flexStrings accepts a list of scalars or a single string.
type flexStrings []string

func (l *flexStrings) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		var single flexString
		if err := single.UnmarshalJSON(data); err != nil {
			return fmt.Errorf("productos_nba: %w", err)
		}
		if single != "" {
			*l = flexStrings{string(single)}
		}
		return nil
	}

	out := make(flexStrings, 0, len(items))
	for _, item := range items {
		var s flexString
		if err := s.UnmarshalJSON(item); err != nil {
			return fmt.Errorf("productos_nba item: %w", err)
		}
		if s != "" {
			out = append(out, string(s))
		}
	}
	*l = out
	return nil
}

package aria

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/proingenius/aria-banking/internal/llm"
)

// ClassifierPrompt describes the intent taxonomy to the model.
const ClassifierPrompt = `Eres un analista de preguntas sobre carteras bancarias. Analiza la pregunta del usuario y determina qué tipo de consulta necesita.

Tipos de consulta disponibles:
- general_stats: Estadísticas generales (total clientes, promedios, distribuciones)
- client_search: Buscar clientes específicos por criterios (edad, ingreso, profesión, ubicación, etc)
- segmentation: Análisis de segmentos (sector público/privado, NSE, generación, etc)
- products: Análisis de productos y saldos (captaciones, colocaciones, balance)
- specific_client: Información sobre un cliente específico por ID
- metrics: Métricas de cartera (saldo total, productos más usados, distribución)

Parámetros reconocidos: sector_publico (0 o 1), ingreso_min, ingreso_max, edad_min, edad_max, sexo (FEMENINO o MASCULINO), profesion, provincia, generacion, limit, group_by (sector, generacion o nse), cliente_id, metric.

Responde SOLO con un JSON con esta estructura:
{
  "type": "tipo_de_consulta",
  "params": {
    // parámetros relevantes extraídos de la pregunta
  }
}

Ejemplos:
Pregunta: "¿Cuántos clientes tengo en total?"
Respuesta: {"type": "general_stats", "params": {}}

Pregunta: "Muéstrame clientes del sector público con ingresos mayores a 5000"
Respuesta: {"type": "client_search", "params": {"sector_publico": 1, "ingreso_min": 5000}}

Pregunta: "¿Cuál es el saldo total en captaciones?"
Respuesta: {"type": "metrics", "params": {"metric": "captaciones"}}

Pregunta: "Dame información del cliente cli_00042"
Respuesta: {"type": "specific_client", "params": {"cliente_id": "cli_00042"}}`

// ClassifierTemperature is the sampling temperature for classification.
const ClassifierTemperature = 0.3

type classification struct {
	Type   string                     `json:"type"`
	Params map[string]json.RawMessage `json:"params"`
}

// Classify asks the model for the intent of question. Any failure yields
// general_stats with empty params.
func (a *Assistant) Classify(ctx context.Context, question string) QueryContext {
	logger := a.logger.WithContext(ctx)

	content, err := a.llm.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: ClassifierPrompt},
			{Role: llm.RoleUser, Content: question},
		},
		Temperature: ClassifierTemperature,
		JSON:        true,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("classification failed, defaulting to general_stats")
		return QueryContext{Type: IntentGeneralStats}
	}

	qc, err := parseClassification(content)
	if err != nil {
		logger.Warn().Err(err).Msg("classification unparsable, defaulting to general_stats")
		return QueryContext{Type: IntentGeneralStats}
	}
	return qc
}

func parseClassification(content string) (QueryContext, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return QueryContext{}, fmt.Errorf("no json object in classification")
	}

	var c classification
	if err := json.Unmarshal([]byte(content[start:end+1]), &c); err != nil {
		return QueryContext{}, fmt.Errorf("decode classification: %w", err)
	}

	return QueryContext{
		Type:   ParseIntent(c.Type),
		Params: decodeParams(c.Params),
	}, nil
}

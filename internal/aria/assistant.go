package aria

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/proingenius/aria-banking/internal/llm"
	"github.com/proingenius/aria-banking/internal/observability"
	"github.com/proingenius/aria-banking/internal/portfolio"
)

// SynthesisPrompt is the persona used to phrase answers.
const SynthesisPrompt = `Eres ARIA (Agente de Relación Inteligente Automatizado), un asistente bancario experto para ejecutivos premium de Promerica.

Tu tono es profesional pero cercano, usas lenguaje bancario preciso en español, y siempre proporcionas insights accionables basados en los datos.

Cuando respondas:
- Sé conciso pero completo
- Usa SOLO texto plano con formato simple
- Incluye números y datos específicos
- Proporciona contexto y comparaciones cuando sea relevante
- Sugiere acciones o próximos pasos cuando sea apropiado
- NO uses emojis, solo texto profesional
- Para énfasis usa palabras en **negrita** únicamente

Los datos que te proporciono vienen directamente de la base de datos de la cartera de clientes.`

// SynthesisTemperature is the sampling temperature for answers.
const SynthesisTemperature = 0.7

// Apologies returned instead of an answer.
const (
	MessageNoAnswer = "Lo siento, no pude generar una respuesta en este momento."
	MessageError    = "Lo siento, ocurrió un error al procesar tu pregunta. Por favor intenta nuevamente."
)

// Answer is the assistant's reply to one question.
type Answer struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Intent    Intent    `json:"-"`
}

// Assistant answers free-text portfolio questions. It keeps no conversation state.
type Assistant struct {
	llm      llm.Completer
	executor *Executor
	logger   *observability.Logger
	now      func() time.Time
}

// NewAssistant creates an Assistant.
func NewAssistant(completer llm.Completer, repo portfolio.Repository, logger *observability.Logger) *Assistant {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Assistant{
		llm:      completer,
		executor: NewExecutor(repo),
		logger:   logger.WithComponent("aria"),
		now:      time.Now,
	}
}

// Ask classifies, executes and synthesises. It always returns a message.
func (a *Assistant) Ask(ctx context.Context, question string) Answer {
	logger := a.logger.WithContext(ctx)
	start := time.Now()

	qc := a.Classify(ctx, question)

	result, err := a.executor.Execute(ctx, qc)
	if err != nil {
		logger.Error().Err(err).Str("intent", string(qc.Type)).Msg("portfolio query failed")
		return Answer{Message: MessageError, Timestamp: a.now(), Intent: qc.Type}
	}

	message := a.Synthesize(ctx, question, result)
	logger.Info().
		Str("intent", string(qc.Type)).
		Str("result", result.ResultType()).
		Dur("latency", time.Since(start)).
		Msg("question answered")

	return Answer{Message: message, Timestamp: a.now(), Intent: qc.Type}
}

// Synthesize phrases result as an answer to question. Empty model output
// yields MessageNoAnswer; any failure yields MessageError.
func (a *Assistant) Synthesize(ctx context.Context, question string, result Result) string {
	prompt, err := synthesisUserPrompt(question, result)
	if err != nil {
		a.logger.WithContext(ctx).Error().Err(err).Msg("encode query result")
		return MessageError
	}

	content, err := a.llm.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: SynthesisPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
		Temperature: SynthesisTemperature,
	})
	if err != nil {
		a.logger.WithContext(ctx).Error().Err(err).Msg("synthesis failed")
		return MessageError
	}

	if strings.TrimSpace(content) == "" {
		return MessageNoAnswer
	}
	return content
}

func synthesisUserPrompt(question string, result Result) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Pregunta del usuario: %q\n\nDatos obtenidos de la base de datos:\n```json\n%s\n```\n\nGenera una respuesta clara y útil basada en estos datos.",
		question, data), nil
}

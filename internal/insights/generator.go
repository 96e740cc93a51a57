package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/proingenius/aria-banking/internal/cache"
	"github.com/proingenius/aria-banking/internal/clients"
	"github.com/proingenius/aria-banking/internal/llm"
	"github.com/proingenius/aria-banking/internal/observability"
)

// Request parameters for the insights completion.
const (
	Temperature = 0.3
	MaxTokens   = 1000
)

// DefaultCacheTTL applies when the generator is built with a zero TTL.
const DefaultCacheTTL = 30 * time.Minute

// Generator produces Insights for a client record.
type Generator struct {
	llm    llm.Completer
	cache  cache.Client
	ttl    time.Duration
	logger *observability.Logger
}

// GeneratorConfig wires a Generator. Completer and Cache may be nil; a nil
// Completer always yields the rule-based result.
type GeneratorConfig struct {
	Completer llm.Completer
	Cache     cache.Client
	CacheTTL  time.Duration
	Logger    *observability.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger()
	}
	return &Generator{
		llm:    cfg.Completer,
		cache:  cfg.Cache,
		ttl:    cfg.CacheTTL,
		logger: cfg.Logger.WithComponent("insights"),
	}
}

// Generate returns insights for rec. It never fails: any LLM problem yields Fallback(rec).
func (g *Generator) Generate(ctx context.Context, rec clients.Record) (Insights, Source) {
	logger := g.logger.WithContext(ctx).WithClient(rec.ClienteID)

	if cached, ok := g.fromCache(ctx, rec.ClienteID); ok {
		logger.Debug().Msg("insights served from cache")
		return cached, SourceCache
	}

	if g.llm == nil {
		return Fallback(rec), SourceFallback
	}

	start := time.Now()
	content, err := g.llm.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: SystemPrompt},
			{Role: llm.RoleUser, Content: BuildPrompt(rec)},
		},
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
		JSON:        true,
	})
	if err != nil {
		logger.Warn().Err(err).Dur("latency", time.Since(start)).Msg("insights completion failed, using fallback")
		return Fallback(rec), SourceFallback
	}

	result, filled, err := Parse(content, rec)
	if err != nil {
		logger.Warn().Err(err).Msg("insights response unparsable, using fallback")
		return Fallback(rec), SourceFallback
	}
	if filled == fieldCount {
		logger.Warn().Msg("insights response had no usable fields, using fallback")
		return result, SourceFallback
	}
	if filled > 0 {
		logger.Info().Int("filled_fields", filled).Msg("insights response completed from rules")
	}

	g.store(ctx, rec.ClienteID, result)
	logger.Info().Dur("latency", time.Since(start)).Msg("insights generated")
	return result, SourceLLM
}

// Invalidate drops every cached insights entry.
func (g *Generator) Invalidate(ctx context.Context) error {
	if g.cache == nil {
		return nil
	}
	return g.cache.DeleteByPrefix(ctx, cacheNamespace+":")
}

const cacheNamespace = "insights"

func (g *Generator) fromCache(ctx context.Context, id string) (Insights, bool) {
	if g.cache == nil || id == "" {
		return Insights{}, false
	}
	data, err := g.cache.Get(ctx, cache.Key(cacheNamespace, id))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			g.logger.Warn().Err(err).Msg("insights cache read failed")
		}
		return Insights{}, false
	}
	var out Insights
	if err := json.Unmarshal(data, &out); err != nil {
		return Insights{}, false
	}
	return out, true
}

func (g *Generator) store(ctx context.Context, id string, in Insights) {
	if g.cache == nil || id == "" {
		return
	}
	data, err := json.Marshal(in)
	if err != nil {
		return
	}
	if err := g.cache.Set(ctx, cache.Key(cacheNamespace, id), data, g.ttl); err != nil {
		g.logger.Warn().Err(err).Msg("insights cache write failed")
	}
}

// fieldCount is the number of leaf fields Parse can fill from rules.
const fieldCount = 10

// Parse decodes an LLM response and fills every missing or empty field from
// Fallback(rec). It returns how many fields were filled.
func Parse(content string, rec clients.Record) (Insights, int, error) {
	body := extractJSONObject(content)
	if body == "" {
		return Insights{}, 0, fmt.Errorf("no json object in response")
	}

	var raw rawInsights
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return Insights{}, 0, fmt.Errorf("decode insights: %w", err)
	}

	base := Fallback(rec)
	filled := 0
	pick := func(v flexString, def string) string {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
		filled++
		return def
	}

	out := Insights{
		SnapshotEjecutivo: pick(raw.SnapshotEjecutivo, base.SnapshotEjecutivo),
		AnalisisComportamiento: AnalisisComportamiento{
			PatronTransaccional: pick(raw.AnalisisComportamiento.PatronTransaccional, base.AnalisisComportamiento.PatronTransaccional),
			EngagementDigital:   pick(raw.AnalisisComportamiento.EngagementDigital, base.AnalisisComportamiento.EngagementDigital),
			Tendencias:          pick(raw.AnalisisComportamiento.Tendencias, base.AnalisisComportamiento.Tendencias),
		},
		Oportunidades: Oportunidades{
			ProductosNBA: []string(raw.Oportunidades.ProductosNBA),
			CrossSell:    pick(raw.Oportunidades.CrossSell, base.Oportunidades.CrossSell),
			MomentosVida: pick(raw.Oportunidades.MomentosVida, base.Oportunidades.MomentosVida),
		},
		AlertasRiesgos: AlertasRiesgos{
			Churn:      pick(raw.AlertasRiesgos.Churn, base.AlertasRiesgos.Churn),
			Documentos: pick(raw.AlertasRiesgos.Documentos, base.AlertasRiesgos.Documentos),
			Compliance: pick(raw.AlertasRiesgos.Compliance, base.AlertasRiesgos.Compliance),
		},
	}
	if len(out.Oportunidades.ProductosNBA) == 0 {
		out.Oportunidades.ProductosNBA = base.Oportunidades.ProductosNBA
		filled++
	}

	return out, filled, nil
}

// extractJSONObject strips markdown fences and surrounding prose.
func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}

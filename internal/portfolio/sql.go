package portfolio

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SQLRepository queries the clients table. Statements use $n placeholders and
// avoid dialect-specific aggregates so they run on Postgres and SQLite.
type SQLRepository struct {
	db DB
}

// NewSQLRepository creates a repository over db.
func NewSQLRepository(db DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const (
	captacionesExpr  = "COALESCE(ce_saldo, 0) + COALESCE(cdi_saldo, 0) + COALESCE(ce_plan_metas_saldo, 0) + COALESCE(td_saldo, 0)"
	colocacionesExpr = "COALESCE(pr_prendario_saldo, 0) + COALESCE(pr_hipotecario_saldo, 0) + COALESCE(pr_otros_saldo, 0) + COALESCE(tc_saldo, 0)"
)

// GeneralStats aggregates the clients table.
func (r *SQLRepository) GeneralStats(ctx context.Context) (GeneralStats, error) {
	query := `
		SELECT
			COUNT(*),
			AVG(edad),
			AVG(ingreso),
			COALESCE(SUM(CASE WHEN sector_publico_flag = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN sector_publico_flag = 0 OR sector_publico_flag IS NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN sexo = 'MASCULINO' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN sexo = 'FEMENINO' THEN 1 ELSE 0 END), 0)
		FROM clients
	`
	var (
		stats   GeneralStats
		edad    sql.NullFloat64
		ingreso sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.Total, &edad, &ingreso,
		&stats.SectorPublico, &stats.SectorPrivado, &stats.Hombres, &stats.Mujeres,
	)
	if err != nil {
		return GeneralStats{}, fmt.Errorf("general stats: %w", err)
	}
	stats.EdadPromedio = edad.Float64
	stats.IngresoPromedio = ingreso.Float64
	return stats, nil
}

// SearchClients filters the clients table in id order.
func (r *SQLRepository) SearchClients(ctx context.Context, criteria Criteria) ([]ClientSummary, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}

	if criteria.SectorPublico != nil {
		add("sector_publico_flag = ?", *criteria.SectorPublico)
	}
	if criteria.IngresoMin != nil {
		add("ingreso >= ?", *criteria.IngresoMin)
	}
	if criteria.IngresoMax != nil {
		add("ingreso <= ?", *criteria.IngresoMax)
	}
	if criteria.EdadMin != nil {
		add("edad >= ?", *criteria.EdadMin)
	}
	if criteria.EdadMax != nil {
		add("edad <= ?", *criteria.EdadMax)
	}
	if criteria.Sexo != "" {
		add("sexo = ?", criteria.Sexo)
	}
	if criteria.Profesion != "" {
		add("LOWER(profesion) LIKE ?", "%"+strings.ToLower(criteria.Profesion)+"%")
	}
	if criteria.Provincia != "" {
		add("provincia_default = ?", criteria.Provincia)
	}
	if criteria.Generacion != "" {
		add("generacion = ?", criteria.Generacion)
	}

	query := "SELECT " + clientColumns + " FROM clients"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, clampLimit(criteria.Limit))
	query += " ORDER BY cliente_id LIMIT $" + strconv.Itoa(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search clients: %w", err)
	}
	defer rows.Close()

	out := []ClientSummary{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, c.Summary())
	}
	return out, rows.Err()
}

// Segment groups the clients table, ordered by segment label.
func (r *SQLRepository) Segment(ctx context.Context, groupBy GroupBy) ([]Segment, error) {
	var label, where string
	switch groupBy {
	case GroupByGeneracion:
		label, where = "generacion", "WHERE generacion IS NOT NULL"
	case GroupByNSE:
		label, where = "'NSE ' || CAST(nse AS TEXT)", "WHERE nse IS NOT NULL"
	default:
		label = "CASE WHEN sector_publico_flag = 1 THEN '" + SegmentPublic + "' ELSE '" + SegmentPrivate + "' END"
	}

	query := fmt.Sprintf(`
		SELECT %s AS segmento, COUNT(*), AVG(ingreso), AVG(edad)
		FROM clients
		%s
		GROUP BY 1
		ORDER BY 1
	`, label, where)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("segment by %s: %w", groupBy, err)
	}
	defer rows.Close()

	out := []Segment{}
	for rows.Next() {
		var (
			s       Segment
			ingreso sql.NullFloat64
			edad    sql.NullFloat64
		)
		if err := rows.Scan(&s.Segmento, &s.Cantidad, &ingreso, &edad); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		s.IngresoPromedio = ingreso.Float64
		s.EdadPromedio = edad.Float64
		out = append(out, s)
	}
	return out, rows.Err()
}

// ProductAnalysis sums product balances across the clients table.
func (r *SQLRepository) ProductAnalysis(ctx context.Context) (ProductAnalysis, error) {
	query := `
		SELECT
			COALESCE(SUM(` + captacionesExpr + `), 0),
			COALESCE(SUM(` + colocacionesExpr + `), 0),
			COALESCE(SUM(CASE WHEN ` + captacionesExpr + ` > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN ` + colocacionesExpr + ` > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(ce_saldo), 0),
			COALESCE(SUM(cdi_saldo), 0),
			COALESCE(SUM(ce_plan_metas_saldo), 0),
			COALESCE(SUM(td_saldo), 0),
			COALESCE(SUM(pr_prendario_saldo), 0),
			COALESCE(SUM(pr_hipotecario_saldo), 0),
			COALESCE(SUM(pr_otros_saldo), 0),
			COALESCE(SUM(tc_saldo), 0)
		FROM clients
	`
	var pa ProductAnalysis
	err := r.db.QueryRowContext(ctx, query).Scan(
		&pa.Totales.TotalCaptaciones, &pa.Totales.TotalColocaciones,
		&pa.Totales.ClientesConCaptaciones, &pa.Totales.ClientesConColocaciones,
		&pa.Desglose.CETotal, &pa.Desglose.CDITotal, &pa.Desglose.PlanMetasTotal, &pa.Desglose.TDTotal,
		&pa.Desglose.PrendarioTotal, &pa.Desglose.HipotecarioTotal, &pa.Desglose.OtrosCreditosTotal, &pa.Desglose.TCTotal,
	)
	if err != nil {
		return ProductAnalysis{}, fmt.Errorf("product analysis: %w", err)
	}
	return pa, nil
}

// ClientByID retrieves one client by its dataset id.
func (r *SQLRepository) ClientByID(ctx context.Context, clienteID string) (Client, error) {
	query := "SELECT " + clientColumns + " FROM clients WHERE cliente_id = $1"
	c, err := scanClient(r.db.QueryRowContext(ctx, query, clienteID))
	if errors.Is(err, sql.ErrNoRows) {
		return Client{}, ErrNotFound
	}
	if err != nil {
		return Client{}, fmt.Errorf("client by id: %w", err)
	}
	return c, nil
}

const clientColumns = `cliente_id, sexo, edad, estado_civil, profesion, nivel_educativo, generacion, hijos,
	sector_publico_flag, antiguedad_laboral, ingreso, nse,
	provincia_default, canton_default, distrito_default, segmento_banca, nivel_valor,
	ce_saldo, cdi_saldo, ce_plan_metas_saldo, td_saldo,
	pr_prendario_saldo, pr_hipotecario_saldo, pr_otros_saldo, tc_saldo,
	resumen, data_quality`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanClient(s scanner) (Client, error) {
	var (
		c           Client
		dataQuality sql.NullString
	)
	err := s.Scan(
		&c.ClienteID, &c.Sexo, &c.Edad, &c.EstadoCivil, &c.Profesion, &c.NivelEducativo, &c.Generacion, &c.Hijos,
		&c.SectorPublicoFlag, &c.AntiguedadLaboral, &c.Ingreso, &c.NSE,
		&c.ProvinciaDefault, &c.CantonDefault, &c.DistritoDefault, &c.SegmentoBanca, &c.NivelValor,
		&c.Balances.CE, &c.Balances.CDI, &c.Balances.CEPlanMetas, &c.Balances.TD,
		&c.Balances.PrPrendario, &c.Balances.PrHipotecario, &c.Balances.PrOtros, &c.Balances.TC,
		&c.Resumen, &dataQuality,
	)
	if err != nil {
		return Client{}, err
	}

	c.DataQuality = []string{}
	if dataQuality.Valid && dataQuality.String != "" {
		if err := json.Unmarshal([]byte(dataQuality.String), &c.DataQuality); err != nil {
			return Client{}, fmt.Errorf("decode data_quality: %w", err)
		}
	}
	return c, nil
}

package portfolio

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/proingenius/aria-banking/internal/clients"
)

// SeedBatchSize is the number of rows written per transaction.
const SeedBatchSize = 100

// ProgressFunc is called after each committed batch.
type ProgressFunc func(done, total int)

// Seed upserts dataset records into the clients table keyed by cliente_id.
// Only the columns the dataset carries are written; others keep their values.
func Seed(ctx context.Context, db *sql.DB, records []clients.Record, progress ProgressFunc) (int, error) {
	query := `
		INSERT INTO clients (id, cliente_id, sexo, edad, ingreso, antiguedad_laboral, sector_publico_flag, resumen, data_quality)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (cliente_id) DO UPDATE SET
			sexo = excluded.sexo,
			edad = excluded.edad,
			ingreso = excluded.ingreso,
			antiguedad_laboral = excluded.antiguedad_laboral,
			sector_publico_flag = excluded.sector_publico_flag,
			resumen = excluded.resumen,
			data_quality = excluded.data_quality,
			updated_at = CURRENT_TIMESTAMP
	`

	written := 0
	for start := 0; start < len(records); start += SeedBatchSize {
		end := min(start+SeedBatchSize, len(records))
		if err := seedBatch(ctx, db, query, records[start:end]); err != nil {
			return written, fmt.Errorf("seed batch at %d: %w", start, err)
		}
		written = end
		if progress != nil {
			progress(written, len(records))
		}
	}
	return written, nil
}

func seedBatch(ctx context.Context, db *sql.DB, query string, batch []clients.Record) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range batch {
		if rec.Perfil == nil {
			continue
		}
		dq := rec.DataQuality
		if dq == nil {
			dq = []string{}
		}
		dataQuality, err := json.Marshal(dq)
		if err != nil {
			return fmt.Errorf("encode data_quality for %s: %w", rec.ClienteID, err)
		}
		p := rec.Perfil
		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), rec.ClienteID, p.Sexo, p.Edad, p.Ingreso, p.AntiguedadLaboral,
			p.SectorPublicoFlag, rec.Resumen, string(dataQuality),
		); err != nil {
			return fmt.Errorf("upsert %s: %w", rec.ClienteID, err)
		}
	}
	return tx.Commit()
}

// schemaCard is the on-disk dataset description.
type schemaCard struct {
	Columns []ColumnMeta `json:"columns"`
}

// ParseSchemaCard decodes a schema card document ({"columns": [...]}).
func ParseSchemaCard(r io.Reader) ([]ColumnMeta, error) {
	var card schemaCard
	if err := json.NewDecoder(r).Decode(&card); err != nil {
		return nil, fmt.Errorf("decode schema card: %w", err)
	}
	return card.Columns, nil
}

// SeedColumnMetadata upserts column descriptions keyed by name.
func SeedColumnMetadata(ctx context.Context, db *sql.DB, columns []ColumnMeta) (int, error) {
	query := `
		INSERT INTO column_metadata (id, name, type, category, description, tables, pii, sensitivity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (name) DO UPDATE SET
			type = excluded.type,
			category = excluded.category,
			description = excluded.description,
			tables = excluded.tables,
			pii = excluded.pii,
			sensitivity = excluded.sensitivity
	`

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	written := 0
	for _, col := range columns {
		if col.Name == "" {
			continue
		}
		var tables interface{}
		if len(col.Tables) > 0 {
			raw, err := json.Marshal(col.Tables)
			if err != nil {
				return 0, fmt.Errorf("encode tables for %s: %w", col.Name, err)
			}
			tables = string(raw)
		}
		pii := 0
		if col.PII {
			pii = 1
		}
		if _, err := tx.ExecContext(ctx, query,
			uuid.NewString(), col.Name, nullString(col.Type), nullString(col.Category),
			nullString(col.Description), tables, pii, nullString(col.Sensitivity),
		); err != nil {
			return 0, fmt.Errorf("upsert column %s: %w", col.Name, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return written, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

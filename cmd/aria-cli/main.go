// Package main provides the ARIA operations CLI entrypoint.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/proingenius/aria-banking/internal/aria"
	"github.com/proingenius/aria-banking/internal/clients"
	"github.com/proingenius/aria-banking/internal/config"
	"github.com/proingenius/aria-banking/internal/insights"
	"github.com/proingenius/aria-banking/internal/llm"
	"github.com/proingenius/aria-banking/internal/observability"
	"github.com/proingenius/aria-banking/internal/portfolio"
)

var (
	// Global flags
	cfgFile    string
	outputJSON bool
	verbose    bool

	// Configuration and logger
	cfg    *config.Config
	logger *observability.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "aria-cli",
	Short: "ARIA CLI for portfolio data and assistant operations",
	Long: `ARIA CLI manages the client portfolio behind the ARIA API.

Use this tool to:
- Apply database migrations and seed the portfolio from the JSONL dataset
- Inspect client statistics and individual records
- Generate client insights and ask the assistant from the terminal

Commands that print data support --json for automation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := cfg.Observability.LogLevel
		if verbose {
			level = "debug"
		} else if level == "info" {
			level = "warn"
		}

		logger = observability.NewLogger(observability.LogConfig{
			Level:       level,
			Format:      "console",
			Output:      os.Stderr,
			ServiceName: "aria-cli",
		})

		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv("CONFIG_PATH"), "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newClientCmd())
	rootCmd.AddCommand(newInsightsCmd())
	rootCmd.AddCommand(newAskCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newMigrateCmd creates the migrate subcommand.
func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending portfolio database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			ui := defaultUI()

			db, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			mm := portfolio.NewMigrationManager(db, cfg.Database.Driver)
			status, err := mm.CheckMigrations(ctx)
			if err != nil {
				return fmt.Errorf("check migrations: %w", err)
			}
			if status.UpToDate {
				ui.Success("Database is up to date (%d migrations applied)", len(status.Applied))
				return nil
			}

			ui.Info("Applying %d migration(s)", len(status.Pending))
			if err := mm.RunMigrations(ctx, status); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			for _, name := range status.Pending {
				ui.Success("Applied %s", name)
			}
			return nil
		},
	}
}

// newSeedCmd creates the seed subcommand.
func newSeedCmd() *cobra.Command {
	var (
		dataPath   string
		schemaCard string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the JSONL client dataset into the portfolio database",
		Long: `Seed migrates the configured SQL database and upserts every valid client record
from the JSONL dataset into the clients table. Malformed lines are skipped and counted.

With --schema-card, column descriptions are loaded into column_metadata as well.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()

			ui := defaultUI()

			if dataPath == "" {
				dataPath = cfg.Data.ClientsPath
			}
			store := clients.NewStore(dataPath, logger)
			records := store.LoadAll(ctx)
			if len(records) == 0 {
				return fmt.Errorf("no client records loaded from %s", dataPath)
			}
			if skipped := store.Skipped(); skipped > 0 {
				ui.Warning("Skipped %d malformed line(s) in %s", skipped, dataPath)
			}

			db, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if _, err := portfolio.NewMigrationManager(db, cfg.Database.Driver).Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			bar := ui.ProgressBar(len(records), "Seeding clients")
			n, err := portfolio.Seed(ctx, db, records, func(done, total int) {
				if bar != nil {
					_ = bar.Set(done)
				}
			})
			if bar != nil {
				_ = bar.Finish()
			}
			if err != nil {
				return fmt.Errorf("seed clients: %w", err)
			}
			ui.Success("Seeded %d clients into %s", n, cfg.Database.Driver)

			columns := 0
			if schemaCard != "" {
				f, err := os.Open(schemaCard)
				if err != nil {
					return fmt.Errorf("open schema card: %w", err)
				}
				defer f.Close()

				meta, err := portfolio.ParseSchemaCard(f)
				if err != nil {
					return fmt.Errorf("parse schema card: %w", err)
				}
				columns, err = portfolio.SeedColumnMetadata(ctx, db, meta)
				if err != nil {
					return fmt.Errorf("seed column metadata: %w", err)
				}
				ui.Success("Loaded %d column descriptions", columns)
			}

			if outputJSON {
				return ui.JSON(map[string]interface{}{
					"seeded":  n,
					"skipped": store.Skipped(),
					"columns": columns,
					"driver":  cfg.Database.Driver,
				})
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "JSONL dataset path (default: data.clients_path)")
	cmd.Flags().StringVar(&schemaCard, "schema-card", "", "JSON schema card with column descriptions")

	return cmd
}

// newStatsCmd creates the stats subcommand.
func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate statistics of the client dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ui := defaultUI()

			store := clients.NewStore(cfg.Data.ClientsPath, logger)
			stats := store.Stats(ctx)

			if outputJSON {
				return ui.JSON(stats)
			}

			ui.Section("Client portfolio")
			ui.KeyValues([][2]string{
				{"Total", fmt.Sprint(stats.Total)},
				{"Sector público", fmt.Sprint(stats.SectorPublico)},
				{"Sector privado", fmt.Sprint(stats.SectorPrivado)},
				{"Mujeres", fmt.Sprint(stats.Mujeres)},
				{"Hombres", fmt.Sprint(stats.Hombres)},
				{"Edad promedio", fmt.Sprint(stats.EdadPromedio)},
				{"Ingreso promedio", fmt.Sprint(stats.IngresoPromedio)},
			})
			if skipped := store.Skipped(); skipped > 0 {
				ui.Warning("%d malformed line(s) skipped", skipped)
			}
			return nil
		},
	}
}

// newClientCmd creates the client subcommand.
func newClientCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "client <id>",
		Short: "Show one client record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ui := defaultUI()

			rec, err := findClient(ctx, args[0])
			if err != nil {
				return err
			}
			if outputJSON {
				return ui.JSON(rec)
			}

			ui.Section(rec.ClienteID)
			ui.KeyValues(profileRows(rec))
			ui.Text("")
			ui.Text(rec.Resumen)
			return nil
		},
	}
}

// newInsightsCmd creates the insights subcommand.
func newInsightsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insights <id>",
		Short: "Generate insights for one client",
		Long: `Insights asks the configured LLM for the four-section client analysis.
Without an LLM key, or when the call fails, the rule-based analysis is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			ui := defaultUI()

			rec, err := findClient(ctx, args[0])
			if err != nil {
				return err
			}

			completer, err := newCompleter()
			if err != nil {
				ui.Warning("LLM unavailable (%v), using rule-based insights", err)
			}

			gen := insights.NewGenerator(insights.GeneratorConfig{
				Completer: completer,
				Logger:    logger,
			})

			stop := ui.Spinner("Generating insights for " + rec.ClienteID)
			in, source := gen.Generate(ctx, rec)
			stop()

			if outputJSON {
				return ui.JSON(map[string]interface{}{
					"cliente_id": rec.ClienteID,
					"source":     source,
					"insights":   in,
				})
			}

			ui.Section("Insights " + rec.ClienteID + " (" + string(source) + ")")
			ui.Text(in.SnapshotEjecutivo)
			ui.Section("Análisis de comportamiento")
			ui.KeyValues([][2]string{
				{"Patrón transaccional", in.AnalisisComportamiento.PatronTransaccional},
				{"Engagement digital", in.AnalisisComportamiento.EngagementDigital},
				{"Tendencias", in.AnalisisComportamiento.Tendencias},
			})
			ui.Section("Oportunidades")
			ui.KeyValues([][2]string{
				{"Productos NBA", strings.Join(in.Oportunidades.ProductosNBA, ", ")},
				{"Cross-sell", in.Oportunidades.CrossSell},
				{"Momentos de vida", in.Oportunidades.MomentosVida},
			})
			ui.Section("Alertas y riesgos")
			ui.KeyValues([][2]string{
				{"Churn", in.AlertasRiesgos.Churn},
				{"Documentos", in.AlertasRiesgos.Documentos},
				{"Compliance", in.AlertasRiesgos.Compliance},
			})
			return nil
		},
	}
}

// newAskCmd creates the ask subcommand.
func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the assistant a question about the portfolio",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			ui := defaultUI()

			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("question is required")
			}
			if n := len([]rune(question)); n > cfg.Chat.MaxMessageLength {
				return fmt.Errorf("question too long: %d characters (max %d)", n, cfg.Chat.MaxMessageLength)
			}

			completer, err := newCompleter()
			if err != nil {
				return err
			}

			store := clients.NewStore(cfg.Data.ClientsPath, logger)
			repo, closeRepo := openRepository(ctx, store)
			defer closeRepo()

			assistant := aria.NewAssistant(completer, repo, logger)

			stop := ui.Spinner("ARIA está pensando")
			answer := assistant.Ask(ctx, question)
			stop()

			if outputJSON {
				return ui.JSON(map[string]interface{}{
					"message":   answer.Message,
					"timestamp": answer.Timestamp,
					"intent":    answer.Intent,
				})
			}

			if verbose {
				ui.Info("intent: %s", answer.Intent)
			}
			ui.Text(answer.Message)
			return nil
		},
	}
}

func openDatabase(ctx context.Context) (*sql.DB, error) {
	if cfg.Database.Driver == config.DriverMemory {
		return nil, fmt.Errorf("database driver is %q; set DATABASE_URL or database.driver to sqlite or postgres", config.DriverMemory)
	}
	db, err := portfolio.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// openRepository returns the SQL repository when a database is configured and
// reachable, otherwise the in-memory one.
func openRepository(ctx context.Context, store *clients.Store) (portfolio.Repository, func()) {
	if cfg.Database.Driver == config.DriverMemory {
		return portfolio.NewMemoryRepository(store), func() {}
	}
	db, err := openDatabase(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Falling back to in-memory portfolio")
		return portfolio.NewMemoryRepository(store), func() {}
	}
	return portfolio.NewSQLRepository(db), func() { _ = db.Close() }
}

func newCompleter() (llm.Completer, error) {
	if !cfg.LLMConfigured() {
		return nil, fmt.Errorf("AI service not configured: set AI_INTEGRATIONS_OPENAI_API_KEY or LLM_PROVIDER=ollama")
	}
	return llm.New(cfg.LLM)
}

func findClient(ctx context.Context, id string) (clients.Record, error) {
	store := clients.NewStore(cfg.Data.ClientsPath, logger)
	rec, ok := store.GetByID(ctx, strings.TrimSpace(id))
	if !ok {
		return clients.Record{}, fmt.Errorf("client %s not found in %s", id, cfg.Data.ClientsPath)
	}
	return rec, nil
}

func profileRows(rec clients.Record) [][2]string {
	p := rec.Perfil
	return [][2]string{
		{"Sector", p.SectorLabel()},
		{"Edad", fmt.Sprintf("%d años", p.Edad)},
		{"Sexo", p.Sexo},
		{"Ingreso", fmt.Sprintf("₡%.2f", p.Ingreso)},
		{"Antigüedad laboral", fmt.Sprintf("%.0f meses", p.AntiguedadLaboral)},
		{"Calidad de datos", strings.Join(rec.DataQuality, ", ")},
	}
}

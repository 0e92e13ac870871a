package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fedops/mdpipe/internal/pkg/application/history"
	"github.com/fedops/mdpipe/internal/pkg/application/pipeline"
)

const appName string = "md-archive"

// md-archive loads the flat timestamp log into postgres so that long term
// history survives log rotation. It is idempotent and safe to run from cron:
// records already archived are skipped on conflict.
func main() {
	appVersion := buildinfo.SourceVersion()

	ctx, log, cleanup := o11y.Init(context.Background(), appName, appVersion, "json")
	defer cleanup()

	ctx = logging.NewContextWithLogger(ctx, log)

	cfg, err := pipeline.LoadConfigurationFromFile(
		env.GetVariableOrDefault(ctx, "MDPIPE_CONFIG_FILE", "/etc/mdpipe/config.yaml"),
	)
	if err != nil {
		log.Error("failed to load configuration", "err", err.Error())
		os.Exit(2)
	}

	logFile := env.GetVariableOrDefault(ctx, "MDPIPE_HISTORY_FILE", cfg.History.LogFile)
	if logFile == "" {
		log.Error("no timestamp log file configured")
		os.Exit(2)
	}

	batchLimit, err := strconv.Atoi(env.GetVariableOrDefault(ctx, "MDPIPE_ARCHIVE_BATCH_LIMIT", "10000"))
	if err != nil || batchLimit < 1 {
		log.Error("archive batch limit must be a positive integer")
		os.Exit(2)
	}

	p, err := connect(ctx, LoadConfiguration(ctx))
	if err != nil {
		log.Error("failed to connect to database", "err", err.Error())
		os.Exit(1)
	}
	defer p.Close()

	err = ensureSchema(ctx, p)
	if err != nil {
		log.Error("failed to ensure schema", "err", err.Error())
		os.Exit(1)
	}

	records, err := history.NewRecorder(logFile).Tail(ctx, batchLimit)
	if err != nil {
		log.Error("failed to read timestamp log", "err", err.Error())
		os.Exit(1)
	}

	log.Debug("number of records in log tail", "count", len(records))

	archived, err := archiveRecords(ctx, p, records)
	if err != nil {
		log.Error("failed to archive records", "err", err.Error())
		os.Exit(1)
	}

	err = vacuum(ctx, p)
	if err != nil {
		log.Error("failed to vacuum table", "err", err.Error())
		os.Exit(1)
	}

	log.Info("done archiving", slog.Int64("archived", archived), slog.Int("seen", len(records)))
}

type Config struct {
	host     string
	user     string
	password string
	port     string
	dbname   string
	sslmode  string
}

func LoadConfiguration(ctx context.Context) Config {
	return Config{
		host:     env.GetVariableOrDefault(ctx, "POSTGRES_HOST", ""),
		user:     env.GetVariableOrDefault(ctx, "POSTGRES_USER", ""),
		password: env.GetVariableOrDefault(ctx, "POSTGRES_PASSWORD", ""),
		port:     env.GetVariableOrDefault(ctx, "POSTGRES_PORT", "5432"),
		dbname:   env.GetVariableOrDefault(ctx, "POSTGRES_DBNAME", "mdpipe"),
		sslmode:  env.GetVariableOrDefault(ctx, "POSTGRES_SSLMODE", "disable"),
	}
}

func (c Config) ConnStr() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", c.user, c.password, c.host, c.port, c.dbname, c.sslmode)
}

func connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	conn, err := pgxpool.New(ctx, cfg.ConnStr())
	if err != nil {
		return nil, err
	}

	err = conn.Ping(ctx)
	if err != nil {
		return nil, err
	}

	return conn, err
}

func ensureSchema(ctx context.Context, p *pgxpool.Pool) error {
	sql := `
		CREATE TABLE IF NOT EXISTS metadata_timestamps (
			observed_at      timestamptz NOT NULL,
			creation_instant timestamptz NOT NULL,
			valid_until      timestamptz NOT NULL,
			PRIMARY KEY (observed_at, creation_instant, valid_until)
		);`

	_, err := p.Exec(ctx, sql)
	return err
}

func archiveRecords(ctx context.Context, p *pgxpool.Pool, records []history.TimestampRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := p.Begin(ctx)
	if err != nil {
		return 0, err
	}

	var archived int64 = 0

	for _, r := range records {
		sql := `
			INSERT INTO metadata_timestamps (observed_at, creation_instant, valid_until)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING;`

		tag, err := tx.Exec(ctx, sql, r.CurrentTime, r.CreationInstant, r.ValidUntil)
		if err != nil {
			tx.Rollback(ctx)
			return 0, err
		}

		archived += tag.RowsAffected()
	}

	return archived, tx.Commit(ctx)
}

func vacuum(ctx context.Context, p *pgxpool.Pool) error {
	_, err := p.Exec(ctx, "VACUUM ANALYZE metadata_timestamps;")
	if err != nil {
		return err
	}

	return nil
}

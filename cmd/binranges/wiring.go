package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"bin-ranges/internal/acquisition"
	"bin-ranges/internal/config"
	"bin-ranges/internal/diff"
	"bin-ranges/internal/integrity"
	"bin-ranges/internal/objectstore"
	s3store "bin-ranges/internal/objectstore/s3"
	"bin-ranges/internal/observability"
	"bin-ranges/internal/pipeline"
	"bin-ranges/internal/promotion"
	"bin-ranges/internal/record"
	"bin-ranges/internal/remote/sftp"
	"bin-ranges/internal/secrets"
	"bin-ranges/internal/storage"
	chstore "bin-ranges/internal/storage/clickhouse"
	"bin-ranges/internal/storage/memory"
	pgstore "bin-ranges/internal/storage/postgres"
)

// stores holds the run ledger and the stage event log.
type stores struct {
	runs   storage.RunStore
	events storage.StageEventStore
}

// createStores picks the ledger backends. Runs go to Postgres; stage events go
// to ClickHouse when configured, otherwise next to the runs.
func createStores(ctx context.Context, cfg config.Storage, logger *slog.Logger) (*stores, func(), error) {
	if cfg.UseMemory || cfg.PostgresDSN == "" {
		if !cfg.UseMemory {
			logger.Warn("no postgres dsn configured, run ledger is kept in memory")
		}
		return &stores{
			runs:   memory.NewRunStore(),
			events: memory.NewStageEventStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if cfg.ClickhouseDSN == "" {
		return &stores{
			runs:   pgstore.NewRunStore(pool),
			events: pgstore.NewStageEventStore(pool),
		}, pool.Close, nil
	}

	chConn, err := chstore.NewConn(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return &stores{
		runs:   pgstore.NewRunStore(pool),
		events: chstore.NewStageEventStore(chConn),
	}, cleanup, nil
}

func loadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

// sftpOpener fetches the key material and dials a new SFTP session on every call.
func sftpOpener(cfg *config.Config, provider secrets.Provider, logger *slog.Logger) acquisition.OpenFunc {
	return func(ctx context.Context) (acquisition.Session, error) {
		creds, err := secrets.LoadSFTPCredentials(ctx, provider,
			cfg.Secrets.PrivateKeyParameter, cfg.Secrets.PassphraseParameter)
		if err != nil {
			return nil, fmt.Errorf("load sftp credentials: %w", err)
		}

		client, err := sftp.Dial(ctx, sftp.Config{
			Host:           cfg.SFTP.Host,
			Port:           cfg.SFTP.Port,
			Username:       cfg.SFTP.Username,
			PrivateKey:     creds.PrivateKey,
			Passphrase:     creds.Passphrase,
			KnownHostsFile: cfg.SFTP.KnownHosts,
			DialTimeout:    cfg.SFTP.DialTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// buildRunner assembles the four stages over one object store.
func buildRunner(cfg *config.Config, objects objectstore.Store, open acquisition.OpenFunc, metrics *observability.Metrics, logger *slog.Logger) *pipeline.Runner {
	acquirer := acquisition.NewSessionAcquirer(open, objects, acquisition.Config{
		Directory:       cfg.Acquisition.Directory,
		Prefix:          cfg.Acquisition.Prefix,
		StagingBucket:   cfg.Buckets.Staging,
		RequiredVersion: cfg.Acquisition.RequiredVersion,
	}, logger)

	detector := diff.NewDetector(objects, diff.Config{
		StagingBucket:  cfg.Buckets.Staging,
		PromotedBucket: cfg.Buckets.Promoted,
		PromotedKey:    cfg.LatestKey,
	}, logger)

	checker := integrity.NewChecker(objects, integrity.Config{
		StagingBucket:        cfg.Buckets.Staging,
		PromotedBucket:       cfg.Buckets.Promoted,
		PromotedKey:          cfg.LatestKey,
		AcceptablePercentage: cfg.Integrity.AcceptablePercentage,
		Workers:              cfg.Integrity.Workers,
		Schema:               record.ForOptions(cfg.Integrity.ExtendedCardClasses),
	}, logger).WithMetrics(metrics)

	committer := promotion.NewCommitter(objects, promotion.Config{
		StagingBucket:  cfg.Buckets.Staging,
		PromotedBucket: cfg.Buckets.Promoted,
		LatestKey:      cfg.LatestKey,
	}, logger)

	return pipeline.NewRunner(acquirer, []pipeline.Stage{detector, checker}, committer, logger).
		WithMetrics(metrics)
}

// pipelineDeps is everything a pipeline run needs, built once per process.
type pipelineDeps struct {
	cfg     *config.Config
	runner  *pipeline.Runner
	stores  *stores
	metrics *observability.Metrics
	cleanup func()
}

func newPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipelineDeps, error) {
	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	objects := s3store.NewStore(awsCfg, cfg.AWS.EndpointURL)
	provider := secrets.NewSSMProvider(awsCfg, cfg.AWS.EndpointURL)

	st, cleanup, err := createStores(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics("", nil)
	runner := buildRunner(cfg, objects, sftpOpener(cfg, provider, logger), metrics, logger).
		WithStores(st.runs, st.events)

	return &pipelineDeps{
		cfg:     cfg,
		runner:  runner,
		stores:  st,
		metrics: metrics,
		cleanup: cleanup,
	}, nil
}

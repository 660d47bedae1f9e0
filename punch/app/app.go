// Package app wires configuration into the database, destinations,
// notifiers and pipeline shared by the CLI, web server and Lambda.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"punchexport.com/punchexport/config"
	dbcore "punchexport.com/punchexport/core"
	"punchexport.com/punchexport/infrastructure/communication"
	"punchexport.com/punchexport/infrastructure/devops"
	"punchexport.com/punchexport/infrastructure/filesystem"
	"punchexport.com/punchexport/infrastructure/transport"
	"punchexport.com/punchexport/punch/core"
	"punchexport.com/punchexport/security"
	"punchexport.com/punchexport/utils"
)

const signingSecretEnv = "PUNCH_SIGNING_SECRET"

type App struct {
	Config *config.Config
	DB     *gorm.DB
	Log    *logrus.Logger
	S3     *filesystem.S3
}

// Setup loads the config file and connects to the staging database.
func Setup(ctx context.Context, configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := utils.NewLogger(cfg.LogLevel)

	db, err := OpenDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &App{Config: cfg, DB: db, Log: log}, nil
}

// DSN returns the configured DSN, or resolves the SSM environment entry
// against the configured schema (the client name when no schema is set).
func DSN(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.Database.DSN != "" {
		return cfg.Database.DSN, nil
	}
	client, err := devops.NewSSMClient(ctx)
	if err != nil {
		return "", err
	}
	schema := cfg.Database.Schema
	if schema == "" {
		schema = dbcore.SchemaName(cfg.Client)
	}
	return devops.ResolveDSN(ctx, client, cfg.Database.SSMEnvironment, schema)
}

// MigrateClients runs the migrations against each client schema on the
// server of the configured SSM environment, sharing one pool.
func MigrateClients(ctx context.Context, cfg *config.Config, clients []string) error {
	if cfg.Database.SSMEnvironment == "" {
		return fmt.Errorf("database.ssmEnvironment is required to migrate client schemas")
	}
	client, err := devops.NewSSMClient(ctx)
	if err != nil {
		return err
	}
	dsn, err := devops.ResolveDSN(ctx, client, cfg.Database.SSMEnvironment, "")
	if err != nil {
		return err
	}

	dm, err := dbcore.New(dsn, 4)
	if err != nil {
		return err
	}
	defer dm.Close()
	dm.LogLevel = dbcore.ParseLogLevel(cfg.Database.LogLevel)

	for _, name := range clients {
		if err := dm.Exec(ctx, name, dbcore.Migrate); err != nil {
			return fmt.Errorf("client %s: %w", name, err)
		}
	}
	return nil
}

func OpenDB(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	dsn, err := DSN(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return dbcore.ConnectDB(dsn, dbcore.ParseLogLevel(cfg.Database.LogLevel))
}

func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Destinations builds the warehouse registry. HTTP destinations get a
// short-lived token when PUNCH_SIGNING_SECRET is set.
func (a *App) Destinations(ctx context.Context) (*transport.Registry, error) {
	opts := transport.Options{S3: a.S3}
	if secret := os.Getenv(signingSecretEnv); secret != "" {
		token, err := security.CreateIdentityToken(&security.Identity{
			Name:     "punchexport",
			Client:   a.Config.Client,
			Provider: "exporter",
		}, secret, time.Hour)
		if err != nil {
			return nil, fmt.Errorf("failed to create destination token: %w", err)
		}
		opts.Token = token
	}
	return transport.NewRegistry(ctx, a.Config.Destinations, opts)
}

func (a *App) Notifier(ctx context.Context) (core.Notifier, error) {
	var notifiers communication.Notifiers
	if a.Config.Notify.Slack {
		notifiers = append(notifiers, communication.ConnectSlack())
	}
	if email := a.Config.Notify.Email; email != nil {
		e, err := communication.ConnectEmail(ctx, email.From, email.To)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, e)
	}
	return notifiers, nil
}

func (a *App) Pipeline(ctx context.Context) (*core.Pipeline, error) {
	destinations, err := a.Destinations(ctx)
	if err != nil {
		return nil, err
	}
	notifier, err := a.Notifier(ctx)
	if err != nil {
		return nil, err
	}
	log := a.Log.WithField("client", a.Config.Client)
	return core.NewPipeline(a.Config.PipelineOptions(), a.DB, destinations, notifier, log), nil
}

// Open reads a local path or s3:// URI, reusing the app's S3 client.
func (a *App) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if filesystem.IsS3URI(path) && a.S3 == nil {
		s3Client, err := filesystem.NewS3(ctx)
		if err != nil {
			return nil, err
		}
		a.S3 = s3Client
	}
	return filesystem.Open(ctx, path, a.S3)
}

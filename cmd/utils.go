package cmd

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"anomaly-trainer/internal/config"
	"anomaly-trainer/internal/database"
	apperrors "anomaly-trainer/internal/errors"
	"anomaly-trainer/internal/messaging"
	"anomaly-trainer/internal/storage"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	err := godotenv.Load(configPath)
	if err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

// InitLogger installs the default slog logger. Unknown levels fall back to
// info, unknown formats to json.
func InitLogger(level, format string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func CreateDatabase(cfg config.Config) (*gorm.DB, error) {
	db, err := database.NewDatabase(cfg.DatabaseURI)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.PersistenceFailed, err, "error connecting to database")
	}

	if cfg.RunMigrations {
		if err := database.GetMigrator(db).Migrate(); err != nil {
			database.Close(db)
			return nil, apperrors.Wrap(apperrors.PersistenceFailed, err, "error running migrations")
		}
		slog.Info("database migrations applied")
	}

	return db, nil
}

func CreateStorageProvider(cfg config.Config) (storage.Provider, error) {
	switch cfg.StorageBackend {
	case config.StorageLocal:
		provider, err := storage.NewLocalProvider(cfg.LocalStorageRoot)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ConfigInvalid, err, "error creating local storage")
		}
		return provider, nil
	default:
		provider, err := storage.NewS3Provider(storage.S3ClientConfig{
			Endpoint:        cfg.S3EndpointURL,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ConfigInvalid, err, "error creating s3 storage")
		}
		return provider, nil
	}
}

// CreateDatasetLoader reads the dataset from DATASET_PATH when set and from
// the object store otherwise.
func CreateDatasetLoader(cfg config.Config, provider storage.Provider) (*storage.DatasetLoader, storage.DatasetSource, error) {
	if cfg.DatasetPath != "" {
		return storage.NewFileDatasetLoader(cfg.DatasetPath)
	}
	source := storage.DatasetSource{Bucket: cfg.BucketName, Key: cfg.DatasetKey()}
	return storage.NewDatasetLoader(provider), source, nil
}

func CreatePublisher(cfg config.Config) (messaging.Publisher, error) {
	switch cfg.ProgressTransport {
	case config.TransportRabbitMQ:
		publisher, err := messaging.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.ProgressQueue)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.PublishFailed, err, "error connecting to rabbitmq")
		}
		return publisher, nil
	case config.TransportConsole:
		return messaging.NewConsolePublisher(os.Stderr, fmt.Sprintf("training %s", cfg.Guid)), nil
	default:
		creds, err := messaging.ParseVcapServices(cfg.VcapServices)
		if err != nil {
			return nil, err
		}
		return messaging.NewRestPublisher(messaging.RestPublisherConfig{
			Credentials: creds,
			Marker:      cfg.ProtocolMarker,
			Route: messaging.QueueRoute{
				MessageQueue: cfg.MessageQueue,
				PathPrefix:   cfg.ApiUrl1,
				Queue:        cfg.ProgressQueue,
				PathSuffix:   cfg.ApiUrl2,
			},
			Timeout: cfg.HTTPTimeout,
		}), nil
	}
}

// ResolveJobMetadata fills plant, node id and node parameters from the
// provisioned model row when the environment leaves them empty.
func ResolveJobMetadata(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	if cfg.Plant != "" && cfg.NodeId != "" {
		return nil
	}

	meta, err := database.GetModelMetadata(ctx, db, cfg.Guid)
	if err != nil {
		return err
	}

	if cfg.Plant == "" {
		cfg.Plant = meta.Plant
	}
	if cfg.NodeId == "" {
		cfg.NodeId = meta.NodeId
	}
	if cfg.NodeParameters == "" {
		cfg.NodeParameters = meta.NodeParameters
	}
	return nil
}

// WriteErrorMarker leaves a file for the workflow engine describing why the
// job failed. Nothing is written when path is empty.
func WriteErrorMarker(path string, cause error) {
	if path == "" {
		return
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		slog.Error("error creating error marker directory", "path", path, "error", err)
		return
	}

	content := fmt.Sprintf("kind: %s\nerror: %v\n", apperrors.KindOf(cause), cause)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		slog.Error("error writing error marker", "path", path, "error", err)
	}
}

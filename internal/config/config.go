package config

import (
	"fmt"
	"strings"
	"time"

	"anomaly-trainer/internal/core/types"
	apperrors "anomaly-trainer/internal/errors"

	"github.com/caarlos0/env/v11"
)

const (
	StorageS3    = "s3"
	StorageLocal = "local"

	TransportRest     = "rest"
	TransportRabbitMQ = "rabbitmq"
	TransportConsole  = "console"
)

// Config is the environment of one training job, as set by the workflow
// engine that launches it.
type Config struct {
	Guid           string `env:"GUID"`
	Plant          string `env:"PLANT"`
	NodeId         string `env:"NODE_ID"`
	NodeParameters string `env:"NODE_PARAMETERS"`
	Algorithm      string `env:"ALGORITHM"`

	StorageBackend   string `env:"STORAGE_BACKEND" envDefault:"s3"`
	BucketName       string `env:"BUCKET_NAME" envDefault:"anomaly"`
	TrainingDataKey  string `env:"TRAINING_DATA_KEY" envDefault:"anomaly/trainingData/{guid}"`
	DatasetPath      string `env:"DATASET_PATH"`
	LocalStorageRoot string `env:"LOCAL_STORAGE_ROOT" envDefault:"./data"`
	ArtifactPrefix   string `env:"ARTIFACT_PREFIX" envDefault:"anomaly/model/"`
	MetadataPrefix   string `env:"METADATA_PREFIX" envDefault:"anomaly/metadata/"`

	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`

	DatabaseURI   string `env:"DATABASE_URI"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"false"`

	ProgressTransport string        `env:"PROGRESS_TRANSPORT" envDefault:"rest"`
	VcapServices      string        `env:"VCAP_SERVICES"`
	ProtocolMarker    string        `env:"MESSAGING_PROTOCOL_MARKER" envDefault:"httprest"`
	MessageQueue      string        `env:"message_queue"`
	ApiUrl1           string        `env:"api_url1" envDefault:"queues/"`
	ApiUrl2           string        `env:"api_url2" envDefault:"messages"`
	ProgressQueue     string        `env:"PROGRESS_QUEUE_NAME" envDefault:"PredictiveAnalyticsTrainingPercentage"`
	RabbitMQURL       string        `env:"RABBITMQ_URL"`
	HTTPTimeout       time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`

	ErrorMarkerPath string `env:"ERROR_MARKER_PATH"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string `env:"LOG_FORMAT" envDefault:"json"`

	Contamination float64 `env:"CONTAMINATION" envDefault:"0.05"`
	RandomSeed    int64   `env:"RANDOM_SEED" envDefault:"123"`
}

// Load parses the process environment. Parse errors are reported as
// ConfigInvalid.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, apperrors.Wrap(apperrors.ConfigInvalid, err, "error parsing environment")
	}
	return cfg, nil
}

func (c Config) Algorithms() []string {
	return types.ParseAlgorithmList(c.Algorithm)
}

// DatasetKey expands the {guid} placeholder of TrainingDataKey.
func (c Config) DatasetKey() string {
	return strings.ReplaceAll(c.TrainingDataKey, "{guid}", c.Guid)
}

func (c Config) Job() types.TrainingJob {
	return types.TrainingJob{
		Guid:           c.Guid,
		Plant:          c.Plant,
		NodeId:         c.NodeId,
		NodeParameters: c.NodeParameters,
		Algorithms:     c.Algorithms(),
	}
}

func (c Config) Validate() error {
	var problems []string

	if c.Guid == "" {
		problems = append(problems, "GUID is required")
	}
	if len(c.Algorithms()) == 0 {
		problems = append(problems, "ALGORITHM must list at least one algorithm")
	}
	if c.DatabaseURI == "" {
		problems = append(problems, "DATABASE_URI is required")
	}

	switch c.StorageBackend {
	case StorageS3, StorageLocal:
	default:
		problems = append(problems, fmt.Sprintf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}

	switch c.ProgressTransport {
	case TransportRest:
		if c.VcapServices == "" {
			problems = append(problems, "VCAP_SERVICES is required for the rest transport")
		}
	case TransportRabbitMQ:
		if c.RabbitMQURL == "" {
			problems = append(problems, "RABBITMQ_URL is required for the rabbitmq transport")
		}
	case TransportConsole:
	default:
		problems = append(problems, fmt.Sprintf("unknown PROGRESS_TRANSPORT %q", c.ProgressTransport))
	}

	if c.Contamination <= 0 || c.Contamination > 0.5 {
		problems = append(problems, fmt.Sprintf("CONTAMINATION must be in (0, 0.5], got %v", c.Contamination))
	}

	if len(problems) > 0 {
		return apperrors.New(apperrors.ConfigInvalid, strings.Join(problems, "; "))
	}
	return nil
}

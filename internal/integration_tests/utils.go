//go:build integration
// +build integration

package integrationtests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"anomaly-trainer/internal/database"
	"anomaly-trainer/internal/storage"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/minio"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	bucketName = "anomaly"

	minioUsername = "admin"
	minioPassword = "password"
)

func createDB(t *testing.T) *gorm.DB {
	uri := setupPostgresContainer(t, context.Background())
	db, err := database.NewDatabase(uri)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	require.NoError(t, database.GetMigrator(db).Migrate())

	return db
}

func createS3Provider(t *testing.T, ctx context.Context) *storage.S3Provider {
	endpoint := setupMinioContainer(t, ctx)

	provider, err := storage.NewS3Provider(storage.S3ClientConfig{
		Endpoint:        endpoint,
		Region:          "us-east-1",
		AccessKeyID:     minioUsername,
		SecretAccessKey: minioPassword,
	})
	require.NoError(t, err)

	require.NoError(t, provider.CreateBucket(ctx, bucketName))
	return provider
}

// provisionJob creates the rows the provisioning service would create before
// launching a training job.
func provisionJob(t *testing.T, db *gorm.DB, jobGuid string, algorithms ...string) map[string]string {
	require.NoError(t, db.Create(&database.PredictiveModel{
		Guid:           jobGuid,
		Plant:          "P100",
		NodeId:         "N7",
		NodeParameters: datatypes.JSON(`{"sensor":"vibration"}`),
		CreationTime:   time.Now().UTC(),
	}).Error)

	modelGuids := make(map[string]string)
	for _, algo := range algorithms {
		guid := fmt.Sprintf("%s-%s", jobGuid, algo)
		require.NoError(t, db.Create(&database.AnomalyModel{
			Guid:           guid,
			AnomalyGuid:    jobGuid,
			Algorithm:      algo,
			TrainingStatus: database.StatusPending,
		}).Error)
		modelGuids[algo] = guid
	}
	return modelGuids
}

// uploadDataset writes a dataset of mostly clustered sensor readings with a
// few far outliers.
func uploadDataset(t *testing.T, ctx context.Context, provider storage.Provider, key string) {
	rng := rand.New(rand.NewSource(7))

	var sb strings.Builder
	sb.WriteString("timestamp,temperature,pressure,vibration\n")
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&sb, "2026-01-01T00:%02d:%02d,%.4f,%.4f,%.4f\n", i/60, i%60,
			20+rng.NormFloat64(), 101+rng.NormFloat64(), 0.5+0.1*rng.NormFloat64())
	}
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&sb, "2026-01-01T01:00:%02d,%.4f,%.4f,%.4f\n", i, 80.0+float64(i), 150.0, 9.0)
	}

	require.NoError(t, provider.PutObject(ctx, bucketName, key, strings.NewReader(sb.String())))
}

func setupMinioContainer(t *testing.T, ctx context.Context) string {
	minioContainer, err := minio.Run(
		ctx,
		"minio/minio:RELEASE.2024-01-16T16-07-38Z",
		minio.WithUsername(minioUsername),
		minio.WithPassword(minioPassword),
	)
	require.NoError(t, err, "Failed to start MinIO container")

	t.Cleanup(func() {
		err := minioContainer.Terminate(context.Background())
		require.NoError(t, err, "Failed to terminate MinIO container")
	})

	connStr, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err, "Failed to get MinIO connection string")

	return "http://" + connStr
}

func setupPostgresContainer(t *testing.T, ctx context.Context) string {
	dbName, dbUser, dbPassword := "test_db", "test_user", "test_password"

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	t.Cleanup(func() {
		err := postgresContainer.Terminate(context.Background())
		require.NoError(t, err, "Failed to terminate PostgreSQL container")
	})

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get PostgreSQL connection string")

	return connStr
}

func setupRabbitMQContainer(t *testing.T, ctx context.Context) string {
	rabbitmqContainer, err := rabbitmq.Run(ctx, "rabbitmq:3.11-management")
	require.NoError(t, err, "Failed to start RabbitMQ container")

	t.Cleanup(func() {
		err := rabbitmqContainer.Terminate(context.Background())
		require.NoError(t, err, "Failed to terminate RabbitMQ container")
	})

	connStr, err := rabbitmqContainer.AmqpURL(ctx)
	require.NoError(t, err, "Failed to get RabbitMQ AMQP URL")

	return connStr
}

func httpRequest(api http.Handler, method, endpoint string, payload any, dest any) error {
	var body *bytes.Reader
	if payload != nil {
		requestBody, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(requestBody)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, endpoint, body)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	api.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		return fmt.Errorf("expected status code 200, got %d: %v", rr.Code, rr.Body.String())
	}

	if dest != nil {
		if err := json.Unmarshal(rr.Body.Bytes(), dest); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

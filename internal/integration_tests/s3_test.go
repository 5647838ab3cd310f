//go:build integration
// +build integration

package integrationtests

import (
	"context"
	"strings"
	"testing"

	"anomaly-trainer/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Provider(t *testing.T) {
	ctx := context.Background()
	provider := createS3Provider(t, ctx)

	require.NoError(t, provider.CreateBucket(ctx, bucketName), "creating an existing bucket is not an error")

	require.NoError(t, provider.PutObject(ctx, bucketName, "anomaly/model/job-1_knn", strings.NewReader("first")))
	require.NoError(t, provider.PutObject(ctx, bucketName, "anomaly/model/job-1_knn", strings.NewReader("second")))
	require.NoError(t, provider.PutObject(ctx, bucketName, "anomaly/model/job-2_knn", strings.NewReader("other")))

	data, err := provider.GetObject(ctx, bucketName, "anomaly/model/job-1_knn")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	_, err = provider.GetObject(ctx, bucketName, "anomaly/model/missing")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)

	objects, err := provider.ListObjects(ctx, bucketName, "anomaly/model/job-1")
	require.NoError(t, err)
	assert.Equal(t, []storage.Object{{Name: "anomaly/model/job-1_knn", Size: 6}}, objects)
}

func TestS3DatasetLoader(t *testing.T) {
	ctx := context.Background()
	provider := createS3Provider(t, ctx)

	uploadDataset(t, ctx, provider, "anomaly/trainingData/job-1")

	loader := storage.NewDatasetLoader(provider)
	table, err := loader.Load(ctx, storage.DatasetSource{Bucket: bucketName, Key: "anomaly/trainingData/job-1"})
	require.NoError(t, err)
	assert.Equal(t, 205, table.NumRows())
	assert.Equal(t, 4, table.NumColumns())

	_, err = loader.Load(ctx, storage.DatasetSource{Bucket: bucketName, Key: "anomaly/trainingData/job-2"})
	assert.Error(t, err)
}

package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "anomaly-trainer/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTable(t *testing.T) {
	table, err := ParseTable(strings.NewReader("\xEF\xBB\xBFtemp,pressure,tag\n1.5,20,a\n2.5,21,b\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"temp", "pressure", "tag"}, table.Columns)
	assert.Equal(t, 2, table.NumRows())
	assert.Equal(t, []string{"2.5", "21", "b"}, table.Rows[1])
}

func TestParseTable_Malformed(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"header only":  "a,b,c\n",
		"ragged rows":  "a,b\n1,2\n3\n",
		"broken quote": "a,b\n\"1,2\n",
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTable(strings.NewReader(input))
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.DataMalformed)
		})
	}
}

func TestDatasetLoader_Load(t *testing.T) {
	provider, _ := setupTestProvider(t)
	ctx := context.Background()

	source := DatasetSource{Bucket: "anomaly", Key: "anomaly/trainingData/job-1"}
	require.NoError(t, provider.PutObject(ctx, source.Bucket, source.Key, bytes.NewReader([]byte("x,y\n1,2\n3,4\n"))))

	table, err := NewDatasetLoader(provider).Load(ctx, source)
	require.NoError(t, err)
	assert.Equal(t, 2, table.NumRows())
	assert.Equal(t, 2, table.NumColumns())
}

func TestDatasetLoader_Missing(t *testing.T) {
	provider, _ := setupTestProvider(t)

	_, err := NewDatasetLoader(provider).Load(context.Background(), DatasetSource{Bucket: "anomaly", Key: "nope"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.DataUnavailable)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestFileDatasetLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.csv")
	require.NoError(t, os.WriteFile(path, []byte("x\n1\n2\n3\n"), 0o644))

	loader, source, err := NewFileDatasetLoader(path)
	require.NoError(t, err)

	table, err := loader.Load(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, 3, table.NumRows())
}

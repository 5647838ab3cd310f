package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"anomaly-trainer/internal/core/types"
	apperrors "anomaly-trainer/internal/errors"
)

// DatasetSource locates a training dataset inside a Provider. For the local
// backend Bucket is a directory below the provider root.
type DatasetSource struct {
	Bucket string
	Key    string
}

func (s DatasetSource) String() string {
	return fmt.Sprintf("%s/%s", s.Bucket, s.Key)
}

type DatasetLoader struct {
	provider Provider
}

func NewDatasetLoader(provider Provider) *DatasetLoader {
	return &DatasetLoader{provider: provider}
}

func (l *DatasetLoader) Load(ctx context.Context, source DatasetSource) (*types.Table, error) {
	data, err := l.provider.GetObject(ctx, source.Bucket, source.Key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, apperrors.Wrapf(apperrors.DataUnavailable, err, "dataset %s does not exist", source)
		}
		return nil, apperrors.Wrapf(apperrors.DataUnavailable, err, "dataset %s is unreadable", source)
	}

	table, err := ParseTable(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing dataset %s: %w", source, err)
	}

	slog.Info("dataset loaded", "source", source.String(), "rows", table.NumRows(), "columns", table.NumColumns())

	return table, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseTable reads delimited text with a header row into a rectangular table.
func ParseTable(r io.Reader) (*types.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.DataUnavailable, err, "error reading dataset")
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.New(apperrors.DataMalformed, "dataset is empty")
		}
		return nil, apperrors.Wrap(apperrors.DataMalformed, err, "invalid header row")
	}

	table := &types.Table{Columns: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.Wrapf(apperrors.DataMalformed, err, "invalid row %d", len(table.Rows)+1)
		}
		table.Rows = append(table.Rows, record)
	}

	if len(table.Rows) == 0 {
		return nil, apperrors.New(apperrors.DataMalformed, "dataset has a header but no rows")
	}

	return table, nil
}

// NewFileDatasetLoader serves a dataset from a plain filesystem path through a
// LocalProvider rooted at the file's directory.
func NewFileDatasetLoader(path string) (*DatasetLoader, DatasetSource, error) {
	provider, err := NewLocalProvider(filepath.Dir(path))
	if err != nil {
		return nil, DatasetSource{}, err
	}
	return NewDatasetLoader(provider), DatasetSource{Key: filepath.Base(path)}, nil
}

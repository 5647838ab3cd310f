package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	apperrors "anomaly-trainer/internal/errors"

	"gopkg.in/yaml.v2"
)

const DefaultMetadataPrefix = "anomaly/metadata/"

type AlgorithmSummary struct {
	Algorithm  string `yaml:"algorithm"`
	ModelGuid  string `yaml:"model_guid"`
	MeanNormal string `yaml:"mean_normal"`
	StdNormal  string `yaml:"std_normal"`
	Artifact   string `yaml:"artifact"`
}

// JobManifest is the side-channel description of a finished job read by
// downstream consumers that do not query the relational store.
type JobManifest struct {
	Guid           string             `yaml:"guid"`
	Plant          string             `yaml:"plant"`
	NodeId         string             `yaml:"node_id"`
	NodeParameters string             `yaml:"node_parameters,omitempty"`
	Algorithms     []string           `yaml:"algorithms"`
	Results        []AlgorithmSummary `yaml:"results"`
}

func ManifestKey(prefix, jobGuid string) string {
	return fmt.Sprintf("%s%s.yaml", prefix, jobGuid)
}

type ManifestWriter struct {
	provider Provider
	bucket   string
	prefix   string
}

func NewManifestWriter(provider Provider, bucket, prefix string) *ManifestWriter {
	return &ManifestWriter{provider: provider, bucket: bucket, prefix: prefix}
}

func (w *ManifestWriter) Write(ctx context.Context, manifest JobManifest) (ArtifactRef, error) {
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return ArtifactRef{}, apperrors.Wrap(apperrors.PersistenceFailed, err, "error encoding job manifest")
	}

	ref := ArtifactRef{Bucket: w.bucket, Key: ManifestKey(w.prefix, manifest.Guid)}
	if err := w.provider.PutObject(ctx, ref.Bucket, ref.Key, bytes.NewReader(data)); err != nil {
		return ArtifactRef{}, apperrors.Wrapf(apperrors.PersistenceFailed, err, "error saving job manifest %s", ref)
	}

	slog.Info("job manifest saved", "manifest", ref.String(), "job_guid", manifest.Guid)
	return ref, nil
}

func (w *ManifestWriter) Read(ctx context.Context, jobGuid string) (JobManifest, error) {
	data, err := w.provider.GetObject(ctx, w.bucket, ManifestKey(w.prefix, jobGuid))
	if err != nil {
		return JobManifest{}, fmt.Errorf("error reading manifest for job %s: %w", jobGuid, err)
	}

	var manifest JobManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return JobManifest{}, fmt.Errorf("error decoding manifest for job %s: %w", jobGuid, err)
	}
	return manifest, nil
}

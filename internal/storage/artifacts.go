package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	apperrors "anomaly-trainer/internal/errors"
)

const DefaultArtifactPrefix = "anomaly/model/"

// ArtifactRef is the opaque location of a serialized model.
type ArtifactRef struct {
	Bucket string
	Key    string
}

func (r ArtifactRef) String() string {
	return r.Bucket + "/" + r.Key
}

// ParseArtifactRef is the inverse of ArtifactRef.String.
func ParseArtifactRef(ref string) (ArtifactRef, error) {
	bucket, key, ok := strings.Cut(ref, "/")
	if !ok || key == "" {
		return ArtifactRef{}, fmt.Errorf("invalid artifact reference %q", ref)
	}
	return ArtifactRef{Bucket: bucket, Key: key}, nil
}

// ArtifactKey derives the storage key of a job's model for one algorithm. The
// key is stable across retries so a rerun overwrites instead of accumulating.
func ArtifactKey(prefix, jobGuid, algorithm string) string {
	return fmt.Sprintf("%s%s_%s", prefix, jobGuid, algorithm)
}

type ArtifactStore struct {
	provider Provider
	bucket   string
	prefix   string
}

func NewArtifactStore(provider Provider, bucket, prefix string) *ArtifactStore {
	return &ArtifactStore{provider: provider, bucket: bucket, prefix: prefix}
}

func (s *ArtifactStore) Ref(jobGuid, algorithm string) ArtifactRef {
	return ArtifactRef{Bucket: s.bucket, Key: ArtifactKey(s.prefix, jobGuid, algorithm)}
}

func (s *ArtifactStore) Save(ctx context.Context, jobGuid, algorithm string, artifact []byte) (ArtifactRef, error) {
	ref := s.Ref(jobGuid, algorithm)

	if err := s.provider.PutObject(ctx, ref.Bucket, ref.Key, bytes.NewReader(artifact)); err != nil {
		return ArtifactRef{}, apperrors.Wrapf(apperrors.PersistenceFailed, err, "error saving artifact %s", ref)
	}

	slog.Info("model artifact saved", "artifact", ref.String(), "bytes", len(artifact))
	return ref, nil
}

func (s *ArtifactStore) Load(ctx context.Context, ref ArtifactRef) ([]byte, error) {
	data, err := s.provider.GetObject(ctx, ref.Bucket, ref.Key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, apperrors.Wrapf(apperrors.DataUnavailable, err, "artifact %s does not exist", ref)
		}
		return nil, apperrors.Wrapf(apperrors.DataUnavailable, err, "error loading artifact %s", ref)
	}
	return data, nil
}

// List returns the artifacts stored for a job.
func (s *ArtifactStore) List(ctx context.Context, jobGuid string) ([]ArtifactRef, error) {
	objects, err := s.provider.ListObjects(ctx, s.bucket, s.prefix+jobGuid+"_")
	if err != nil {
		return nil, fmt.Errorf("error listing artifacts for job %s: %w", jobGuid, err)
	}

	refs := make([]ArtifactRef, 0, len(objects))
	for _, obj := range objects {
		refs = append(refs, ArtifactRef{Bucket: s.bucket, Key: obj.Name})
	}
	return refs, nil
}

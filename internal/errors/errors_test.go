package errors_test

import (
	"errors"
	"fmt"
	"testing"

	apperrors "anomaly-trainer/internal/errors"

	"github.com/stretchr/testify/assert"
)

func TestKindMatching(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("notify progress: %w", apperrors.Wrap(apperrors.AuthFailed, cause, "token exchange failed"))

	assert.ErrorIs(t, err, apperrors.AuthFailed)
	assert.NotErrorIs(t, err, apperrors.PublishFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, apperrors.AuthFailed, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), "AuthFailed: token exchange failed: connection refused")
}

func TestKindOf(t *testing.T) {
	t.Run("Unclassified", func(t *testing.T) {
		assert.Equal(t, apperrors.Kind(""), apperrors.KindOf(errors.New("boom")))
		assert.Equal(t, apperrors.Kind(""), apperrors.KindOf(nil))
	})

	t.Run("BareKind", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", apperrors.DataMalformed)
		assert.Equal(t, apperrors.DataMalformed, apperrors.KindOf(err))
	})

	t.Run("OutermostWins", func(t *testing.T) {
		inner := apperrors.New(apperrors.DataUnavailable, "missing object")
		outer := apperrors.Wrap(apperrors.PersistenceFailed, inner, "write manifest")
		assert.Equal(t, apperrors.PersistenceFailed, apperrors.KindOf(outer))
		assert.ErrorIs(t, outer, apperrors.DataUnavailable)
	})
}

package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"reviewhub/internal/apperr"
)

func TestKindOf_WrappedChain(t *testing.T) {
	err := fmt.Errorf("list reviews: %w", apperr.Forbidden())
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))
	assert.True(t, errors.Is(err, apperr.Forbidden()))
	assert.False(t, errors.Is(err, apperr.NotFound("review")))
}

func TestKindOf_PlainErrorIsInternal(t *testing.T) {
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(errors.New("boom")))
	assert.False(t, apperr.IsKind(nil, apperr.KindInternal))
}

func TestError_MessageCarriesField(t *testing.T) {
	err := apperr.Conversion("QrLocationDTO", "cityName", "required field has no source")
	assert.Equal(t, "conversion: QrLocationDTO.cityName: required field has no source", err.Error())

	cause := errors.New("dup")
	c := apperr.Constraint("company slug already exists", cause)
	assert.ErrorIs(t, c, cause)
}

func TestForbidden_DoesNotLeakDetail(t *testing.T) {
	assert.Equal(t, "authorization: access denied", apperr.Forbidden().Error())
}

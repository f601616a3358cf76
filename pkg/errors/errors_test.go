package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesTemplate(t *testing.T) {
	err := Clone(ErrOverpayment, "disbursement of 12000 exceeds remaining 10000")

	assert.True(t, errors.Is(err, ErrOverpayment))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, http.StatusUnprocessableEntity, err.Status)
}

func TestIsThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("approve case: %w", Clone(ErrInvalidTransition, "case already approved"))

	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(sql.ErrConnDone)

	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.True(t, errors.Is(appErr, sql.ErrConnDone))
}

func TestInternalKeepsCause(t *testing.T) {
	appErr := Internal(sql.ErrTxDone, "failed to record disbursement")

	assert.Equal(t, "failed to record disbursement: "+sql.ErrTxDone.Error(), appErr.Error())
	assert.True(t, errors.Is(appErr, ErrInternal))
}

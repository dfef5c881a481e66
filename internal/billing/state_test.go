package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odyssey-erp/gymsuite/internal/shared"
)

func TestValidateTransition(t *testing.T) {
	allowed := map[Status][]Status{
		StatusDraft:     {StatusActive},
		StatusActive:    {StatusSuspended, StatusExpired, StatusCancelled},
		StatusSuspended: {StatusActive, StatusCancelled},
		StatusExpired:   {StatusActive},
	}
	all := []Status{StatusDraft, StatusActive, StatusSuspended, StatusExpired, StatusCancelled}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			err := ValidateTransition(from, to)
			if want {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", from, to)
				assert.ErrorIs(t, err, shared.ErrValidation)
			}
		}
	}
}

func TestCheckCapacity(t *testing.T) {
	err := CheckCapacity(2, 2)
	assert.ErrorIs(t, err, ErrShiftFull)
	assert.ErrorIs(t, err, shared.ErrBusinessRule)
	assert.NoError(t, CheckCapacity(2, 1))
	assert.NoError(t, CheckCapacity(0, 500))
}

func TestStatusOccupying(t *testing.T) {
	assert.True(t, StatusDraft.Occupying())
	assert.True(t, StatusSuspended.Occupying())
	assert.False(t, StatusExpired.Occupying())
	assert.False(t, StatusCancelled.Occupying())
}

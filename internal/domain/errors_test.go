package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("competitor", "2007HABE01")

	assert.Equal(t, `competitor "2007HABE01": not found`, err.Error())
	assert.True(t, errors.Is(err, ErrNotFound), "Should unwrap to ErrNotFound")

	wrapped := fmt.Errorf("lookup: %w", err)
	var nf *NotFoundError
	assert.True(t, errors.As(wrapped, &nf))
	assert.Equal(t, "competitor", nf.Kind)
}

func TestDuplicateIDError(t *testing.T) {
	err := NewDuplicateIDError("event", "333")

	assert.Equal(t, `event "333": duplicate id`, err.Error())
	assert.True(t, errors.Is(err, ErrDuplicateID))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestMalformedRecordError(t *testing.T) {
	t.Run("single field", func(t *testing.T) {
		err := NewMalformedRecordError("attempt")
		err.AddField("event_id: required")

		assert.Equal(t, "malformed record: attempt: event_id: required", err.Error())
		assert.True(t, err.HasFields())
		assert.True(t, errors.Is(err, ErrMalformedRecord))
	})

	t.Run("with line and several fields", func(t *testing.T) {
		err := NewMalformedRecordError("competitor")
		err.Line = 12
		err.AddField("id: required")
		err.AddField("name: required")

		assert.Equal(t, "malformed record: competitor at line 12: id: required, name: required", err.Error())
		assert.Len(t, err.Fields, 2)
	})

	t.Run("empty", func(t *testing.T) {
		err := NewMalformedRecordError("attempt")
		assert.False(t, err.HasFields())
	})
}

func TestUnknownCompetitorsError(t *testing.T) {
	err := &UnknownCompetitorsError{IDs: []string{"1999NOPE01", "2000NOPE02"}}

	assert.Equal(t, "unknown competitors: 1999NOPE01, 2000NOPE02", err.Error())
	assert.True(t, errors.Is(err, ErrUnknownCompetitors))
}

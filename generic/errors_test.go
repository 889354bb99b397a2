package generic_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/overtime-engine/generic"
)

func TestErrorCategories(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		client   bool
		notFound bool
		conflict bool
	}{
		{"invalid input", fmt.Errorf("payload: %w", generic.ErrInvalidInput), true, false, false},
		{"invalid period", generic.ErrInvalidPeriod, true, false, false},
		{"unknown message", &generic.UnknownMessageError{Type: "x"}, true, false, false},
		{"workspace", generic.ErrWorkspaceNotFound, false, true, false},
		{"scenario", fmt.Errorf("load: %w", generic.ErrScenarioNotFound), false, true, false},
		{"superseded", generic.ErrSuperseded, false, false, true},
		{"worker closed", generic.ErrWorkerClosed, false, false, false},
		{"other", errors.New("boom"), false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.client, generic.IsClientError(tt.err))
			assert.Equal(t, tt.notFound, generic.IsNotFound(tt.err))
			assert.Equal(t, tt.conflict, generic.IsConflict(tt.err))
		})
	}
}

func TestUnknownMessageError_Text(t *testing.T) {
	err := &generic.UnknownMessageError{Type: "explode"}
	assert.Equal(t, "Unknown message type: explode", err.Error())
	assert.ErrorIs(t, err, generic.ErrUnknownMessage)
}

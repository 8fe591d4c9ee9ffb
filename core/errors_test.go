package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	notFound := &NotFoundError{Kind: "session", ID: "s1"}
	assert.ErrorIs(t, notFound, ErrNotFound)
	assert.NotErrorIs(t, notFound, ErrInvalidTransition)
	assert.Contains(t, notFound.Error(), "session s1")

	invalid := &InvalidTransitionError{Op: "next", State: StateAISpeaking}
	assert.ErrorIs(t, invalid, ErrInvalidTransition)
	assert.Contains(t, invalid.Error(), "next")
	assert.Contains(t, invalid.Error(), string(StateAISpeaking))

	cause := errors.New("connection reset")
	resp := &ResponderError{ModelID: "gpt-4o-mini", Err: cause}
	assert.ErrorIs(t, resp, ErrResponder)
	assert.ErrorIs(t, resp, cause)
}

func TestWrappedErrorsStillMatch(t *testing.T) {
	err := fmt.Errorf("starting turn: %w", &NotFoundError{Kind: "room", ID: "r1"})
	assert.ErrorIs(t, err, ErrNotFound)

	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))
	assert.Equal(t, "room", nf.Kind)
}

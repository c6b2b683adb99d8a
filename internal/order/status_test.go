package order

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionLegalEdges(t *testing.T) {
	legal := [][2]Status{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusCancelled},
		{StatusConfirmed, StatusShipped},
		{StatusConfirmed, StatusCancelled},
		{StatusShipped, StatusDelivered},
		{StatusShipped, StatusCancelled},
	}
	for _, edge := range legal {
		assert.NoError(t, CanTransition(edge[0], edge[1]), "%s -> %s", edge[0], edge[1])
	}
}

func TestCanTransitionRejectsEverythingElse(t *testing.T) {
	all := []Status{StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled}
	legal := map[[2]Status]bool{
		{StatusPending, StatusConfirmed}:   true,
		{StatusPending, StatusCancelled}:   true,
		{StatusConfirmed, StatusShipped}:   true,
		{StatusConfirmed, StatusCancelled}: true,
		{StatusShipped, StatusDelivered}:   true,
		{StatusShipped, StatusCancelled}:   true,
	}
	for _, from := range all {
		for _, to := range all {
			err := CanTransition(from, to)
			switch {
			case from == to:
				assert.ErrorIs(t, err, ErrNoChange, "%s -> %s", from, to)
			case legal[[2]Status{from, to}]:
				assert.NoError(t, err, "%s -> %s", from, to)
			default:
				var ite *IllegalTransitionError
				if assert.True(t, errors.As(err, &ite), "%s -> %s should be illegal", from, to) {
					assert.Equal(t, from, ite.From)
					assert.Equal(t, to, ite.To)
				}
			}
		}
	}
}

func TestTerminalStatesHaveNoOutgoingEdges(t *testing.T) {
	for _, from := range []Status{StatusDelivered, StatusCancelled} {
		for _, to := range []Status{StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled} {
			if from == to {
				continue
			}
			var ite *IllegalTransitionError
			assert.True(t, errors.As(CanTransition(from, to), &ite), "%s -> %s", from, to)
		}
	}
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus("shipped")
	assert.True(t, ok)
	assert.Equal(t, StatusShipped, st)

	_, ok = ParseStatus("paid")
	assert.False(t, ok)
	_, ok = ParseStatus("")
	assert.False(t, ok)
}

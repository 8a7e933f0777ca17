package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusShipped, true},
		{StatusPending, StatusDelivered, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, true},
		{StatusProcessing, StatusShipped, true},
		{StatusProcessing, StatusPending, false},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusProcessing, false},
		{StatusDelivered, StatusShipped, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusProcessing, false},
		{StatusCompleted, StatusProcessing, true},
		{StatusCompleted, StatusShipped, true},
		{StatusCompleted, StatusDelivered, true},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusPending, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCancellable(t *testing.T) {
	assert.True(t, StatusPending.Cancellable())
	assert.True(t, StatusProcessing.Cancellable())
	assert.True(t, StatusShipped.Cancellable())
	assert.True(t, StatusDelivered.Cancellable())
	assert.False(t, StatusCancelled.Cancellable())
	assert.False(t, StatusCompleted.Cancellable())
}

func TestProductLowStock(t *testing.T) {
	assert.True(t, Product{Stock: 0}.LowStock())
	assert.True(t, Product{Stock: 9}.LowStock())
	assert.False(t, Product{Stock: 10}.LowStock())
}

package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAllocate(t *testing.T) {
	tests := []struct {
		name      string
		limit     float64
		allocated float64
		requested float64
		want      float64
		wantErr   bool
	}{
		{name: "fits comfortably", limit: 30, allocated: 0, requested: 20, want: 20},
		{name: "exactly the remaining budget", limit: 30, allocated: 10, requested: 20, want: 30},
		{name: "one over the remaining budget", limit: 30, allocated: 10, requested: 21, wantErr: true},
		{name: "nothing left", limit: 30, allocated: 30, requested: 1, wantErr: true},
		{name: "zero request always fits", limit: 30, allocated: 30, requested: 0, want: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TryAllocate(tt.limit, tt.allocated, tt.requested)
			if tt.wantErr {
				require.Error(t, err)
				var budgetErr *BudgetExceededError
				require.True(t, errors.As(err, &budgetErr))
				assert.Equal(t, tt.limit, budgetErr.Limit)
				assert.Equal(t, tt.requested, budgetErr.Requested)
				assert.Equal(t, tt.limit-tt.allocated, budgetErr.Available)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTryReallocate(t *testing.T) {
	t.Run("grow within budget", func(t *testing.T) {
		// parent limit 30, 20 handed out of which this node holds 10
		got, err := TryReallocate(30, 20, 10, 15, 0)
		require.NoError(t, err)
		assert.Equal(t, 25.0, got)
	})

	t.Run("grow to the exact limit", func(t *testing.T) {
		got, err := TryReallocate(30, 20, 10, 20, 0)
		require.NoError(t, err)
		assert.Equal(t, 30.0, got)
	})

	t.Run("grow past the limit", func(t *testing.T) {
		_, err := TryReallocate(30, 20, 10, 21, 0)
		var budgetErr *BudgetExceededError
		require.True(t, errors.As(err, &budgetErr))
		// the old grant of 10 is handed back before checking
		assert.Equal(t, 20.0, budgetErr.Available)
	})

	t.Run("shrink below child allocation", func(t *testing.T) {
		_, err := TryReallocate(30, 20, 20, 10, 15)
		var floorErr *BelowChildAllocationError
		require.True(t, errors.As(err, &floorErr))
		assert.Equal(t, 15.0, floorErr.Floor)
		assert.Equal(t, 10.0, floorErr.Requested)
	})

	t.Run("shrink to exactly the floor", func(t *testing.T) {
		got, err := TryReallocate(30, 20, 20, 15, 15)
		require.NoError(t, err)
		assert.Equal(t, 15.0, got)
	})
}

func TestRelease(t *testing.T) {
	assert.Equal(t, 10.0, Release(30, 20))
	assert.Equal(t, 0.0, Release(20, 20))
}

package tenancy_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurukulhq/gurukul/internal/domain"
	"github.com/gurukulhq/gurukul/internal/tenancy"
)

func TestWithTenant(t *testing.T) {
	t.Parallel()

	alpha := &domain.Tenant{ID: uuid.New(), SchemaName: "alpha"}
	beta := &domain.Tenant{ID: uuid.New(), SchemaName: "beta"}

	t.Run("bind_and_read_back", func(t *testing.T) {
		t.Parallel()

		ctx, err := tenancy.WithTenant(context.Background(), alpha)
		require.NoError(t, err)

		got, ok := tenancy.FromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, alpha.ID, got.ID)
	})

	t.Run("rebind_same_tenant_is_noop", func(t *testing.T) {
		t.Parallel()

		ctx, err := tenancy.WithTenant(context.Background(), alpha)
		require.NoError(t, err)

		ctx2, err := tenancy.WithTenant(ctx, alpha)
		require.NoError(t, err)
		assert.Equal(t, ctx, ctx2)
	})

	t.Run("rebind_different_tenant_refused", func(t *testing.T) {
		t.Parallel()

		ctx, err := tenancy.WithTenant(context.Background(), alpha)
		require.NoError(t, err)

		_, err = tenancy.WithTenant(ctx, beta)
		require.ErrorIs(t, err, domain.ErrContextAlreadyBound)

		// The original binding survives the refused rebind.
		got, ok := tenancy.FromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, "alpha", got.SchemaName)
	})

	t.Run("empty_context_has_no_tenant", func(t *testing.T) {
		t.Parallel()

		_, ok := tenancy.FromContext(context.Background())
		assert.False(t, ok)
	})
}

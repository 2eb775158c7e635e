package tenancy

import (
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurukulhq/gurukul/internal/domain"
)

func TestHostCache_TTLExpiry(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock()
	c := newHostCache(30*time.Second, 16, clk)

	tenant := &domain.Tenant{ID: uuid.New(), SchemaName: "alpha"}
	c.put("alpha.gurukul.app", tenant)

	got, ok := c.get("alpha.gurukul.app")
	require.True(t, ok)
	assert.Equal(t, tenant.ID, got.ID)

	// Still fresh just inside the TTL.
	clk.Add(29 * time.Second)
	_, ok = c.get("alpha.gurukul.app")
	assert.True(t, ok)

	// Expired past the TTL.
	clk.Add(2 * time.Second)
	_, ok = c.get("alpha.gurukul.app")
	assert.False(t, ok)
	assert.Equal(t, 0, c.len(), "expired entry should be dropped on read")
}

func TestHostCache_SizeBound(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock()
	c := newHostCache(time.Minute, 4, clk)

	for i := 0; i < 10; i++ {
		host := fmt.Sprintf("t%d.gurukul.app", i)
		c.put(host, &domain.Tenant{ID: uuid.New()})
		clk.Add(time.Second) // staggered expiry so eviction order is deterministic
	}

	assert.LessOrEqual(t, c.len(), 4)

	// The newest insert always survives.
	_, ok := c.get("t9.gurukul.app")
	assert.True(t, ok)
}

func TestHostCache_Invalidate(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock()
	c := newHostCache(time.Minute, 16, clk)

	c.put("a.gurukul.app", &domain.Tenant{ID: uuid.New()})
	c.put("b.gurukul.app", &domain.Tenant{ID: uuid.New()})

	c.invalidate("a.gurukul.app")
	_, ok := c.get("a.gurukul.app")
	assert.False(t, ok)
	_, ok = c.get("b.gurukul.app")
	assert.True(t, ok)

	c.invalidateAll()
	assert.Equal(t, 0, c.len())
}

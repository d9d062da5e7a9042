package handoff

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mosaicgrove/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, 10*time.Minute), mr
}

func testSnapshot() domain.CheckoutSnapshot {
	return domain.CheckoutSnapshot{
		ShippingInfo: domain.ShippingInfo{FullName: "Ama Mensah", Email: "ama@example.com", Country: "Ghana"},
		DeliveryMethod: domain.DeliveryMethod{
			ID:  domain.DeliveryStandard,
			Fee: decimal.RequireFromString("5.99"),
		},
		Lines: []domain.CartLine{{
			ID:        "line-1",
			Product:   domain.Product{ID: "7", Name: "Wild Forest Honey", Price: decimal.RequireFromString("12.99")},
			Quantity:  2,
			Variation: map[string]string{"Type": "Raw"},
		}},
		Subtotal:    decimal.RequireFromString("25.98"),
		DeliveryFee: decimal.RequireFromString("5.99"),
		Total:       decimal.RequireFromString("31.97"),
		SubmittedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestKind_Text(t *testing.T) {
	for _, k := range []Kind{Empty, HasSnapshot, HasConfirmation} {
		b, err := k.MarshalText()
		require.NoError(t, err)
		var got Kind
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, k, got)
	}

	var k Kind
	assert.ErrorIs(t, k.UnmarshalText([]byte("bogus")), ErrUnknownKind)
}

func TestHandoff_Accessors(t *testing.T) {
	h := WithSnapshot(testSnapshot())
	snap, ok := h.CheckoutSnapshot()
	require.True(t, ok)
	assert.Equal(t, "Ama Mensah", snap.ShippingInfo.FullName)
	_, ok = h.OrderConfirmation()
	assert.False(t, ok)

	_, ok = Handoff{}.CheckoutSnapshot()
	assert.False(t, ok)

	// a tag without payload is not a snapshot
	_, ok = Handoff{Kind: HasSnapshot}.CheckoutSnapshot()
	assert.False(t, ok)
}

func TestWithSnapshot_Copies(t *testing.T) {
	s := testSnapshot()
	h := WithSnapshot(s)

	s.Lines[0].Quantity = 50
	s.Lines[0].Variation["Type"] = "Roasted"

	snap, _ := h.CheckoutSnapshot()
	assert.Equal(t, 2, snap.Lines[0].Quantity)
	assert.Equal(t, "Raw", snap.Lines[0].Variation["Type"])
}

func TestRedisStore_MissIsEmpty(t *testing.T) {
	store, _ := setupTestRedis(t)

	h, err := store.Load(context.Background(), "sid-1")
	require.NoError(t, err)
	assert.Equal(t, Empty, h.Kind)
}

func TestRedisStore_SnapshotRoundTrip(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sid-1", WithSnapshot(testSnapshot())))
	assert.True(t, mr.Exists("checkout:sid-1"))
	ttl := mr.TTL("checkout:sid-1")
	assert.GreaterOrEqual(t, ttl, 10*time.Minute)
	assert.Less(t, ttl, 15*time.Minute)

	h, err := store.Load(ctx, "sid-1")
	require.NoError(t, err)
	snap, ok := h.CheckoutSnapshot()
	require.True(t, ok)
	assert.True(t, snap.Subtotal.Equal(decimal.RequireFromString("25.98")))
	assert.True(t, snap.Total.Equal(decimal.RequireFromString("31.97")))
	assert.True(t, snap.SubmittedAt.Equal(testSnapshot().SubmittedAt))
	assert.Equal(t, domain.ProductID("7"), snap.Lines[0].ProductID())
	assert.Equal(t, "Raw", snap.Lines[0].Variation["Type"])

	other, err := store.Load(ctx, "sid-2")
	require.NoError(t, err)
	assert.Equal(t, Empty, other.Kind)
}

func TestRedisStore_ConfirmationOverwritesSnapshot(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sid-1", WithSnapshot(testSnapshot())))
	conf := domain.OrderConfirmation{
		OrderID:          "MG-123456",
		OrderDate:        time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC),
		CheckoutSnapshot: testSnapshot(),
	}
	require.NoError(t, store.Save(ctx, "sid-1", WithConfirmation(conf)))

	h, err := store.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, HasConfirmation, h.Kind)
	assert.Nil(t, h.Snapshot)
	got, ok := h.OrderConfirmation()
	require.True(t, ok)
	assert.Equal(t, "MG-123456", got.OrderID)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("31.97")))
}

func TestRedisStore_Corrupt(t *testing.T) {
	store, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("checkout:sid-1", "{not json"))

	_, err := store.Load(context.Background(), "sid-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal handoff failed")
}

func TestRedisStore_MismatchedTagLoadsEmpty(t *testing.T) {
	store, mr := setupTestRedis(t)
	data, err := json.Marshal(map[string]any{"kind": "confirmation"})
	require.NoError(t, err)
	require.NoError(t, mr.Set("checkout:sid-1", string(data)))

	h, err := store.Load(context.Background(), "sid-1")
	require.NoError(t, err)
	assert.Equal(t, Empty, h.Kind)
}

func TestRedisStore_Clear(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sid-1", WithSnapshot(testSnapshot())))
	require.NoError(t, store.Clear(ctx, "sid-1"))
	assert.False(t, mr.Exists("checkout:sid-1"))
	require.NoError(t, store.Clear(ctx, "sid-1"))
}

func TestRedisStore_ServerDown(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Close()

	_, err := store.Load(context.Background(), "sid-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis get failed")
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	h, err := store.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, Empty, h.Kind)

	require.NoError(t, store.Save(ctx, "sid-1", WithSnapshot(testSnapshot())))
	h, err = store.Load(ctx, "sid-1")
	require.NoError(t, err)
	h.Snapshot.Lines[0].Quantity = 99

	again, err := store.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Snapshot.Lines[0].Quantity)

	require.NoError(t, store.Clear(ctx, "sid-1"))
	h, err = store.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, Empty, h.Kind)
}

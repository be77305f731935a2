package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choplife/choplifeib/internal/entities"
)

func buses(t *testing.T) map[string]Bus {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return map[string]Bus{
		"memory": NewMemoryBus(),
		"redis":  NewRedisBus(client),
	}
}

func receive(t *testing.T, ch <-chan ProfileUpdate) ProfileUpdate {
	t.Helper()
	select {
	case u, ok := <-ch:
		require.True(t, ok, "channel closed")
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
	}
	return ProfileUpdate{}
}

func TestBus_DeliversOnlyToOwner(t *testing.T) {
	for name, bus := range buses(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			mine, err := bus.Subscribe(ctx, 1)
			require.NoError(t, err)
			other, err := bus.Subscribe(ctx, 2)
			require.NoError(t, err)

			user := &entities.User{ID: 1, Username: "bisi", Role: entities.UserRoleVerifiedReviewer}
			require.NoError(t, bus.Publish(ctx, UpdateFromUser(user)))

			got := receive(t, mine)
			assert.Equal(t, uint(1), got.UserID)
			assert.Equal(t, entities.UserRoleVerifiedReviewer, got.Role)
			assert.Equal(t, "Verified reviewer", got.RoleLabel)
			assert.False(t, got.IsAdmin)

			select {
			case u := <-other:
				t.Fatalf("unexpected update for user 2: %+v", u)
			case <-time.After(100 * time.Millisecond):
			}
		})
	}
}

func TestBus_ClosesOnContextCancel(t *testing.T) {
	for name, bus := range buses(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			ch, err := bus.Subscribe(ctx, 5)
			require.NoError(t, err)

			cancel()
			require.Eventually(t, func() bool {
				select {
				case _, ok := <-ch:
					return !ok
				default:
					return false
				}
			}, 2*time.Second, 10*time.Millisecond)
		})
	}
}

func TestMemoryBus_Close(t *testing.T) {
	bus := NewMemoryBus()
	ch, err := bus.Subscribe(context.Background(), 1)
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	_, ok := <-ch
	assert.False(t, ok)

	late, err := bus.Subscribe(context.Background(), 1)
	require.NoError(t, err)
	_, ok = <-late
	assert.False(t, ok)
}

package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type ping struct{ N int }
type pong struct{ N int }

func TestPublishDispatchesByType(t *testing.T) {
	Use(New())
	defer Use(nil)

	var pings, pongs []int
	unsub := Subscribe(func(_ context.Context, e ping) { pings = append(pings, e.N) })
	defer unsub()
	Subscribe(func(_ context.Context, e pong) { pongs = append(pongs, e.N) })

	ctx := context.Background()
	Publish(ctx, ping{1})
	Publish(ctx, pong{2})
	Publish(ctx, ping{3})

	require.Equal(t, []int{1, 3}, pings)
	require.Equal(t, []int{2}, pongs)
}

func TestUnsubscribe(t *testing.T) {
	Use(New())
	defer Use(nil)

	var got int
	first := Subscribe(func(_ context.Context, e ping) { got += e.N })
	second := Subscribe(func(_ context.Context, e ping) { got += e.N * 10 })

	Publish(context.Background(), ping{1})
	first()
	Publish(context.Background(), ping{1})
	second()
	Publish(context.Background(), ping{1})

	require.Equal(t, 21, got)
}

func TestNilBusIsSilent(t *testing.T) {
	Use(nil)
	// Neither of these may panic.
	Publish(context.Background(), ping{1})
	unsub := Subscribe(func(_ context.Context, e ping) {})
	unsub()
}

package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/bedive-215/tech-store-sub001/internal/jsoncodec"
)

func TestRedisStore_Save(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	ctx := context.Background()

	p := Payment{OrderID: "o1", Amount: 150000, Status: StatusPending, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	client.EXPECT().Do(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, cmd rueidis.Completed) rueidis.RedisResult {
		args := cmd.Commands()
		require.Len(t, args, 5)
		assert.Equal(t, []string{"SET", "payment:o1"}, args[:2])
		assert.Equal(t, []string{"EX", "3600"}, args[3:])

		var stored Payment
		require.NoError(t, jsoncodec.Unmarshal([]byte(args[2]), &stored))
		assert.Equal(t, p, stored)
		return mock.Result(mock.RedisString("OK"))
	})

	require.NoError(t, NewRedisStore(client, time.Hour).Save(ctx, p))
}

func TestRedisStore_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	ctx := context.Background()

	client.EXPECT().Do(ctx, mock.Match("GET", "payment:o1")).
		Return(mock.Result(mock.RedisString(`{"order_id":"o1","amount":42,"status":"pending","created_at":"2024-01-01T00:00:00Z"}`)))
	client.EXPECT().Do(ctx, mock.Match("GET", "payment:missing")).
		Return(mock.Result(mock.RedisNil()))

	store := NewRedisStore(client, time.Hour)

	p, err := store.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, 42.0, p.Amount)
	assert.Equal(t, StatusPending, p.Status)

	_, err = store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_MarkConfirmed(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	ctx := context.Background()

	setNX := mock.Match("SET", "payment:o1:confirmed", "1", "NX", "EX", "3600")
	gomock.InOrder(
		client.EXPECT().Do(ctx, setNX).Return(mock.Result(mock.RedisString("OK"))),
		client.EXPECT().Do(ctx, setNX).Return(mock.Result(mock.RedisNil())),
		client.EXPECT().Do(ctx, setNX).Return(mock.ErrorResult(errors.New("READONLY"))),
	)

	store := NewRedisStore(client, time.Hour)

	first, err := store.MarkConfirmed(ctx, "o1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := store.MarkConfirmed(ctx, "o1")
	require.NoError(t, err)
	assert.False(t, again)

	_, err = store.MarkConfirmed(ctx, "o1")
	require.Error(t, err)
}

func TestRedisStore_ReleaseConfirmation(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	ctx := context.Background()

	client.EXPECT().Do(ctx, mock.Match("DEL", "payment:o1:confirmed")).
		Return(mock.Result(mock.RedisInt64(1)))

	require.NoError(t, NewRedisStore(client, time.Hour).ReleaseConfirmation(ctx, "o1"))
}

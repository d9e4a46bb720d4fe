package queue

import (
	"context"
	"oj_workbench/internal/platform/config"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	config.AppConfig = &config.Config{RedisAddr: mr.Addr()}
	t.Cleanup(func() { RDB = nil })

	require.NoError(t, ConnectRedis(context.Background(), zap.NewNop()))
	require.NotNil(t, RDB)
	require.NoError(t, RDB.Set(context.Background(), "k", "v", 0).Err())
	assert.True(t, mr.Exists("k"))
	CloseRedis(zap.NewNop())
}

func TestConnectRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	config.AppConfig = &config.Config{RedisAddr: addr}
	RDB = nil

	err := ConnectRedis(context.Background(), zap.NewNop())
	assert.Error(t, err)
	assert.Nil(t, RDB)
}

package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolOptionsParse(t *testing.T) {
	cfg, err := PoolOptions{DSN: "postgres://u:p@db:5432/hackhub?sslmode=disable", MaxConns: 7}.parse()
	require.NoError(t, err)
	assert.Equal(t, int32(7), cfg.MaxConns)
	assert.Equal(t, "db", cfg.ConnConfig.Host)
	assert.Equal(t, "hackhub", cfg.ConnConfig.Database)

	def, err := PoolOptions{DSN: "postgres://u:p@db:5432/hackhub"}.parse()
	require.NoError(t, err)
	assert.Positive(t, def.MaxConns)

	_, err = PoolOptions{DSN: "::not a dsn"}.parse()
	assert.Error(t, err)
}

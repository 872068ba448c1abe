package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)

	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"POSTGRES_DSN": "postgres://localhost/nexus",
	}))

	req.NoError(err)
	req.Equal(":5000", cfg.HTTPAddr)
	req.Equal(":8080", cfg.GRPCAddr)
	req.Equal(StorePostgres, cfg.MessageStore)
	req.Equal(4*time.Hour, cfg.TokenTTL)
	req.Equal("uploads", cfg.UploadsDir)
	req.Equal(256, cfg.WSSendBuffer)
	req.Empty(cfg.RedisAddr)
}

func TestLoad_Generates_Secret_When_Unset(t *testing.T) {
	req := require.New(t)
	env := envconfig.MapLookuper(map[string]string{"POSTGRES_DSN": "postgres://localhost/nexus"})

	first, err := load(context.Background(), env)
	req.NoError(err)
	second, err := load(context.Background(), env)
	req.NoError(err)

	req.True(first.JWTSecretGenerated)
	req.Len(first.JWTSecret, 64)
	req.NotEqual(first.JWTSecret, second.JWTSecret)
}

func TestLoad_Overrides(t *testing.T) {
	req := require.New(t)

	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"POSTGRES_DSN":  "postgres://localhost/nexus",
		"MESSAGE_STORE": "badger",
		"JWT_SECRET":    "s3cret",
		"TOKEN_TTL":     "30m",
		"REDIS_ADDR":    "localhost:6379",
	}))

	req.NoError(err)
	req.Equal(StoreBadger, cfg.MessageStore)
	req.Equal("s3cret", cfg.JWTSecret)
	req.False(cfg.JWTSecretGenerated)
	req.Equal(30*time.Minute, cfg.TokenTTL)
	req.Equal("localhost:6379", cfg.RedisAddr)
}

func TestLoad_Rejects_Bad_Settings(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.ErrorIs(t, err, ErrPostgresDSNRequired)

	_, err = load(context.Background(), envconfig.MapLookuper(map[string]string{
		"POSTGRES_DSN":  "postgres://localhost/nexus",
		"MESSAGE_STORE": "sqlite",
	}))
	require.ErrorIs(t, err, ErrUnknownMessageStore)
}

package config

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	StorePostgres = "postgres"
	StoreBadger   = "badger"
)

var (
	ErrPostgresDSNRequired = errors.New("POSTGRES_DSN is required")
	ErrUnknownMessageStore = errors.New("MESSAGE_STORE must be postgres or badger")
)

type Config struct {
	HTTPAddr       string        `env:"HTTP_ADDR,default=:5000"`
	GRPCAddr       string        `env:"GRPC_ADDR,default=:8080"`
	PostgresDSN    string        `env:"POSTGRES_DSN"`
	RedisAddr      string        `env:"REDIS_ADDR"`
	MessageStore   string        `env:"MESSAGE_STORE,default=postgres"`
	BadgerPath     string        `env:"BADGER_PATH,default=data/messages"`
	JWTSecret      string        `env:"JWT_SECRET"`
	TokenTTL       time.Duration `env:"TOKEN_TTL,default=4h"`
	UploadsDir     string        `env:"UPLOADS_DIR,default=uploads"`
	MaxUploadBytes int64         `env:"MAX_UPLOAD_BYTES,default=5242880"`
	LogLevel       string        `env:"LOG_LEVEL,default=INFO"`
	WSSendBuffer   int           `env:"WS_SEND_BUFFER,default=256"`

	// JWTSecretGenerated reports that JWT_SECRET was unset and a random one is in use,
	// so tokens do not survive a restart.
	JWTSecretGenerated bool
}

func Load(ctx context.Context) (Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	config := Config{}
	if err := envconfig.ProcessWith(ctx, &config, lookuper); err != nil {
		return Config{}, fmt.Errorf("parsing env vars: %w", err)
	}

	if config.PostgresDSN == "" {
		return Config{}, ErrPostgresDSNRequired
	}
	if config.MessageStore != StorePostgres && config.MessageStore != StoreBadger {
		return Config{}, fmt.Errorf("%w, got %q", ErrUnknownMessageStore, config.MessageStore)
	}

	if config.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return Config{}, err
		}
		config.JWTSecret = secret
		config.JWTSecretGenerated = true
	}

	return config, nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

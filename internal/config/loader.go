package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MAGNIFY_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MAGNIFY_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "MAGNIFY_CHAIN_RPC_URL")
	setStr(&cfg.Chain.LendingContract, "MAGNIFY_CHAIN_LENDING_CONTRACT")
	setStr(&cfg.Chain.LendingKeysContract, "MAGNIFY_CHAIN_LENDING_KEYS_CONTRACT")
	setStr(&cfg.Chain.ObligationNotesContract, "MAGNIFY_CHAIN_OBLIGATION_NOTES_CONTRACT")
	setStr(&cfg.Chain.PromissoryNotesContract, "MAGNIFY_CHAIN_PROMISSORY_NOTES_CONTRACT")
	setUint64(&cfg.Chain.StartBlock, "MAGNIFY_CHAIN_START_BLOCK")
	setUint64(&cfg.Chain.EndBlock, "MAGNIFY_CHAIN_END_BLOCK")
	setUint64(&cfg.Chain.Confirmations, "MAGNIFY_CHAIN_CONFIRMATIONS")
	setUint64(&cfg.Chain.BatchSize, "MAGNIFY_CHAIN_BATCH_SIZE")
	setDuration(&cfg.Chain.PollInterval, "MAGNIFY_CHAIN_POLL_INTERVAL")

	// ── Database ──
	setStr(&cfg.Database.DSN, "MAGNIFY_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "MAGNIFY_DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "MAGNIFY_DATABASE_HOST")
	setInt(&cfg.Database.Port, "MAGNIFY_DATABASE_PORT")
	setStr(&cfg.Database.Database, "MAGNIFY_DATABASE_DATABASE")
	setStr(&cfg.Database.User, "MAGNIFY_DATABASE_USER")
	setStr(&cfg.Database.Password, "MAGNIFY_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "MAGNIFY_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "MAGNIFY_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "MAGNIFY_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "MAGNIFY_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "MAGNIFY_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MAGNIFY_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MAGNIFY_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MAGNIFY_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MAGNIFY_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MAGNIFY_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "MAGNIFY_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MAGNIFY_S3_REGION")
	setStr(&cfg.S3.Bucket, "MAGNIFY_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MAGNIFY_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MAGNIFY_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MAGNIFY_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MAGNIFY_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setStr(&cfg.Archive.Prefix, "MAGNIFY_ARCHIVE_PREFIX")
	setInt(&cfg.Archive.FlushEvents, "MAGNIFY_ARCHIVE_FLUSH_EVENTS")
	setDuration(&cfg.Archive.FlushInterval, "MAGNIFY_ARCHIVE_FLUSH_INTERVAL")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "MAGNIFY_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MAGNIFY_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MAGNIFY_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MAGNIFY_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "MAGNIFY_MODE")
	setStr(&cfg.LogLevel, "MAGNIFY_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Chain.RPCURL = "wss://rpc.example.com/v1/key"
	cfg.Chain.LendingContract = "0x1111111111111111111111111111111111111111"
	cfg.Chain.LendingKeysContract = "0x2222222222222222222222222222222222222222"
	cfg.Chain.ObligationNotesContract = "0x3333333333333333333333333333333333333333"
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "project", cfg.Mode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, uint64(12), cfg.Chain.Confirmations)
	assert.Equal(t, uint64(2000), cfg.Chain.BatchSize)
	assert.Equal(t, 10*time.Second, cfg.Chain.PollInterval.Duration)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.True(t, cfg.Database.RunMigrations)
	assert.Equal(t, "events", cfg.Archive.Prefix)
	assert.Equal(t, 500, cfg.Archive.FlushEvents)
	assert.Equal(t, []string{"projector_halted", "loan_defaulted"}, cfg.Notify.Events)
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsMissingChainFields(t *testing.T) {
	cfg := validConfig()
	cfg.Chain.RPCURL = ""
	cfg.Chain.LendingContract = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc_url")
	assert.Contains(t, err.Error(), "lending_contract")
}

func TestValidateMigrateModeSkipsChain(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "migrate"
	assert.NoError(t, cfg.Validate())
}

func TestValidateBackfillRequiresEndBlock(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "backfill"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "end_block")

	cfg.Chain.EndBlock = 100
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsInvertedBlockRange(t *testing.T) {
	cfg := validConfig()
	cfg.Chain.StartBlock = 200
	cfg.Chain.EndBlock = 100

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "end_block must not precede start_block")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "replay"
	assert.Error(t, cfg.Validate())
}

func TestValidateRedisOnlyWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Redis.PoolSize = 0
	assert.NoError(t, cfg.Validate(), "disabled cache ignores pool size")

	cfg.Redis.Addr = "localhost:6379"
	assert.Error(t, cfg.Validate())
}

func TestValidateS3OnlyWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.S3.Region = ""
	cfg.Archive.FlushEvents = 0
	assert.NoError(t, cfg.Validate(), "disabled archive ignores s3 settings")

	cfg.S3.Bucket = "magnify-events"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "region")
	assert.Contains(t, err.Error(), "flush_events")
}

func TestValidateTelegramPairing(t *testing.T) {
	cfg := validConfig()
	cfg.Notify.TelegramToken = "123:abc"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")

	cfg.Notify.TelegramChatID = "-100123"
	assert.NoError(t, cfg.Validate())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "backfill"
log_level = "debug"

[chain]
rpc_url = "wss://rpc.example.com"
lending_contract = "0x1111111111111111111111111111111111111111"
start_block = 4000000
end_block = 4100000
poll_interval = "5s"

[database]
host = "db.internal"
password = "hunter2"

[notify]
events = ["loan_defaulted"]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "backfill", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, uint64(4000000), cfg.Chain.StartBlock)
	assert.Equal(t, 5*time.Second, cfg.Chain.PollInterval.Duration)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, []string{"loan_defaulted"}, cfg.Notify.Events)

	// Values absent from the file keep their defaults.
	assert.Equal(t, uint64(12), cfg.Chain.Confirmations)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[chain]
rpc_url = "wss://file.example.com"
`), 0o644))

	t.Setenv("MAGNIFY_CHAIN_RPC_URL", "wss://env.example.com")
	t.Setenv("MAGNIFY_CHAIN_START_BLOCK", "123456")
	t.Setenv("MAGNIFY_CHAIN_POLL_INTERVAL", "30s")
	t.Setenv("MAGNIFY_DATABASE_URL", "postgres://app:secret@db/magnify")
	t.Setenv("MAGNIFY_DATABASE_RUN_MIGRATIONS", "false")
	t.Setenv("MAGNIFY_NOTIFY_EVENTS", "projector_halted, loan_defaulted")
	t.Setenv("MAGNIFY_MODE", "migrate")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "wss://env.example.com", cfg.Chain.RPCURL)
	assert.Equal(t, uint64(123456), cfg.Chain.StartBlock)
	assert.Equal(t, 30*time.Second, cfg.Chain.PollInterval.Duration)
	assert.Equal(t, "postgres://app:secret@db/magnify", cfg.Database.DSN)
	assert.False(t, cfg.Database.RunMigrations)
	assert.Equal(t, []string{"projector_halted", "loan_defaulted"}, cfg.Notify.Events)
	assert.Equal(t, "migrate", cfg.Mode)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Password = "hunter2"
	cfg.Redis.Password = "redispass"
	cfg.S3.AccessKey = "AKIA123"
	cfg.S3.SecretKey = "secret"
	cfg.Notify.TelegramToken = "123:abc"
	cfg.Notify.DiscordWebhookURL = "https://discord.com/api/webhooks/1/x"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Chain.RPCURL)
	assert.Equal(t, "***", red.Database.Password)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.S3.AccessKey)
	assert.Equal(t, "***", red.S3.SecretKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)
	assert.Equal(t, "***", red.Notify.DiscordWebhookURL)

	// Empty secrets stay empty rather than gaining a placeholder.
	assert.Empty(t, red.Database.DSN)

	// Non-secret fields and the original config are untouched.
	assert.Equal(t, cfg.Chain.LendingContract, red.Chain.LendingContract)
	assert.Equal(t, "hunter2", cfg.Database.Password)

	// The redacted copy owns its events slice.
	red.Notify.Events[0] = "changed"
	assert.Equal(t, "projector_halted", cfg.Notify.Events[0])
}

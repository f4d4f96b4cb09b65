package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_HappyPath(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	tempConfigsSubDir := filepath.Join(tempDir, "configs")
	err = os.Mkdir(tempConfigsSubDir, 0755)
	require.NoError(t, err)

	testAppName := "TestLedger"
	testPort := 9090
	testLogLevel := "debug"
	testKafkaBrokers := "kafka1:9092,kafka2:9092"

	envContent := fmt.Sprintf(
		"APP_NAME=%s\nSERVER_PORT=%d\nLOG_LEVEL=%s\nKAFKA_BROKERS=%s\n",
		testAppName, testPort, testLogLevel, testKafkaBrokers,
	)
	envFilePath := filepath.Join(tempConfigsSubDir, "test_happy.env")
	err = os.WriteFile(envFilePath, []byte(envContent), 0644)
	require.NoError(t, err)

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	defer func() {
		_ = os.Chdir(originalWD)
	}()

	err = os.Chdir(tempDir)
	require.NoError(t, err)

	cfg, err := LoadConfig("test_happy")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, testAppName, cfg.Application.Name)
	assert.Equal(t, testPort, cfg.Server.Port)
	assert.Equal(t, testLogLevel, cfg.Logging.Level)
	assert.Equal(t, testKafkaBrokers, cfg.Kafka.Brokers)

	assert.Equal(t, "development", cfg.Application.Env)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "ledger_audit_events", cfg.Kafka.AuditTopic)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	assert.Equal(t, "migrations/postgres", cfg.Postgres.MigrationsPath)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, 10, cfg.Audit.PoolSize)

	assert.Contains(t, cfg.Auth.StaticTokens, "dev-token")
	assert.Equal(t, "dev-operator", cfg.Auth.StaticTokens["dev-token"].Subject)
	assert.Equal(t, []string{"operator", "hub"}, cfg.Auth.StaticTokens["dev-token"].Roles)
	assert.Equal(t, []string{"PROCESS_RESERVATIONS"}, cfg.Auth.RoleGrants["hub"])
	assert.Empty(t, cfg.Ledger.OverdrawableAccountTypes)
	assert.Empty(t, cfg.Currency.DecimalsOverrides)
}

func TestParseStaticTokens(t *testing.T) {
	t.Run("MultipleTokens", func(t *testing.T) {
		tokens, err := parseStaticTokens("tok-a:alice:operator,tok-b:hub-svc:hub|operator")
		require.NoError(t, err)
		require.Len(t, tokens, 2)
		assert.Equal(t, StaticToken{Subject: "alice", Roles: []string{"operator"}}, tokens["tok-a"])
		assert.Equal(t, StaticToken{Subject: "hub-svc", Roles: []string{"hub", "operator"}}, tokens["tok-b"])
	})

	t.Run("Empty", func(t *testing.T) {
		tokens, err := parseStaticTokens("")
		require.NoError(t, err)
		assert.Empty(t, tokens)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := parseStaticTokens("token-without-subject")
		assert.Error(t, err)
	})
}

func TestParseRoleGrants(t *testing.T) {
	t.Run("MultipleRoles", func(t *testing.T) {
		grants, err := parseRoleGrants("operator=CREATE_ACCOUNT|VIEW_ACCOUNT,hub=PROCESS_RESERVATIONS")
		require.NoError(t, err)
		assert.Equal(t, []string{"CREATE_ACCOUNT", "VIEW_ACCOUNT"}, grants["operator"])
		assert.Equal(t, []string{"PROCESS_RESERVATIONS"}, grants["hub"])
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := parseRoleGrants("role-without-caps")
		assert.Error(t, err)
	})
}

func TestParseDecimalsOverrides(t *testing.T) {
	t.Run("Overrides", func(t *testing.T) {
		overrides, err := parseDecimalsOverrides("EUR=2, JPY=0 ,BHD=3")
		require.NoError(t, err)
		assert.Equal(t, map[string]uint{"EUR": 2, "JPY": 0, "BHD": 3}, overrides)
	})

	t.Run("NonNumericDecimals", func(t *testing.T) {
		_, err := parseDecimalsOverrides("EUR=two")
		assert.Error(t, err)
	})

	t.Run("NegativeDecimals", func(t *testing.T) {
		_, err := parseDecimalsOverrides("EUR=-1")
		assert.Error(t, err)
	})
}

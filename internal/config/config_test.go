package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bin-ranges/internal/domain"
)

// clearEnv blanks every bound variable so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for key, env := range envBindings {
		t.Setenv(env, "")
		t.Setenv("BINRANGES_"+envName(key), "")
	}
	t.Setenv("BINRANGES_BUCKETS_STAGING", "")
	t.Setenv("BINRANGES_BUCKETS_PROMOTED", "")
}

func load(t *testing.T) (*Config, error) {
	t.Helper()
	v, err := New()
	require.NoError(t, err)
	return Load(v)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_ACCOUNT_NAME", "test")

	cfg, err := load(t)
	require.NoError(t, err)

	assert.Equal(t, "bin-ranges-staged-test", cfg.Buckets.Staging)
	assert.Equal(t, "bin-ranges-promoted-test", cfg.Buckets.Promoted)
	assert.Equal(t, DefaultLatestKey, cfg.LatestKey)
	assert.Equal(t, "5.00", cfg.Integrity.AcceptablePercentage.StringFixed(2))
	assert.Equal(t, domain.VersionV03, cfg.Acquisition.RequiredVersion)
	assert.Equal(t, DefaultDirectory, cfg.Acquisition.Directory)
	assert.Equal(t, DefaultPrefix, cfg.Acquisition.Prefix)
	assert.Equal(t, DefaultSFTPHost, cfg.SFTP.Host)
	assert.Equal(t, 22, cfg.SFTP.Port)
	assert.Equal(t, DefaultSFTPUsername, cfg.SFTP.Username)
	assert.Equal(t, 10*time.Second, cfg.SFTP.DialTimeout)
	assert.Equal(t, DefaultRegion, cfg.AWS.Region)
	assert.Empty(t, cfg.AWS.EndpointURL)
	assert.Equal(t, 24*time.Hour, cfg.Server.Interval)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_HistoricalEnvironmentNames(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_ACCOUNT_NAME", "prod")
	t.Setenv("ACCEPTABLE_FILESIZE_DIFFERENCE_PERCENTAGE", "7.5")
	t.Setenv("WORLDPAY_FILE_VERSION", "v04")
	t.Setenv("PRIVATE_KEY_PARAMETER_NAME", "/sftp/key")
	t.Setenv("PASSPHRASE_PARAMETER_NAME", "/sftp/passphrase")
	t.Setenv("LOCALSTACK_ENABLED", "true")

	cfg, err := load(t)
	require.NoError(t, err)

	assert.Equal(t, "7.50", cfg.Integrity.AcceptablePercentage.StringFixed(2))
	assert.Equal(t, domain.VersionV04, cfg.Acquisition.RequiredVersion)
	assert.Equal(t, "/sftp/key", cfg.Secrets.PrivateKeyParameter)
	assert.Equal(t, "/sftp/passphrase", cfg.Secrets.PassphraseParameter)
	assert.Equal(t, DefaultLocalstackURL, cfg.AWS.EndpointURL)
}

func TestLoad_PrefixedEnvironmentOverridesBuckets(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_ACCOUNT_NAME", "test")
	t.Setenv("BINRANGES_BUCKETS_STAGING", "custom-staging")
	t.Setenv("BINRANGES_INTEGRITY_WORKERS", "3")

	cfg, err := load(t)
	require.NoError(t, err)
	assert.Equal(t, "custom-staging", cfg.Buckets.Staging)
	assert.Equal(t, "bin-ranges-promoted-test", cfg.Buckets.Promoted)
	assert.Equal(t, 3, cfg.Integrity.Workers)
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "binranges.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
aws:
  account_name: file
integrity:
  acceptable_percentage: "2.5"
  extended_card_classes: true
server:
  interval: 1h
`), 0o600))

	v, err := New()
	require.NoError(t, err)
	require.NoError(t, ReadFile(v, path))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "bin-ranges-staged-file", cfg.Buckets.Staging)
	assert.Equal(t, "2.50", cfg.Integrity.AcceptablePercentage.StringFixed(2))
	assert.True(t, cfg.Integrity.ExtendedCardClasses)
	assert.Equal(t, time.Hour, cfg.Server.Interval)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown version", map[string]string{"AWS_ACCOUNT_NAME": "x", "WORLDPAY_FILE_VERSION": "V05"}},
		{"bad percentage", map[string]string{"AWS_ACCOUNT_NAME": "x", "ACCEPTABLE_FILESIZE_DIFFERENCE_PERCENTAGE": "five"}},
		{"negative percentage", map[string]string{"AWS_ACCOUNT_NAME": "x", "ACCEPTABLE_FILESIZE_DIFFERENCE_PERCENTAGE": "-1"}},
		{"no buckets", map[string]string{}},
		{"zero interval", map[string]string{"AWS_ACCOUNT_NAME": "x", "BINRANGES_SERVER_INTERVAL": "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := load(t)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestReadFile_Missing(t *testing.T) {
	v, err := New()
	require.NoError(t, err)
	assert.Error(t, ReadFile(v, filepath.Join(t.TempDir(), "missing.yaml")))
	assert.NoError(t, ReadFile(v, ""))
}

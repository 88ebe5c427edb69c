package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, "secretKey", c.SecretKey)
	assert.Equal(t, 15*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, 7*24*time.Hour, c.RefreshTokenValidityDuration)
	assert.Equal(t, "socialhub-", c.S3BucketPrefix)
	assert.Equal(t, "us-east-1", c.S3Region)
	assert.Equal(t, "json", c.LogFormat)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoad_DefaultsOnly(t *testing.T) {
	c, err := Load(nil, nil)
	require.NoError(t, err)

	var want Config
	want.LoadDefaults()
	assert.Equal(t, &want, c)
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_JSONFile(t *testing.T) {
	path := writeFile(t, "server.json", `{
		"endpoint_addr_grpc": ":7000",
		"access_token_validity_duration": "2m",
		"refresh_token_validity_duration": 3600000000000,
		"s3_bucket_prefix": "test-"
	}`)

	c, err := Load([]string{"-c", path}, nil)
	require.NoError(t, err)
	assert.Equal(t, ":7000", c.EndpointAddrGRPC)
	assert.Equal(t, 2*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, time.Hour, c.RefreshTokenValidityDuration)
	assert.Equal(t, "test-", c.S3BucketPrefix)
	// untouched fields keep their defaults
	assert.Equal(t, "secretKey", c.SecretKey)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeFile(t, "server.yaml", "secret_key: from-yaml\nlog_format: zap\naccess_token_validity_duration: 90s\n")

	c, err := Load([]string{"-config=" + path}, nil)
	require.NoError(t, err)
	assert.Equal(t, "from-yaml", c.SecretKey)
	assert.Equal(t, "zap", c.LogFormat)
	assert.Equal(t, 90*time.Second, c.AccessTokenValidityDuration)
}

func TestLoad_BadFile(t *testing.T) {
	_, err := Load([]string{"-c", filepath.Join(t.TempDir(), "missing.json")}, nil)
	require.Error(t, err)

	path := writeFile(t, "bad.json", "{")
	_, err = Load([]string{"-c", path}, nil)
	require.Error(t, err)

	path = writeFile(t, "bad.json", `{"access_token_validity_duration": "soon"}`)
	_, err = Load([]string{"-c", path}, nil)
	require.Error(t, err)
}

func TestLoad_PrecedenceFileEnvFlags(t *testing.T) {
	path := writeFile(t, "server.json", `{"endpoint_addr_grpc": ":7000", "secret_key": "file", "log_level": "warn"}`)

	c, err := Load(
		[]string{"-c", path, "-a", ":9000"},
		map[string]string{
			"SOCIALHUB_GRPC_ADDRESS":      ":8000",
			"SOCIALHUB_SECRET_KEY":        "env",
			"SOCIALHUB_REFRESH_TOKEN_TTL": "48h",
		},
	)
	require.NoError(t, err)
	assert.Equal(t, ":9000", c.EndpointAddrGRPC)
	assert.Equal(t, "env", c.SecretKey)
	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, 48*time.Hour, c.RefreshTokenValidityDuration)
}

func TestLoad_Flags(t *testing.T) {
	c, err := Load([]string{
		"-d", "postgres://x", "-t", "30s", "-r", "1h", "-b", "pfx-",
		"-public-url", "https://cdn.example.com", "-log-level=debug",
		"-unrelated", "value",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://x", c.DatabaseDSN)
	assert.Equal(t, 30*time.Second, c.AccessTokenValidityDuration)
	assert.Equal(t, time.Hour, c.RefreshTokenValidityDuration)
	assert.Equal(t, "pfx-", c.S3BucketPrefix)
	assert.Equal(t, "https://cdn.example.com", c.StoragePublicURL)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestLoad_BadFlagValue(t *testing.T) {
	_, err := Load([]string{"-t", "soon"}, nil)
	require.Error(t, err)
}

func TestLoad_BadEnvValue(t *testing.T) {
	_, err := Load(nil, map[string]string{"SOCIALHUB_ACCESS_TOKEN_TTL": "soon"})
	require.Error(t, err)
}

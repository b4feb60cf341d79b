package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func memoryEnv(t *testing.T) {
	t.Setenv("FLOCK_DATABASE_DRIVER", "memory")
	t.Setenv("FLOCK_AUTH_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("FLOCK_AUTH_BCRYPT_COST", "4")
	t.Setenv("FLOCK_LOG_LEVEL", "error")
	t.Setenv("FLOCK_CONFIG", "")
}

func TestPlansCommand(t *testing.T) {
	out, err := run(t, "plans")
	require.NoError(t, err)
	for _, tier := range []string{"core", "starter", "standard", "plus", "unlimited"} {
		assert.Contains(t, out, tier)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "flock dev\n", out)
}

func TestSeedCommand(t *testing.T) {
	memoryEnv(t)

	out, err := run(t, "seed", "--tenant-name", "Grace Chapel", "--slug", "grace",
		"--admin-email", "admin@grace.org", "--admin-password", "a long password")
	require.NoError(t, err)
	assert.Contains(t, out, "created tenant grace on the starter plan")
	assert.Contains(t, out, "created admin admin@grace.org")
}

func TestSeedRequiresFlags(t *testing.T) {
	memoryEnv(t)
	t.Setenv("FLOCK_SEED_ADMIN_PASSWORD", "")

	_, err := run(t, "seed", "--tenant-name", "Grace", "--slug", "grace", "--admin-email", "a@grace.org")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}

func TestSeedRejectsUnknownPlan(t *testing.T) {
	memoryEnv(t)

	_, err := run(t, "seed", "--tenant-name", "Grace", "--slug", "grace", "--plan", "gold",
		"--admin-email", "a@grace.org", "--admin-password", "a long password")
	require.Error(t, err)
}

func TestMigrateNeedsPostgres(t *testing.T) {
	memoryEnv(t)

	_, err := run(t, "migrate", "up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")

	_, err = run(t, "migrate", "down", "zero")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positive integer")
}

func TestMigrateFiles(t *testing.T) {
	out, err := run(t, "migrate", "files")
	require.NoError(t, err)
	assert.Contains(t, out, "0001_tenants_users.up.sql")
}

func TestTenantPlanRequiresFlags(t *testing.T) {
	_, err := run(t, "tenant", "plan", "--slug", "grace")
	require.Error(t, err)
}

func TestPrinterPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.Success("done %d", 3)
	p.Warning("careful")
	p.Table([]string{"A", "LONG HEADER"}, [][]string{{"x", "y"}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "✓ done 3", lines[0])
	assert.Equal(t, "⚠ careful", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "A  "))
	assert.NotContains(t, buf.String(), ColorReset)
}

func TestSpinnerPlain(t *testing.T) {
	var buf bytes.Buffer
	s := NewPrinter(&buf).NewSpinner("working")
	s.Start()
	s.Success("finished")
	assert.Equal(t, "✓ finished (< 1s)\n", buf.String())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "< 1s", formatDuration(500*time.Millisecond))
	assert.Equal(t, "42s", formatDuration(42*time.Second))
	assert.Equal(t, "2m5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h30m", formatDuration(90*time.Minute))
}

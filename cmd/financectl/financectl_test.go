package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	appfinance "github.com/dealerdesk/backend/internal/application/finance"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/infrastructure/auth"
	"github.com/dealerdesk/backend/internal/infrastructure/config"
	"github.com/dealerdesk/backend/internal/infrastructure/scheduler"
	"github.com/dealerdesk/backend/internal/infrastructure/statement"
	"github.com/dealerdesk/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "financectl-test-secret-of-32-chars"

// isolate points the CLI at a throwaway sqlite file and returns the work dir
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("DEALER_DATABASE_DRIVER", "sqlite")
	t.Setenv("DEALER_DATABASE_SQLITE_PATH", filepath.Join(dir, "finance.db"))
	t.Setenv("DEALER_JWT_SECRET", testSecret)
	t.Setenv("DEALER_REDIS_ENABLED", "false")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestTokenIssue(t *testing.T) {
	isolate(t)
	tenant, user := uuid.New(), uuid.New()

	out, err := execute(t, "token", "issue", "--tenant", tenant.String(), "--user", user.String(), "--role", "ACCOUNTANT")
	require.NoError(t, err)

	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.NotEmpty(t, body["expires_at"])

	cfg, err := config.Load()
	require.NoError(t, err)
	actor, err := auth.NewJWTService(cfg.JWT).Validate(body["token"])
	require.NoError(t, err)
	assert.Equal(t, shared.Actor{UserID: user, TenantID: tenant, Role: shared.RoleAccountant}, actor)
}

func TestTokenIssue_Errors(t *testing.T) {
	isolate(t)

	_, err := execute(t, "token", "issue", "--user", uuid.NewString())
	assert.EqualError(t, err, "--tenant is required")

	_, err = execute(t, "token", "issue", "--tenant", "acme", "--user", uuid.NewString())
	assert.ErrorContains(t, err, "invalid --tenant")

	_, err = execute(t, "token", "issue", "--tenant", uuid.NewString(), "--user", uuid.NewString(), "--role", "OWNER")
	assert.ErrorIs(t, err, auth.ErrInvalidRole)
}

func TestStatementImport_DryRun(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "cartola.csv", "Fecha;Glosa;Abono\n04/05/2026;DEPOSITO;1.500.000\n")

	out, err := execute(t, "statement", "import", "--file", path, "--decimal-comma", "--dry-run")
	require.NoError(t, err)

	var res statement.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Rows, 1)
	testutil.AssertDecimal(t, "1500000", res.Rows[0].Amount)
	assert.NoFileExists(t, filepath.Join(dir, "finance.db"))
}

func TestStatementImport_RowErrors(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "bad.csv", "date,amount\n2026-05-04,abc\n")

	out, err := execute(t, "statement", "import", "--file", path, "--tenant", uuid.NewString(), "--account", uuid.NewString())
	assert.EqualError(t, err, "1 row(s) could not be parsed")
	assert.Contains(t, out, statement.CodeInvalidAmount)

	_, err = execute(t, "statement", "import", "--file", path, "--delimiter", ";;")
	assert.EqualError(t, err, "--delimiter must be a single character")
}

func TestImportAndReconcile(t *testing.T) {
	dir := isolate(t)
	tenant := uuid.New()
	opts := &globalOptions{tenant: tenant.String(), logLevel: "error"}

	seed := &cobra.Command{}
	seed.SetContext(t.Context())
	a, err := openApp(seed, opts)
	require.NoError(t, err)
	account, err := a.services.Reconciliation.CreateBankAccount(t.Context(), scheduler.SystemActor(tenant), appfinance.CreateBankAccountRequest{
		Name:          "Cuenta corriente",
		AccountNumber: "00-123-45678-09",
	})
	require.NoError(t, err)
	a.close()

	path := writeFile(t, dir, "cartola.csv", "date,amount,description,reference\n2026-05-04,250000,DEPOSITO,TRX-9\n")
	out, err := execute(t, "--tenant", tenant.String(), "--log-level", "error",
		"statement", "import", "--account", account.ID.String(), "--file", path)
	require.NoError(t, err)
	var imported []appfinance.BankTransactionResponse
	require.NoError(t, json.Unmarshal([]byte(out), &imported))
	require.Len(t, imported, 1)
	assert.Equal(t, "TRX-9", imported[0].Reference)

	out, err = execute(t, "--tenant", tenant.String(), "reconcile", "auto", "--account", account.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, `"reconciled": 0`)

	out, err = execute(t, "--tenant", tenant.String(), "reconcile", "accounts")
	require.NoError(t, err)
	assert.Contains(t, out, account.ID.String())

	out, err = execute(t, "--tenant", tenant.String(), "integrity", "verify")
	require.NoError(t, err)
	var report appfinance.IntegrityReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.OK())
	assert.Equal(t, tenant, report.TenantID)

	out, err = execute(t, "--tenant", tenant.String(), "overdue", "refresh")
	require.NoError(t, err)
	assert.Contains(t, out, `"updated": 0`)
}

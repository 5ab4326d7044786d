package main

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/infrastructure/auth"
	"github.com/dealerdesk/backend/internal/infrastructure/statement"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newIntegrityCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "integrity", Short: "Ledger integrity checks"}
	cmd.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "Recompute invoice balances and document links and report violations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := opts.actor()
			if err != nil {
				return err
			}
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.services.Integrity.Verify(cmd.Context(), actor)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report.OK() {
				return fmt.Errorf("integrity check found %d violation(s)", len(report.Violations))
			}
			return nil
		},
	})
	return cmd
}

func newReconcileCmd(opts *globalOptions) *cobra.Command {
	var account string
	cmd := &cobra.Command{Use: "reconcile", Short: "Bank reconciliation"}

	auto := &cobra.Command{
		Use:   "auto",
		Short: "Match unreconciled statement rows of one bank account against payments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := opts.actor()
			if err != nil {
				return err
			}
			accountID, err := uuid.Parse(account)
			if err != nil {
				return fmt.Errorf("invalid --account: %w", err)
			}
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.services.Reconciliation.AutoReconcile(cmd.Context(), actor, accountID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	auto.Flags().StringVar(&account, "account", "", "bank account ID")
	_ = auto.MarkFlagRequired("account")

	accounts := &cobra.Command{
		Use:   "accounts",
		Short: "List the tenant's bank accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := opts.actor()
			if err != nil {
				return err
			}
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()

			list, err := a.services.Reconciliation.ListBankAccounts(cmd.Context(), actor)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		},
	}

	cmd.AddCommand(auto, accounts)
	return cmd
}

type statementFlags struct {
	account      string
	file         string
	decimalComma bool
	delimiter    string
	dryRun       bool
}

func newStatementCmd(opts *globalOptions) *cobra.Command {
	f := &statementFlags{}
	cmd := &cobra.Command{Use: "statement", Short: "Bank statement files"}

	imp := &cobra.Command{
		Use:   "import",
		Short: "Parse a CSV bank export and import its rows into a bank account",
		Long: "Parse a CSV bank export and import its rows into a bank account.\n" +
			"Nothing is imported when any row fails to parse; use --dry-run to see the parsed rows.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := parseStatementFile(f)
			if err != nil {
				return err
			}
			if f.dryRun || !parsed.Valid() {
				if err := printJSON(cmd.OutOrStdout(), parsed); err != nil {
					return err
				}
				if !parsed.Valid() {
					return fmt.Errorf("%d row(s) could not be parsed", parsed.TotalErrors)
				}
				return nil
			}

			actor, err := opts.actor()
			if err != nil {
				return err
			}
			accountID, err := uuid.Parse(f.account)
			if err != nil {
				return fmt.Errorf("invalid --account: %w", err)
			}
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()

			imported, err := a.services.Reconciliation.ImportTransactions(cmd.Context(), actor, accountID, parsed.Request())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), imported)
		},
	}
	imp.Flags().StringVar(&f.account, "account", "", "bank account ID")
	imp.Flags().StringVar(&f.file, "file", "", "CSV file, or - for stdin")
	imp.Flags().BoolVar(&f.decimalComma, "decimal-comma", false, "amounts use a decimal comma (1.234,50)")
	imp.Flags().StringVar(&f.delimiter, "delimiter", "", "field delimiter; detected from the header when empty")
	imp.Flags().BoolVar(&f.dryRun, "dry-run", false, "parse and print without importing")
	_ = imp.MarkFlagRequired("file")

	cmd.AddCommand(imp)
	return cmd
}

func parseStatementFile(f *statementFlags) (*statement.Result, error) {
	var opts []statement.Option
	if f.decimalComma {
		opts = append(opts, statement.WithDecimalComma())
	}
	if f.delimiter != "" {
		if utf8.RuneCountInString(f.delimiter) != 1 {
			return nil, fmt.Errorf("--delimiter must be a single character")
		}
		d, _ := utf8.DecodeRuneInString(f.delimiter)
		opts = append(opts, statement.WithFieldDelimiter(d))
	}

	in, err := openInput(f.file)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = in.Close()
	}()
	return statement.Parse(in, opts...)
}

func newOverdueCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "overdue", Short: "Overdue invoices"}
	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Mark open invoices past their due date as OVERDUE",
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := opts.actor()
			if err != nil {
				return err
			}
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.services.Invoices.RefreshOverdue(cmd.Context(), actor)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	})
	return cmd
}

func newTokenCmd(opts *globalOptions) *cobra.Command {
	var (
		user string
		role string
	)
	cmd := &cobra.Command{Use: "token", Short: "API access tokens"}
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed bearer token for a user of the tenant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := opts.tenantID()
			if err != nil {
				return err
			}
			userID, err := uuid.Parse(user)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			cfg, log, err := loadConfig(opts)
			if err != nil {
				return err
			}
			defer func() {
				_ = log.Sync()
			}()

			token, expiresAt, err := auth.NewJWTService(cfg.JWT).Issue(shared.Actor{
				UserID:   userID,
				TenantID: tenantID,
				Role:     shared.Role(role),
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"token":      token,
				"expires_at": expiresAt.UTC().Format(time.RFC3339),
			})
		},
	}
	issue.Flags().StringVar(&user, "user", "", "user ID the token is issued to")
	issue.Flags().StringVar(&role, "role", string(shared.RoleViewer), "role: ADMIN, MANAGER, SALES, ACCOUNTANT or VIEWER")
	_ = issue.MarkFlagRequired("user")

	cmd.AddCommand(issue)
	return cmd
}

package finance

import (
	"testing"
	"time"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAccount(t *testing.T) *BankAccount {
	t.Helper()
	acc, err := NewBankAccount(uuid.New(), uuid.New(), "Cuenta corriente", "Banco de Chile", "00-123-45678-09", valueobject.CLP, testNow)
	require.NoError(t, err)
	return acc
}

func statementRow(t *testing.T, acc *BankAccount, amount string, date time.Time) *BankTransaction {
	t.Helper()
	tx, err := NewBankTransaction(acc, uuid.Nil, BankTransactionInput{
		TransactionDate: date,
		Amount:          dec(amount),
		Description:     "TRANSF 12345",
	}, testNow)
	require.NoError(t, err)
	return tx
}

func completedPayment(amount string, date time.Time) Payment {
	p := Payment{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(uuid.New(), uuid.Nil, date),
		Amount:              dec(amount),
		Status:              PaymentStatusCompleted,
		PaymentDate:         date,
	}
	return p
}

func TestPaymentMatcher_Match(t *testing.T) {
	acc := testAccount(t)
	matcher := NewPaymentMatcher(0)
	require.Equal(t, DefaultMatchWindowDays, matcher.WindowDays())

	t.Run("transaction two days after the payment", func(t *testing.T) {
		p := completedPayment("975000", testNow)
		tx := statementRow(t, acc, "975000", testNow.AddDate(0, 0, 2))

		got := matcher.Match(tx, []Payment{p}, nil)
		require.NotNil(t, got)
		assert.Equal(t, p.ID, got.ID)

		require.NoError(t, tx.Reconcile(got.ID, uuid.New(), testNow))
		assert.True(t, tx.Reconciled)
		assert.Equal(t, p.ID, *tx.PaymentID)

		// a second pass sees the payment as linked and the row as reconciled
		requireDomainError(t, tx.Reconcile(got.ID, uuid.Nil, testNow), shared.KindStateConflict, CodeAlreadyReconciled)
		assert.Nil(t, matcher.Match(statementRow(t, acc, "975000", testNow), []Payment{p}, map[uuid.UUID]bool{p.ID: true}))
	})

	t.Run("amount must match exactly", func(t *testing.T) {
		tx := statementRow(t, acc, "975000", testNow)
		assert.Nil(t, matcher.Match(tx, []Payment{completedPayment("975000.01", testNow)}, nil))
	})

	t.Run("outside the date window", func(t *testing.T) {
		tx := statementRow(t, acc, "1000", testNow.AddDate(0, 0, 4))
		assert.Nil(t, matcher.Match(tx, []Payment{completedPayment("1000", testNow)}, nil))
	})

	t.Run("refunded payments are not candidates", func(t *testing.T) {
		p := completedPayment("1000", testNow)
		p.Status = PaymentStatusRefunded
		assert.Nil(t, matcher.Match(statementRow(t, acc, "1000", testNow), []Payment{p}, nil))
	})

	t.Run("earliest candidate wins", func(t *testing.T) {
		late := completedPayment("5000", testNow.AddDate(0, 0, 1))
		early := completedPayment("5000", testNow.AddDate(0, 0, -1))
		tx := statementRow(t, acc, "5000", testNow)

		got := matcher.Match(tx, []Payment{late, early}, nil)
		require.NotNil(t, got)
		assert.Equal(t, early.ID, got.ID)

		got = matcher.Match(tx, []Payment{late, early}, map[uuid.UUID]bool{early.ID: true})
		require.NotNil(t, got)
		assert.Equal(t, late.ID, got.ID)
	})

	t.Run("window bounds", func(t *testing.T) {
		from, to := matcher.Window(statementRow(t, acc, "1", testNow))
		assert.Equal(t, time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC), from)
		assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), to)
	})
}

func TestBankTransaction_CheckPaymentLink(t *testing.T) {
	acc := testAccount(t)
	p := completedPayment("1000", testNow)

	tx := statementRow(t, acc, "1000", testNow)
	require.NoError(t, tx.CheckPaymentLink(&p, false))
	requireDomainError(t, tx.CheckPaymentLink(&p, true), shared.KindStateConflict, CodePaymentAlreadyLinked)

	refunded := completedPayment("1000", testNow)
	refunded.Status = PaymentStatusRefunded
	requireDomainError(t, tx.CheckPaymentLink(&refunded, false), shared.KindStateConflict, CodePaymentNotCompleted)
}

func TestNewBankTransaction_ZeroAmount(t *testing.T) {
	acc := testAccount(t)
	_, err := NewBankTransaction(acc, uuid.Nil, BankTransactionInput{TransactionDate: testNow, Amount: dec("0")}, testNow)
	requireDomainError(t, err, shared.KindValidation, CodeInvalidAmount)
}

func TestReconciliationReport_Add(t *testing.T) {
	report := ReconciliationReport{Mode: ReconciliationModeManual}
	report.Add(ReconciliationDetail{TransactionID: uuid.New(), Outcome: MatchOutcomeReconciled})
	report.Add(ReconciliationDetail{TransactionID: uuid.New(), Outcome: MatchOutcomeFailed, Error: "payment not found"})
	report.Add(ReconciliationDetail{TransactionID: uuid.New(), Outcome: MatchOutcomeNoMatch})

	assert.Equal(t, 1, report.Reconciled)
	assert.Equal(t, 2, report.Failed)
	assert.Len(t, report.Details, 3)
}

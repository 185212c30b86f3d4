package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/wisatabooks/ledger/internal/domain/account"
)

// TrialBalanceRow is one postable account's totals in the trial balance
type TrialBalanceRow struct {
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Type        account.Type    `json:"type"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Balance     decimal.Decimal `json:"balance"`
}

// TrialBalance lists every postable account with its accumulated sides. The
// grand totals agree when every posted entry was balanced.
type TrialBalance struct {
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
}

// BalanceSheetLine is one account's balance within a balance sheet section
type BalanceSheetLine struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// BalanceSheet groups postable accounts into the three statement sections,
// ordered by code within each. CurrentEarnings carries revenue minus expense
// so the sheet balances before closing entries are posted.
type BalanceSheet struct {
	Assets           []BalanceSheetLine `json:"assets"`
	Liabilities      []BalanceSheetLine `json:"liabilities"`
	Equity           []BalanceSheetLine `json:"equity"`
	TotalAssets      decimal.Decimal    `json:"total_assets"`
	TotalLiabilities decimal.Decimal    `json:"total_liabilities"`
	TotalEquity      decimal.Decimal    `json:"total_equity"`
	CurrentEarnings  decimal.Decimal    `json:"current_earnings"`
}

// ReportServiceImpl implements ReportService over the chart of accounts
type ReportServiceImpl struct {
	accountRepo account.Repository
}

// NewReportService creates a new report service
func NewReportService(accountRepo account.Repository) *ReportServiceImpl {
	return &ReportServiceImpl{accountRepo: accountRepo}
}

// TrialBalance builds the trial balance from postable account totals
func (s *ReportServiceImpl) TrialBalance(ctx context.Context) (*TrialBalance, error) {
	accounts, err := s.accountRepo.ListPostable(ctx)
	if err != nil {
		return nil, err
	}

	tb := &TrialBalance{
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	for _, acc := range accounts {
		tb.Rows = append(tb.Rows, TrialBalanceRow{
			Code:        acc.Code,
			Name:        acc.Name,
			Type:        acc.Type,
			TotalDebit:  acc.TotalDebit,
			TotalCredit: acc.TotalCredit,
			Balance:     acc.Balance,
		})
		tb.TotalDebit = tb.TotalDebit.Add(acc.TotalDebit)
		tb.TotalCredit = tb.TotalCredit.Add(acc.TotalCredit)
	}

	return tb, nil
}

// BalanceSheet groups postable accounts by statement section, folding revenue
// and expense balances into current earnings
func (s *ReportServiceImpl) BalanceSheet(ctx context.Context) (*BalanceSheet, error) {
	accounts, err := s.accountRepo.ListPostable(ctx)
	if err != nil {
		return nil, err
	}

	bs := &BalanceSheet{
		TotalAssets:      decimal.Zero,
		TotalLiabilities: decimal.Zero,
		TotalEquity:      decimal.Zero,
		CurrentEarnings:  decimal.Zero,
	}
	for _, acc := range accounts {
		line := BalanceSheetLine{Code: acc.Code, Name: acc.Name, Balance: acc.Balance}
		switch acc.Type {
		case account.TypeAsset:
			bs.Assets = append(bs.Assets, line)
			bs.TotalAssets = bs.TotalAssets.Add(acc.Balance)
		case account.TypeLiability:
			bs.Liabilities = append(bs.Liabilities, line)
			bs.TotalLiabilities = bs.TotalLiabilities.Add(acc.Balance)
		case account.TypeEquity:
			bs.Equity = append(bs.Equity, line)
			bs.TotalEquity = bs.TotalEquity.Add(acc.Balance)
		case account.TypeRevenue:
			bs.CurrentEarnings = bs.CurrentEarnings.Add(acc.Balance)
		case account.TypeExpense:
			// Expense balances grow with debits; they reduce earnings
			bs.CurrentEarnings = bs.CurrentEarnings.Sub(acc.Balance)
		}
	}

	return bs, nil
}

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// 컬럼 순서: customer_id, business_name, discount_percent, credit_limit
const minColumns = 2

type importSummary struct {
	Rows       int
	Skipped    int
	Duplicates int
}

func readCreditAccountsFromXLSX(filePath string) ([]model.CreditAccount, importSummary, error) {
	var summary importSummary

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, summary, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	// 첫 번째 시트만 읽음
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, summary, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, summary, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, summary, fmt.Errorf("no data found in XLSX file")
	}

	var accounts []model.CreditAccount
	seen := make(map[uint]bool)

	// 첫 행은 헤더
	for _, row := range rows[1:] {
		summary.Rows++

		account, ok := parseCreditAccountRow(row)
		if !ok {
			summary.Skipped++
			continue
		}
		if seen[account.CustomerID] {
			summary.Duplicates++
			continue
		}
		seen[account.CustomerID] = true
		accounts = append(accounts, account)
	}

	return accounts, summary, nil
}

func parseCreditAccountRow(row []string) (model.CreditAccount, bool) {
	if len(row) < minColumns {
		return model.CreditAccount{}, false
	}

	customerID, err := strconv.ParseUint(strings.TrimSpace(row[0]), 10, 32)
	if err != nil || customerID == 0 {
		return model.CreditAccount{}, false
	}
	name := strings.TrimSpace(row[1])
	if name == "" {
		return model.CreditAccount{}, false
	}

	discount, ok := optionalDecimal(row, 2)
	if !ok || discount.IsNegative() || discount.GreaterThan(decimal.NewFromInt(100)) {
		return model.CreditAccount{}, false
	}
	limit, ok := optionalDecimal(row, 3)
	if !ok || limit.IsNegative() {
		return model.CreditAccount{}, false
	}

	return model.CreditAccount{
		CustomerID:      uint(customerID),
		BusinessName:    name,
		DiscountPercent: discount,
		CreditLimit:     limit,
	}, true
}

// 빈 칸은 0
func optionalDecimal(row []string, idx int) (decimal.Decimal, bool) {
	if idx >= len(row) || strings.TrimSpace(row[idx]) == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(strings.TrimSpace(row[idx]))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

package store

import (
	"fmt"
)

// LedgerAggregate is the sum and row count of one date-bucket query.
type LedgerAggregate struct {
	Total float64
	Count int
}

// RecordPOSSale appends a physical-store sale to the ledger.
// saleDate must be YYYY-MM-DD.
func (s *Store) RecordPOSSale(saleDate string, total float64, reference string) (*POSSale, error) {
	res, err := s.db.Exec(`
		INSERT INTO pos_sales (sale_date, total, reference) VALUES (?, ?, ?)
	`, saleDate, total, reference)
	if err != nil {
		return nil, fmt.Errorf("record pos sale: %w", err)
	}
	id, _ := res.LastInsertId()
	var sale POSSale
	err = s.db.QueryRow(`
		SELECT id, sale_date, total, COALESCE(reference,''), created_at FROM pos_sales WHERE id = ?
	`, id).Scan(&sale.ID, &sale.SaleDate, &sale.Total, &sale.Reference, &sale.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("record pos sale: %w", err)
	}
	return &sale, nil
}

// SumSalesByDate aggregates ledger rows whose sale_date equals date (YYYY-MM-DD).
func (s *Store) SumSalesByDate(date string) (LedgerAggregate, error) {
	var agg LedgerAggregate
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(total),0), COUNT(*) FROM pos_sales WHERE sale_date = ?
	`, date).Scan(&agg.Total, &agg.Count)
	if err != nil {
		return LedgerAggregate{}, fmt.Errorf("sum sales by date: %w", err)
	}
	return agg, nil
}

// LedgerIssues summarizes rows that would distort reconciliation.
type LedgerIssues struct {
	NegativeTotals int `json:"negative_totals"`
	MalformedDates int `json:"malformed_dates"`
}

// CheckLedger scans the ledger for rows with negative totals or sale_date
// values that are not YYYY-MM-DD. The nightly sweep logs the result.
func (s *Store) CheckLedger() (LedgerIssues, error) {
	var issues LedgerIssues
	err := s.db.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN total < 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN sale_date NOT GLOB '[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9]' THEN 1 ELSE 0 END), 0)
		FROM pos_sales
	`).Scan(&issues.NegativeTotals, &issues.MalformedDates)
	if err != nil {
		return LedgerIssues{}, fmt.Errorf("check ledger: %w", err)
	}
	return issues, nil
}

// SumSalesSince aggregates ledger rows whose sale_date is on or after date.
func (s *Store) SumSalesSince(date string) (LedgerAggregate, error) {
	var agg LedgerAggregate
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(total),0), COUNT(*) FROM pos_sales WHERE sale_date >= ?
	`, date).Scan(&agg.Total, &agg.Count)
	if err != nil {
		return LedgerAggregate{}, fmt.Errorf("sum sales since: %w", err)
	}
	return agg, nil
}

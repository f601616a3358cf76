package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/family-fund-api/internal/dto"
	"github.com/noah-isme/family-fund-api/internal/models"
)

// The functions in this file are pure reductions over rows fetched by ReportService.

// SummarizeCases totals the ledger across all cases. Backlog is approved minus disbursed over
// approved and completed cases, taken as stored.
func SummarizeCases(cases []models.AssistanceCase) dto.CaseSummary {
	summary := dto.CaseSummary{
		ByStatus:       make(map[models.CaseStatus]int, len(models.CaseStatuses)),
		TotalRequested: decimal.Zero,
		TotalApproved:  decimal.Zero,
		TotalDisbursed: decimal.Zero,
		Backlog:        decimal.Zero,
	}
	for _, status := range models.CaseStatuses {
		summary.ByStatus[status] = 0
	}
	for i := range cases {
		c := &cases[i]
		summary.TotalCases++
		summary.ByStatus[c.Status]++
		summary.TotalRequested = summary.TotalRequested.Add(c.RequestedAmount)
		summary.TotalDisbursed = summary.TotalDisbursed.Add(c.DisbursedAmount)
		if c.ApprovedAmount.Valid {
			summary.TotalApproved = summary.TotalApproved.Add(c.ApprovedAmount.Decimal)
		}
		if c.Status == models.CaseStatusApproved || c.Status == models.CaseStatusCompleted {
			summary.Backlog = summary.Backlog.Add(c.Remaining())
		}
	}
	return summary
}

// SummarizeCasesByType returns one line per known case type, in display order.
func SummarizeCasesByType(cases []models.AssistanceCase) []dto.CaseTypeSummary {
	index := make(map[models.CaseType]int, len(models.CaseTypes))
	out := make([]dto.CaseTypeSummary, len(models.CaseTypes))
	for i, t := range models.CaseTypes {
		index[t] = i
		out[i] = dto.CaseTypeSummary{CaseType: t, Requested: decimal.Zero, Approved: decimal.Zero, Disbursed: decimal.Zero}
	}
	for i := range cases {
		c := &cases[i]
		pos, ok := index[c.CaseType]
		if !ok {
			continue
		}
		line := &out[pos]
		line.Count++
		line.Requested = line.Requested.Add(c.RequestedAmount)
		line.Disbursed = line.Disbursed.Add(c.DisbursedAmount)
		if c.ApprovedAmount.Valid {
			line.Approved = line.Approved.Add(c.ApprovedAmount.Decimal)
		}
	}
	return out
}

// ReconcileCases compares each case's stored disbursed total with the sum of its disbursement
// rows. It reports drift and never corrects it.
func ReconcileCases(cases []models.AssistanceCase, disbursements []models.Disbursement) dto.ReconciliationReport {
	sums := make(map[string]decimal.Decimal, len(cases))
	counts := make(map[string]int, len(cases))
	for _, d := range disbursements {
		sums[d.CaseID] = sums[d.CaseID].Add(d.Amount)
		counts[d.CaseID]++
	}

	report := dto.ReconciliationReport{Cases: make([]dto.CaseReconciliation, 0, len(cases))}
	known := make(map[string]struct{}, len(cases))
	for i := range cases {
		c := &cases[i]
		known[c.ID] = struct{}{}
		ledger := sums[c.ID]
		drift := c.DisbursedAmount.Sub(ledger)
		consistent := drift.IsZero()
		if c.ApprovedAmount.Valid && c.DisbursedAmount.GreaterThan(c.ApprovedAmount.Decimal) {
			consistent = false
		}
		if !c.ApprovedAmount.Valid && counts[c.ID] > 0 {
			consistent = false
		}
		line := dto.CaseReconciliation{
			CaseID:            c.ID,
			Title:             c.Title,
			Status:            c.Status,
			RecordedDisbursed: c.DisbursedAmount,
			LedgerDisbursed:   ledger,
			Drift:             drift,
			Disbursements:     counts[c.ID],
			Consistent:        consistent,
		}
		if !consistent {
			report.Inconsistent++
		}
		report.Cases = append(report.Cases, line)
	}
	report.Checked = len(report.Cases)
	for _, d := range disbursements {
		if _, ok := known[d.CaseID]; !ok {
			report.Orphaned++
		}
	}
	return report
}

// SummarizeFunds reports each fund's collections with historical balances folded in.
// Cases are paid from takaful, so only that fund carries Disbursed and a reduced Available.
func SummarizeFunds(members []models.Member, payments []models.Payment, cases []models.AssistanceCase) []dto.FundSummary {
	out := make([]dto.FundSummary, len(models.Funds))
	index := make(map[models.Fund]int, len(models.Funds))
	for i, fund := range models.Funds {
		index[fund] = i
		out[i] = dto.FundSummary{
			Fund:              fund,
			Collected:         decimal.Zero,
			Pending:           decimal.Zero,
			HistoricalPaid:    decimal.Zero,
			HistoricalPending: decimal.Zero,
			Disbursed:         decimal.Zero,
			Available:         decimal.Zero,
		}
	}

	for i := range members {
		for _, fund := range models.Funds {
			paid, pending := members[i].Historical(fund)
			line := &out[index[fund]]
			line.HistoricalPaid = line.HistoricalPaid.Add(paid)
			line.HistoricalPending = line.HistoricalPending.Add(pending)
		}
	}
	for _, p := range payments {
		pos, ok := index[p.Fund]
		if !ok {
			continue
		}
		line := &out[pos]
		switch p.Status {
		case models.PaymentStatusPaid:
			line.Collected = line.Collected.Add(p.Amount)
		case models.PaymentStatusPending:
			line.Pending = line.Pending.Add(p.Amount)
		}
	}

	takaful := &out[index[models.FundTakaful]]
	for i := range cases {
		takaful.Disbursed = takaful.Disbursed.Add(cases[i].DisbursedAmount)
	}

	for i := range out {
		line := &out[i]
		line.Collected = line.Collected.Add(line.HistoricalPaid)
		line.Pending = line.Pending.Add(line.HistoricalPending)
		line.Available = line.Collected.Sub(line.Disbursed)
	}
	return out
}

// SummarizeMembers reports every member's per-fund position, historical balances included.
func SummarizeMembers(members []models.Member, payments []models.Payment) []dto.MemberSummary {
	byMember := make(map[string][]models.Payment, len(members))
	for _, p := range payments {
		byMember[p.MemberID] = append(byMember[p.MemberID], p)
	}

	out := make([]dto.MemberSummary, 0, len(members))
	for i := range members {
		m := &members[i]
		balances := make(map[models.Fund]*dto.FundBalance, len(models.Funds))
		for _, fund := range models.Funds {
			paid, pending := m.Historical(fund)
			balances[fund] = &dto.FundBalance{Collected: paid, Pending: pending}
		}
		for _, p := range byMember[m.ID] {
			balance, ok := balances[p.Fund]
			if !ok {
				continue
			}
			switch p.Status {
			case models.PaymentStatusPaid:
				balance.Collected = balance.Collected.Add(p.Amount)
			case models.PaymentStatusPending:
				balance.Pending = balance.Pending.Add(p.Amount)
			}
		}
		takaful, plus := *balances[models.FundTakaful], *balances[models.FundPlus]
		out = append(out, dto.MemberSummary{
			MemberID:       m.ID,
			FullName:       m.FullName,
			Active:         m.Active,
			Takaful:        takaful,
			Plus:           plus,
			TotalCollected: takaful.Collected.Add(plus.Collected),
			TotalPending:   takaful.Pending.Add(plus.Pending),
		})
	}
	return out
}

// SummarizeMonthly returns twelve lines for year, one per calendar month, whether or not
// any dues fall in that month.
func SummarizeMonthly(payments []models.Payment, year int) []dto.MonthlySummary {
	out := make([]dto.MonthlySummary, 12)
	for i := range out {
		out[i] = dto.MonthlySummary{
			Period:         fmt.Sprintf("%04d-%02d", year, i+1),
			TakafulPaid:    decimal.Zero,
			TakafulPending: decimal.Zero,
			PlusPaid:       decimal.Zero,
			PlusPending:    decimal.Zero,
		}
	}
	for _, p := range payments {
		period := p.Period.UTC()
		if period.Year() != year {
			continue
		}
		line := &out[int(period.Month())-1]
		paid := p.Status == models.PaymentStatusPaid
		switch {
		case p.Fund == models.FundTakaful && paid:
			line.TakafulPaid = line.TakafulPaid.Add(p.Amount)
		case p.Fund == models.FundTakaful:
			line.TakafulPending = line.TakafulPending.Add(p.Amount)
		case p.Fund == models.FundPlus && paid:
			line.PlusPaid = line.PlusPaid.Add(p.Amount)
		case p.Fund == models.FundPlus:
			line.PlusPending = line.PlusPending.Add(p.Amount)
		}
	}
	return out
}

// yearBounds returns [Jan 1 of year, Jan 1 of year+1) in UTC.
func yearBounds(year int) (time.Time, time.Time) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(1, 0, 0)
}

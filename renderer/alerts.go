package renderer

import (
	"github.com/etnz/cashbook"
	"github.com/etnz/cashbook/date"
)

// AlertsReport lists the accounts whose balance falls below their alert
// threshold in a date range.
type AlertsReport struct {
	Range  string     `json:"range"`
	Alerts []AlertRow `json:"alerts"`
}

// AlertRow is the first crossing of an account threshold.
type AlertRow struct {
	Account string `json:"account"`
	Date    string `json:"date"`
	Limit   string `json:"limit"`
	Balance string `json:"balance"`
}

// NewAlertsReport finds the first day in r on which each account of s is
// below its alert threshold.
func NewAlertsReport(s *cashbook.Store, r date.Range) *AlertsReport {
	cur := s.Currency()
	rep := &AlertsReport{Range: r.String(), Alerts: []AlertRow{}}
	for _, a := range s.Accounts() {
		tl := a.Timeline()
		on, ok := tl.FirstAlert(r.From, r.To, a.Alert())
		if !ok {
			continue
		}
		rep.Alerts = append(rep.Alerts, AlertRow{
			Account: cell(a.Name()),
			Date:    on.String(),
			Limit:   cur.Format(a.Alert().Limit()),
			Balance: cur.Format(tl.BalanceAt(on)),
		})
	}
	return rep
}

// RenderAlerts renders the alerts report to a markdown string.
func RenderAlerts(r *AlertsReport) string {
	return renderTemplate("alerts", "alerts.md", nil, r)
}

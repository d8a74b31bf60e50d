package renderer

import (
	"github.com/etnz/cashbook"
	"github.com/etnz/cashbook/date"
)

// TimelineReport lists the constant balance intervals of a timeline.
type TimelineReport struct {
	Title     string        `json:"title"`
	Intervals []IntervalRow `json:"intervals"`
	Final     string        `json:"final"`
	// Limit is the alert threshold, empty when there is none.
	Limit string `json:"limit,omitempty"`
}

// IntervalRow is an interval of constant balance. From and To are both
// included, "-" when unbounded.
type IntervalRow struct {
	From         string `json:"from"`
	To           string `json:"to"`
	Balance      string `json:"balance"`
	Transactions int    `json:"transactions"`
	Alert        bool   `json:"alert,omitempty"`
}

// NewTimelineReport builds the report of the intervals of t overlapping r.
// Intervals whose balance is below th are flagged.
func NewTimelineReport(title string, t *cashbook.Timeline, th cashbook.Threshold, r date.Range) *TimelineReport {
	cur := t.Currency()
	rep := &TimelineReport{Title: title, Final: cur.Format(t.Final()), Intervals: []IntervalRow{}}
	if !th.IsLifeless() {
		rep.Limit = cur.Format(th.Limit())
	}
	for i, iv := range t.All() {
		if !r.To.IsZero() && !iv.Start.IsZero() && iv.Start.After(r.To) {
			break
		}
		if !r.From.IsZero() && !iv.End.IsZero() && !iv.End.After(r.From) {
			continue
		}
		txs, _ := t.TransactionsOf(i)
		row := IntervalRow{
			From:         iv.Start.String(),
			To:           "-",
			Balance:      cur.Format(iv.Balance),
			Transactions: len(txs),
			Alert:        !th.IsLifeless() && cur.Compare(iv.Balance, th.Limit()) < 0,
		}
		if !iv.End.IsZero() {
			row.To = iv.End.Add(-1).String()
		}
		rep.Intervals = append(rep.Intervals, row)
	}
	return rep
}

// RenderTimeline renders the timeline report to a markdown string.
func RenderTimeline(r *TimelineReport) string {
	return renderTemplate("timeline", "timeline.md", nil, r)
}

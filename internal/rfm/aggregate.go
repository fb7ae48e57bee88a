package rfm

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerAggregate holds the raw per-customer statistics of one run. It is
// rebuilt from the full transaction set every time.
type CustomerAggregate struct {
	CustomerID          string
	CustomerName        string
	TransactionCount    int
	TotalAmount         decimal.Decimal
	LastTransactionDate time.Time
}

// Aggregate groups transactions by the raw customer_id string. Customers are
// returned in order of first appearance.
func Aggregate(transactions []Transaction) []CustomerAggregate {
	positions := make(map[string]int)
	var aggregates []CustomerAggregate

	for _, tx := range transactions {
		pos, ok := positions[tx.CustomerID]
		if !ok {
			pos = len(aggregates)
			positions[tx.CustomerID] = pos
			aggregates = append(aggregates, CustomerAggregate{
				CustomerID:          tx.CustomerID,
				TotalAmount:         decimal.Zero,
				LastTransactionDate: tx.Date,
			})
		}

		agg := &aggregates[pos]
		agg.TransactionCount++
		agg.TotalAmount = agg.TotalAmount.Add(decimal.NewFromFloat(tx.Amount))
		if tx.Date.After(agg.LastTransactionDate) {
			agg.LastTransactionDate = tx.Date
		}
		if tx.CustomerName != "" {
			agg.CustomerName = tx.CustomerName
		}
	}
	return aggregates
}

const secondsPerDay = 24 * 60 * 60

// RecencyDays is the number of whole days between last and now, rounded
// down. A last date after now gives a negative value. Unix seconds keep the
// result exact for any year.
func RecencyDays(now, last time.Time) int {
	d := now.Unix() - last.Unix()
	days := d / secondsPerDay
	if d%secondsPerDay != 0 && d < 0 {
		days--
	}
	return int(days)
}

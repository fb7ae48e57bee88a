package rfm

import (
	"time"

	"github.com/shopspring/decimal"
)

// Score is the RFM scoring of one customer.
type Score struct {
	CustomerID          string
	CustomerName        string
	RecencyDays         int
	Frequency           int
	Monetary            decimal.Decimal
	RecencyScore        int
	FrequencyScore      int
	MonetaryScore       int
	LastTransactionDate time.Time
}

// Assignment is the segment chosen for one customer, together with the
// statistics it was derived from.
type Assignment struct {
	Score
	Segment  Segment
	AvgSpend decimal.Decimal
}

// ScoreCustomers scores every aggregate against the quartiles of the whole
// slice. Recency is scored in reverse: fewer days since the last purchase
// is better.
func ScoreCustomers(aggregates []CustomerAggregate, now time.Time) []Score {
	if len(aggregates) == 0 {
		return nil
	}

	recencies := make([]int, len(aggregates))
	frequencies := make([]int, len(aggregates))
	monetaries := make([]decimal.Decimal, len(aggregates))
	for i, agg := range aggregates {
		recencies[i] = RecencyDays(now, agg.LastTransactionDate)
		frequencies[i] = agg.TransactionCount
		monetaries[i] = agg.TotalAmount
	}

	recencyQ := IntQuartiles(recencies)
	frequencyQ := IntQuartiles(frequencies)
	monetaryQ := NewQuartiles(monetaries, decimal.Decimal.Cmp)

	scores := make([]Score, len(aggregates))
	for i, agg := range aggregates {
		scores[i] = Score{
			CustomerID:          agg.CustomerID,
			CustomerName:        agg.CustomerName,
			RecencyDays:         recencies[i],
			Frequency:           frequencies[i],
			Monetary:            monetaries[i],
			RecencyScore:        recencyQ.Score(recencies[i], true),
			FrequencyScore:      frequencyQ.Score(frequencies[i], false),
			MonetaryScore:       monetaryQ.Score(monetaries[i], false),
			LastTransactionDate: agg.LastTransactionDate,
		}
	}
	return scores
}

// Run aggregates, scores and classifies the unified transaction set as of
// now. It yields one assignment per distinct customer.
func Run(transactions []Transaction, now time.Time) []Assignment {
	scores := ScoreCustomers(Aggregate(transactions), now)

	assignments := make([]Assignment, len(scores))
	for i, s := range scores {
		assignments[i] = Assignment{
			Score:    s,
			Segment:  Classify(s.RecencyScore, s.FrequencyScore, s.MonetaryScore),
			AvgSpend: s.Monetary.Div(decimal.NewFromInt(int64(s.Frequency))),
		}
	}
	return assignments
}

// SegmentCount is the number of customers and revenue of one segment.
type SegmentCount struct {
	Segment   Segment
	Customers int
	Revenue   decimal.Decimal
}

// Summarize counts assignments per segment, in rule order. Segments with no
// customers are included with zero values.
func Summarize(assignments []Assignment) []SegmentCount {
	bySegment := make(map[Segment]*SegmentCount, len(AllSegments))
	counts := make([]SegmentCount, len(AllSegments))
	for i, s := range AllSegments {
		counts[i] = SegmentCount{Segment: s, Revenue: decimal.Zero}
		bySegment[s] = &counts[i]
	}
	for _, a := range assignments {
		c := bySegment[a.Segment]
		c.Customers++
		c.Revenue = c.Revenue.Add(a.Monetary)
	}
	return counts
}

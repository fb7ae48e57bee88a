package rfm

import (
	"strconv"
)

// MergeOptions controls how a new batch is combined with stored history.
type MergeOptions struct {
	// DedupeReuploads drops batch rows that exactly repeat a stored row
	// (same customer, date and amount). Each stored row absorbs at most one
	// batch row. Off by default: overlapping re-uploads are counted twice.
	DedupeReuploads bool
}

// Merged is the outcome of combining history with a new batch.
type Merged struct {
	// Unified is every transaction the segmentation must consider.
	Unified []Transaction
	// Accepted is the part of the batch that should be stored.
	Accepted []Transaction
}

// Merge concatenates existing history and the new batch, in that order.
func Merge(existing, batch []Transaction, opts MergeOptions) Merged {
	accepted := batch
	if opts.DedupeReuploads {
		accepted = withoutRepeats(existing, batch)
	}

	unified := make([]Transaction, 0, len(existing)+len(accepted))
	unified = append(unified, existing...)
	unified = append(unified, accepted...)
	return Merged{Unified: unified, Accepted: accepted}
}

func withoutRepeats(existing, batch []Transaction) []Transaction {
	stored := make(map[string]int, len(existing))
	for _, tx := range existing {
		stored[dedupeKey(tx)]++
	}

	kept := make([]Transaction, 0, len(batch))
	for _, tx := range batch {
		key := dedupeKey(tx)
		if stored[key] > 0 {
			stored[key]--
			continue
		}
		kept = append(kept, tx)
	}
	return kept
}

func dedupeKey(tx Transaction) string {
	return tx.CustomerID + "\x00" + tx.Date.Format("2006-01-02") + "\x00" + strconv.FormatFloat(tx.Amount, 'g', -1, 64)
}

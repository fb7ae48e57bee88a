package rfm

import (
	"fmt"
)

// Segment is a named behavioural group.
type Segment string

const (
	Champions          Segment = "Champions"
	LoyalCustomers     Segment = "Loyal Customers"
	PotentialLoyalists Segment = "Potential Loyalists"
	RecentCustomers    Segment = "Recent Customers"
	AtRisk             Segment = "At Risk"
	CantLoseThem       Segment = "Cant Lose Them"
	Lost               Segment = "Lost"
	BigSpenders        Segment = "Big Spenders"
	NeedAttention      Segment = "Need Attention"
)

type segmentRule struct {
	segment Segment
	matches func(r, f, m int) bool
}

// Evaluated top to bottom, first match wins. The conditions overlap on
// purpose; the order is what disambiguates them.
var segmentRules = []segmentRule{
	{Champions, func(r, f, m int) bool { return r >= 4 && f >= 4 && m >= 4 }},
	{LoyalCustomers, func(r, f, m int) bool { return r >= 3 && f >= 3 && m >= 3 }},
	{PotentialLoyalists, func(r, f, m int) bool { return r >= 3 && f <= 2 }},
	{RecentCustomers, func(r, f, m int) bool { return r >= 3 && f >= 1 && m <= 2 }},
	{AtRisk, func(r, f, m int) bool { return r <= 2 && f >= 3 }},
	{CantLoseThem, func(r, f, m int) bool { return r <= 2 && f <= 2 && m >= 3 }},
	{Lost, func(r, f, m int) bool { return r <= 2 && f <= 2 }},
	{BigSpenders, func(r, f, m int) bool { return f >= 3 && m >= 3 }},
	{NeedAttention, func(r, f, m int) bool { return true }},
}

// AllSegments lists every segment in rule order.
var AllSegments = []Segment{
	Champions,
	LoyalCustomers,
	PotentialLoyalists,
	RecentCustomers,
	AtRisk,
	CantLoseThem,
	Lost,
	BigSpenders,
	NeedAttention,
}

// Classify maps a recency/frequency/monetary score triple to its segment.
func Classify(r, f, m int) Segment {
	for _, rule := range segmentRules {
		if rule.matches(r, f, m) {
			return rule.segment
		}
	}
	return NeedAttention
}

// ParseSegment returns the segment with the given name.
func ParseSegment(name string) (Segment, error) {
	for _, s := range AllSegments {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown segment %q", name)
}

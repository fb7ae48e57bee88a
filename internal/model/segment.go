package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CustomerSegment is the persisted RFM result for one customer of one user.
// Rows are upserted on (user_id, customer_id) every time the user's history
// is re-segmented.
type CustomerSegment struct {
	ID                  string          `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID              string          `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_customer_segments_user_customer,priority:1"`
	CustomerID          string          `json:"customer_id" gorm:"type:varchar(255);not null;uniqueIndex:idx_customer_segments_user_customer,priority:2"`
	CustomerName        *string         `json:"customer_name,omitempty" gorm:"type:varchar(255)"`
	UploadID            *string         `json:"upload_id,omitempty" gorm:"type:varchar(36);index"`
	SegmentName         string          `json:"segment_name" gorm:"type:varchar(50);not null;index"`
	RecencyScore        int             `json:"recency_score" gorm:"not null"`
	FrequencyScore      int             `json:"frequency_score" gorm:"not null"`
	MonetaryScore       int             `json:"monetary_score" gorm:"not null"`
	RecencyDays         int             `json:"recency_days"`
	TotalTransactions   int             `json:"total_transactions" gorm:"not null"`
	TotalSpend          decimal.Decimal `json:"total_spend" gorm:"type:decimal(20,6);not null"`
	AvgSpend            decimal.Decimal `json:"avg_spend" gorm:"type:decimal(20,6);not null"`
	LastTransactionDate datatypes.Date  `json:"last_transaction_date" gorm:"not null"`
	UpdatedAt           time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

func (CustomerSegment) TableName() string {
	return "customer_segments"
}

func (s *CustomerSegment) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// SegmentSummary aggregates the segment rows of one segment name.
type SegmentSummary struct {
	SegmentName  string          `json:"segment_name"`
	Customers    int64           `json:"customers"`
	Percentage   float64         `json:"percentage"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	AvgSpend     decimal.Decimal `json:"avg_spend"`
	AvgFrequency float64         `json:"avg_frequency"`
}

// SegmentSummaryResponse はセグメント別集計のレスポンス
type SegmentSummaryResponse struct {
	Segments       []SegmentSummary `json:"segments"`
	TotalCustomers int64            `json:"total_customers"`
	TotalRevenue   decimal.Decimal  `json:"total_revenue"`
}

// SegmentListResponse はセグメント一覧（ページング付き）のレスポンス
type SegmentListResponse struct {
	Segments   []CustomerSegment `json:"segments"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
	TotalItems int64             `json:"total_items"`
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Transaction is one stored purchase row. Rows are only ever appended or
// deleted, never updated. All rows of one upload share CreatedAt and are
// ordered by BatchIndex.
type Transaction struct {
	ID                string         `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID            string         `json:"user_id" gorm:"type:varchar(36);not null;index"`
	UploadID          *string        `json:"upload_id,omitempty" gorm:"type:varchar(36);index"`
	CustomerID        string         `json:"customer_id" gorm:"type:varchar(255);not null"`
	CustomerName      *string        `json:"customer_name,omitempty" gorm:"type:varchar(255)"`
	TransactionDate   datatypes.Date `json:"transaction_date" gorm:"not null"`
	TransactionAmount float64        `json:"transaction_amount" gorm:"not null"`
	BatchIndex        int            `json:"batch_index" gorm:"not null;default:0"`
	CreatedAt         time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// BeforeCreate assigns a UUID so the schema stays portable across dialects.
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

package model

import (
	"time"
)

// UploadHistory records one processed CSV upload. Its ID tags the
// transactions inserted by that upload.
type UploadHistory struct {
	ID                string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID            string    `json:"user_id" gorm:"type:varchar(36);not null;index"`
	FileName          string    `json:"file_name" gorm:"type:varchar(255);not null"`
	UploadedAt        time.Time `json:"uploaded_at" gorm:"not null;index"`
	CustomersCount    int       `json:"customers_count"`
	TransactionsCount int       `json:"transactions_count"`
}

func (UploadHistory) TableName() string {
	return "upload_history"
}

// UploadHistoryResponse はアップロード履歴一覧のレスポンス
type UploadHistoryResponse struct {
	Uploads         []UploadHistory `json:"uploads"`
	HasOrphanedData bool            `json:"has_orphaned_data"`
}

// UploadResponse はCSVアップロード成功時のレスポンス
type UploadResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Customers int    `json:"customers"`
	UploadID  string `json:"upload_id"`
}

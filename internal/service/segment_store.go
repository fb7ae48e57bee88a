package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUploadNotFound はアップロードが存在しないか他ユーザーのものである場合のエラー
var ErrUploadNotFound = errors.New("upload not found")

const (
	transactionBatchSize = 500
	segmentBatchSize     = 200
)

// segmentUpdateColumns are overwritten when a (user_id, customer_id) row
// already exists.
var segmentUpdateColumns = []string{
	"customer_name",
	"upload_id",
	"segment_name",
	"recency_score",
	"frequency_score",
	"monetary_score",
	"recency_days",
	"total_transactions",
	"total_spend",
	"avg_spend",
	"last_transaction_date",
	"updated_at",
}

// MaxSegmentPage bounds SegmentFilter.Page so the row offset cannot overflow.
const MaxSegmentPage = 1_000_000

// SegmentFilter はセグメント一覧の絞り込みとページング条件
type SegmentFilter struct {
	Segment string
	Page    int
	Limit   int
}

// SegmentAggregate is one GROUP BY segment_name row.
type SegmentAggregate struct {
	SegmentName  string
	Customers    int64
	TotalRevenue decimal.Decimal
	AvgFrequency float64
}

// SegmentStore は取引・セグメント・アップロード履歴の永続化を抽象化する
type SegmentStore interface {
	ListTransactions(ctx context.Context, userID string) ([]model.Transaction, error)
	CreateUpload(ctx context.Context, upload *model.UploadHistory) error
	DeleteUploadRecord(ctx context.Context, userID, uploadID string) error
	InsertTransactions(ctx context.Context, transactions []model.Transaction) error
	DeleteUploadTransactions(ctx context.Context, userID, uploadID string) error
	UpsertSegments(ctx context.Context, segments []model.CustomerSegment) error
	PruneSegments(ctx context.Context, userID string) (int64, error)
	DeleteUploadData(ctx context.Context, userID, uploadID string) error
	DeleteAllData(ctx context.Context, userID string) error
	ListUploads(ctx context.Context, userID string) ([]model.UploadHistory, error)
	HasOrphanedTransactions(ctx context.Context, userID string) (bool, error)
	ListSegments(ctx context.Context, userID string, filter SegmentFilter) ([]model.CustomerSegment, int64, error)
	SummarizeSegments(ctx context.Context, userID string) ([]SegmentAggregate, error)
}

// segmentStoreImpl はGORMによるSegmentStoreの実装
type segmentStoreImpl struct {
	db *gorm.DB
}

// NewSegmentStore は新しいセグメントストアを作成
func NewSegmentStore(db *gorm.DB) SegmentStore {
	return &segmentStoreImpl{db: db}
}

// ListTransactions はユーザーの全取引を取り込み順に返す（upload_id の有無を問わない）
func (s *segmentStoreImpl) ListTransactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	var transactions []model.Transaction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at, batch_index").
		Find(&transactions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

// CreateUpload はアップロード履歴を作成
func (s *segmentStoreImpl) CreateUpload(ctx context.Context, upload *model.UploadHistory) error {
	if err := s.db.WithContext(ctx).Create(upload).Error; err != nil {
		return fmt.Errorf("failed to create upload history: %w", err)
	}
	return nil
}

// DeleteUploadRecord はアップロード履歴の行のみを削除
func (s *segmentStoreImpl) DeleteUploadRecord(ctx context.Context, userID, uploadID string) error {
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", uploadID, userID).
		Delete(&model.UploadHistory{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete upload history: %w", err)
	}
	return nil
}

// InsertTransactions は取引をバッチ挿入
func (s *segmentStoreImpl) InsertTransactions(ctx context.Context, transactions []model.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&transactions, transactionBatchSize).Error; err != nil {
		return fmt.Errorf("failed to insert transactions: %w", err)
	}
	return nil
}

// DeleteUploadTransactions はアップロードに紐づく取引を削除
func (s *segmentStoreImpl) DeleteUploadTransactions(ctx context.Context, userID, uploadID string) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND upload_id = ?", userID, uploadID).
		Delete(&model.Transaction{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete upload transactions: %w", err)
	}
	return nil
}

// UpsertSegments は (user_id, customer_id) をキーにセグメントを上書き保存
func (s *segmentStoreImpl) UpsertSegments(ctx context.Context, segments []model.CustomerSegment) error {
	if len(segments) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "customer_id"}},
			DoUpdates: clause.AssignmentColumns(segmentUpdateColumns),
		}).
		CreateInBatches(&segments, segmentBatchSize).Error
	if err != nil {
		return fmt.Errorf("failed to upsert customer segments: %w", err)
	}
	return nil
}

// PruneSegments removes segment rows of customers that no longer have any
// transaction and returns how many were removed.
func (s *segmentStoreImpl) PruneSegments(ctx context.Context, userID string) (int64, error) {
	db := s.db.WithContext(ctx)
	remaining := db.Model(&model.Transaction{}).Select("customer_id").Where("user_id = ?", userID)

	result := db.
		Where("user_id = ? AND customer_id NOT IN (?)", userID, remaining).
		Delete(&model.CustomerSegment{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune customer segments: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteUploadData はアップロードの取引と履歴を削除する
func (s *segmentStoreImpl) DeleteUploadData(ctx context.Context, userID, uploadID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&model.UploadHistory{}).
			Where("id = ? AND user_id = ?", uploadID, userID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to look up upload: %w", err)
		}
		if count == 0 {
			return ErrUploadNotFound
		}

		if err := tx.Where("user_id = ? AND upload_id = ?", userID, uploadID).Delete(&model.Transaction{}).Error; err != nil {
			return fmt.Errorf("failed to delete upload transactions: %w", err)
		}
		if err := tx.Where("id = ? AND user_id = ?", uploadID, userID).Delete(&model.UploadHistory{}).Error; err != nil {
			return fmt.Errorf("failed to delete upload history: %w", err)
		}
		return nil
	})
}

// DeleteAllData はユーザーの取引・セグメント・履歴をすべて削除
func (s *segmentStoreImpl) DeleteAllData(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.Transaction{}).Error; err != nil {
			return fmt.Errorf("failed to delete transactions: %w", err)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&model.CustomerSegment{}).Error; err != nil {
			return fmt.Errorf("failed to delete customer segments: %w", err)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&model.UploadHistory{}).Error; err != nil {
			return fmt.Errorf("failed to delete upload history: %w", err)
		}
		return nil
	})
}

// ListUploads はアップロード履歴を新しい順に返す
func (s *segmentStoreImpl) ListUploads(ctx context.Context, userID string) ([]model.UploadHistory, error) {
	var uploads []model.UploadHistory
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("uploaded_at DESC").
		Find(&uploads).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list upload history: %w", err)
	}
	return uploads, nil
}

// HasOrphanedTransactions reports whether the user owns transactions that
// belong to no upload.
func (s *segmentStoreImpl) HasOrphanedTransactions(ctx context.Context, userID string) (bool, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("user_id = ? AND upload_id IS NULL", userID).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return false, fmt.Errorf("failed to check orphaned transactions: %w", err)
	}
	return len(ids) > 0, nil
}

// ListSegments はセグメント行を total_spend の降順で返す
func (s *segmentStoreImpl) ListSegments(ctx context.Context, userID string, filter SegmentFilter) ([]model.CustomerSegment, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.CustomerSegment{}).Where("user_id = ?", userID)
	if filter.Segment != "" {
		query = query.Where("segment_name = ?", filter.Segment)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count customer segments: %w", err)
	}

	var segments []model.CustomerSegment
	err := query.
		Order("total_spend DESC, customer_id").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&segments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list customer segments: %w", err)
	}
	return segments, total, nil
}

// SummarizeSegments はセグメント別の件数・売上・平均購買回数を集計
func (s *segmentStoreImpl) SummarizeSegments(ctx context.Context, userID string) ([]SegmentAggregate, error) {
	var rows []SegmentAggregate
	err := s.db.WithContext(ctx).
		Model(&model.CustomerSegment{}).
		Select("segment_name, COUNT(*) AS customers, SUM(total_spend) AS total_revenue, AVG(total_transactions) AS avg_frequency").
		Where("user_id = ?", userID).
		Group("segment_name").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to summarize customer segments: %w", err)
	}
	return rows, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/logging"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/model"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/rfm"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

var log = logging.MustGetLogger("service")

// Clock returns the reference time used for recency.
type Clock func() time.Time

// StorageError wraps a failed store operation. No retry is attempted.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// UploadResult は1回のアップロード処理の結果
type UploadResult struct {
	UploadID string
	// Transactions is the number of new transactions stored.
	Transactions int
	// Customers is the number of distinct customers scored over the full history.
	Customers int
}

// SegmentationOptions は取り込みと統合の挙動を切り替える
type SegmentationOptions struct {
	Parse           rfm.ParseOptions
	DedupeReuploads bool
}

// SegmentationService はCSV取り込みからセグメント保存までを担うサービス
type SegmentationService interface {
	ProcessUpload(ctx context.Context, userID, fileName string, r io.Reader) (*UploadResult, error)
	Resegment(ctx context.Context, userID string) (int, error)
	DeleteUpload(ctx context.Context, userID, uploadID string) error
	DeleteAllData(ctx context.Context, userID string) error
	ListUploads(ctx context.Context, userID string) (*model.UploadHistoryResponse, error)
	ListSegments(ctx context.Context, userID string, filter SegmentFilter) (*model.SegmentListResponse, error)
	Summary(ctx context.Context, userID string) (*model.SegmentSummaryResponse, error)
}

// segmentationServiceImpl はセグメンテーションサービスの実装
type segmentationServiceImpl struct {
	store    SegmentStore
	notifier Notifier
	clock    Clock
	opts     SegmentationOptions
}

// NewSegmentationService は新しいセグメンテーションサービスを作成
func NewSegmentationService(store SegmentStore, notifier Notifier, clock Clock, opts SegmentationOptions) SegmentationService {
	if notifier == nil {
		notifier = NewNoopNotifier()
	}
	if clock == nil {
		clock = time.Now
	}
	return &segmentationServiceImpl{
		store:    store,
		notifier: notifier,
		clock:    clock,
		opts:     opts,
	}
}

// ProcessUpload parses the CSV, merges it with the user's stored history,
// re-scores every customer and persists the upload, its transactions and
// the segment rows. Input errors are returned before anything is written.
func (s *segmentationServiceImpl) ProcessUpload(ctx context.Context, userID, fileName string, r io.Reader) (*UploadResult, error) {
	batch, err := rfm.ParseCSV(r, s.opts.Parse)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, &StorageError{Op: "read existing transactions", Err: err}
	}

	merged := rfm.Merge(toRFMTransactions(stored), batch, rfm.MergeOptions{DedupeReuploads: s.opts.DedupeReuploads})
	if dropped := len(batch) - len(merged.Accepted); dropped > 0 {
		log.Infof("user %s: %d re-uploaded transactions already stored, skipping them", userID, dropped)
	}

	now := s.clock()
	assignments := rfm.Run(merged.Unified, now)

	uploadID := uuid.NewString()
	upload := &model.UploadHistory{
		ID:                uploadID,
		UserID:            userID,
		FileName:          fileName,
		UploadedAt:        now,
		CustomersCount:    countCustomers(merged.Accepted),
		TransactionsCount: len(merged.Accepted),
	}
	if err := s.store.CreateUpload(ctx, upload); err != nil {
		return nil, &StorageError{Op: "record upload", Err: err}
	}

	if err := s.store.InsertTransactions(ctx, toModelTransactions(merged.Accepted, userID, uploadID, now)); err != nil {
		s.compensate(ctx, userID, uploadID, false)
		return nil, &StorageError{Op: "store transactions", Err: err}
	}

	if err := s.store.UpsertSegments(ctx, toSegments(assignments, userID, &uploadID)); err != nil {
		s.compensate(ctx, userID, uploadID, true)
		return nil, &StorageError{Op: "store customer segments", Err: err}
	}

	log.Infof("user %s: upload %s (%s) stored %d transactions, %d customers segmented",
		userID, uploadID, fileName, len(merged.Accepted), len(assignments))

	s.notify(ctx, userID, uploadID, len(merged.Accepted), assignments)

	return &UploadResult{
		UploadID:     uploadID,
		Transactions: len(merged.Accepted),
		Customers:    len(assignments),
	}, nil
}

// compensate undoes the writes of a failed upload. Failures are only logged;
// the caller reports the original error.
func (s *segmentationServiceImpl) compensate(ctx context.Context, userID, uploadID string, transactionsWritten bool) {
	if transactionsWritten {
		if err := s.store.DeleteUploadTransactions(ctx, userID, uploadID); err != nil {
			log.Errorf("user %s: could not remove transactions of failed upload %s: %v", userID, uploadID, err)
		}
	}
	if err := s.store.DeleteUploadRecord(ctx, userID, uploadID); err != nil {
		log.Errorf("user %s: could not remove failed upload %s: %v", userID, uploadID, err)
	}
}

func (s *segmentationServiceImpl) notify(ctx context.Context, userID, uploadID string, transactions int, assignments []rfm.Assignment) {
	segments := make(map[string]int, len(rfm.AllSegments))
	for _, c := range rfm.Summarize(assignments) {
		segments[string(c.Segment)] = c.Customers
	}

	event := SegmentationEvent{
		Type:         EventSegmentationCompleted,
		UserID:       userID,
		UploadID:     uploadID,
		Customers:    len(assignments),
		Transactions: transactions,
		Segments:     segments,
		OccurredAt:   s.clock(),
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		log.Warningf("user %s: segmentation event not published: %v", userID, err)
	}
}

// Resegment recomputes every segment row from the stored history and prunes
// rows of customers without transactions. It returns the number of
// customers segmented.
func (s *segmentationServiceImpl) Resegment(ctx context.Context, userID string) (int, error) {
	stored, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return 0, &StorageError{Op: "read existing transactions", Err: err}
	}

	assignments := rfm.Run(toRFMTransactions(stored), s.clock())
	if err := s.store.UpsertSegments(ctx, toSegments(assignments, userID, nil)); err != nil {
		return 0, &StorageError{Op: "store customer segments", Err: err}
	}

	pruned, err := s.store.PruneSegments(ctx, userID)
	if err != nil {
		return 0, &StorageError{Op: "prune customer segments", Err: err}
	}
	if pruned > 0 {
		log.Infof("user %s: pruned %d segments of customers without transactions", userID, pruned)
	}

	if len(assignments) > 0 {
		s.notify(ctx, userID, "", len(stored), assignments)
	}
	return len(assignments), nil
}

// DeleteUpload removes one upload with its transactions and re-segments the
// remaining history.
func (s *segmentationServiceImpl) DeleteUpload(ctx context.Context, userID, uploadID string) error {
	if err := s.store.DeleteUploadData(ctx, userID, uploadID); err != nil {
		if errors.Is(err, ErrUploadNotFound) {
			return err
		}
		return &StorageError{Op: "delete upload", Err: err}
	}

	_, err := s.Resegment(ctx, userID)
	return err
}

// DeleteAllData はユーザーの全データを削除
func (s *segmentationServiceImpl) DeleteAllData(ctx context.Context, userID string) error {
	if err := s.store.DeleteAllData(ctx, userID); err != nil {
		return &StorageError{Op: "delete data", Err: err}
	}
	log.Infof("user %s: all data deleted", userID)
	return nil
}

// ListUploads はアップロード履歴と未紐付けデータの有無を返す
func (s *segmentationServiceImpl) ListUploads(ctx context.Context, userID string) (*model.UploadHistoryResponse, error) {
	uploads, err := s.store.ListUploads(ctx, userID)
	if err != nil {
		return nil, &StorageError{Op: "list uploads", Err: err}
	}
	orphaned, err := s.store.HasOrphanedTransactions(ctx, userID)
	if err != nil {
		return nil, &StorageError{Op: "check orphaned transactions", Err: err}
	}
	if uploads == nil {
		uploads = []model.UploadHistory{}
	}
	return &model.UploadHistoryResponse{Uploads: uploads, HasOrphanedData: orphaned}, nil
}

// ListSegments はセグメント行をページングして返す
func (s *segmentationServiceImpl) ListSegments(ctx context.Context, userID string, filter SegmentFilter) (*model.SegmentListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	filter.Page = min(filter.Page, MaxSegmentPage)
	if filter.Limit < 1 {
		filter.Limit = 50
	}

	segments, total, err := s.store.ListSegments(ctx, userID, filter)
	if err != nil {
		return nil, &StorageError{Op: "list customer segments", Err: err}
	}
	if segments == nil {
		segments = []model.CustomerSegment{}
	}

	return &model.SegmentListResponse{
		Segments:   segments,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int((total + int64(filter.Limit) - 1) / int64(filter.Limit)),
		TotalItems: total,
	}, nil
}

// Summary returns one entry per segment in classification order, including
// segments without customers.
func (s *segmentationServiceImpl) Summary(ctx context.Context, userID string) (*model.SegmentSummaryResponse, error) {
	rows, err := s.store.SummarizeSegments(ctx, userID)
	if err != nil {
		return nil, &StorageError{Op: "summarize customer segments", Err: err}
	}

	byName := make(map[string]SegmentAggregate, len(rows))
	resp := &model.SegmentSummaryResponse{TotalRevenue: decimal.Zero}
	for _, row := range rows {
		byName[row.SegmentName] = row
		resp.TotalCustomers += row.Customers
		resp.TotalRevenue = resp.TotalRevenue.Add(row.TotalRevenue)
	}

	resp.Segments = make([]model.SegmentSummary, 0, len(rfm.AllSegments))
	for _, segment := range rfm.AllSegments {
		row := byName[string(segment)]
		summary := model.SegmentSummary{
			SegmentName:  string(segment),
			Customers:    row.Customers,
			TotalRevenue: row.TotalRevenue,
			AvgSpend:     decimal.Zero,
			AvgFrequency: row.AvgFrequency,
		}
		if row.Customers > 0 {
			summary.AvgSpend = row.TotalRevenue.Div(decimal.NewFromInt(row.Customers)).Round(2)
			summary.Percentage = math.Round(float64(row.Customers)/float64(resp.TotalCustomers)*10000) / 100
		}
		resp.Segments = append(resp.Segments, summary)
	}
	return resp, nil
}

func toRFMTransactions(stored []model.Transaction) []rfm.Transaction {
	txs := make([]rfm.Transaction, len(stored))
	for i, t := range stored {
		txs[i] = rfm.Transaction{
			CustomerID: t.CustomerID,
			Date:       time.Time(t.TransactionDate).UTC(),
			Amount:     t.TransactionAmount,
		}
		if t.CustomerName != nil {
			txs[i].CustomerName = *t.CustomerName
		}
	}
	return txs
}

func toModelTransactions(txs []rfm.Transaction, userID, uploadID string, createdAt time.Time) []model.Transaction {
	rows := make([]model.Transaction, len(txs))
	for i, t := range txs {
		rows[i] = model.Transaction{
			UserID:            userID,
			UploadID:          &uploadID,
			CustomerID:        t.CustomerID,
			CustomerName:      optionalString(t.CustomerName),
			TransactionDate:   datatypes.Date(t.Date),
			TransactionAmount: t.Amount,
			BatchIndex:        i,
			CreatedAt:         createdAt,
		}
	}
	return rows
}

func toSegments(assignments []rfm.Assignment, userID string, uploadID *string) []model.CustomerSegment {
	rows := make([]model.CustomerSegment, len(assignments))
	for i, a := range assignments {
		rows[i] = model.CustomerSegment{
			UserID:              userID,
			CustomerID:          a.CustomerID,
			CustomerName:        optionalString(a.CustomerName),
			UploadID:            uploadID,
			SegmentName:         string(a.Segment),
			RecencyScore:        a.RecencyScore,
			FrequencyScore:      a.FrequencyScore,
			MonetaryScore:       a.MonetaryScore,
			RecencyDays:         a.RecencyDays,
			TotalTransactions:   a.Frequency,
			TotalSpend:          a.Monetary,
			AvgSpend:            a.AvgSpend,
			LastTransactionDate: datatypes.Date(a.LastTransactionDate),
		}
	}
	return rows
}

func countCustomers(txs []rfm.Transaction) int {
	seen := make(map[string]struct{}, len(txs))
	for _, t := range txs {
		seen[t.CustomerID] = struct{}{}
	}
	return len(seen)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

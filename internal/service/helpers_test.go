package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	testNow   = time.Date(2024, 6, 11, 9, 30, 0, 0, time.UTC)
	testClock = func() time.Time { return testNow }

	ErrMockStorage = errors.New("mock storage error")
	ErrMockBroker  = errors.New("mock broker error")
)

const firstUpload = `customer_id,customer_name,transaction_date,transaction_amount
C1,Alice,2024-06-01,100
C2,Bob,2024-05-01,200
C1,Alice,2024-06-05,50
bad,row
C3,,2024-01-15,75.5
`

const secondUpload = `customer_id,customer_name,transaction_date,transaction_amount
C4,Dan,2024-06-10,500
`

// newTestDB opens a private in-memory sqlite database with every table
// migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.CasbinRule{},
		&model.UploadHistory{},
		&model.Transaction{},
		&model.CustomerSegment{},
	))
	return db
}

// MockNotifier records published events.
type MockNotifier struct {
	mu     sync.Mutex
	Events []SegmentationEvent
	Err    error
}

func (m *MockNotifier) Notify(ctx context.Context, event SegmentationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return m.Err
}

func (m *MockNotifier) Close() error { return nil }

// MockSegmentStore delegates to a real store unless a Func field is set.
type MockSegmentStore struct {
	SegmentStore

	InsertTransactionsFunc       func(ctx context.Context, transactions []model.Transaction) error
	UpsertSegmentsFunc           func(ctx context.Context, segments []model.CustomerSegment) error
	DeleteUploadRecordFunc       func(ctx context.Context, userID, uploadID string) error
	DeleteUploadTransactionsFunc func(ctx context.Context, userID, uploadID string) error

	DeletedUploads      []string
	DeletedTransactions []string
}

func (m *MockSegmentStore) InsertTransactions(ctx context.Context, transactions []model.Transaction) error {
	if m.InsertTransactionsFunc != nil {
		return m.InsertTransactionsFunc(ctx, transactions)
	}
	return m.SegmentStore.InsertTransactions(ctx, transactions)
}

func (m *MockSegmentStore) UpsertSegments(ctx context.Context, segments []model.CustomerSegment) error {
	if m.UpsertSegmentsFunc != nil {
		return m.UpsertSegmentsFunc(ctx, segments)
	}
	return m.SegmentStore.UpsertSegments(ctx, segments)
}

func (m *MockSegmentStore) DeleteUploadRecord(ctx context.Context, userID, uploadID string) error {
	m.DeletedUploads = append(m.DeletedUploads, uploadID)
	if m.DeleteUploadRecordFunc != nil {
		return m.DeleteUploadRecordFunc(ctx, userID, uploadID)
	}
	return m.SegmentStore.DeleteUploadRecord(ctx, userID, uploadID)
}

func (m *MockSegmentStore) DeleteUploadTransactions(ctx context.Context, userID, uploadID string) error {
	m.DeletedTransactions = append(m.DeletedTransactions, uploadID)
	if m.DeleteUploadTransactionsFunc != nil {
		return m.DeleteUploadTransactionsFunc(ctx, userID, uploadID)
	}
	return m.SegmentStore.DeleteUploadTransactions(ctx, userID, uploadID)
}

func countRows(t *testing.T, db *gorm.DB, table interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(table).Count(&n).Error)
	return n
}

// Package mongo implements the archiver's read model. Posted ledger rows are
// copied here from the committed-rows events so reporting queries never touch
// the transactional PostgreSQL database.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wisatabooks/ledger/internal/domain/ledger"
)

const (
	// ArchiveCollectionName is the name of the posted rows collection in MongoDB
	ArchiveCollectionName = "posted_rows"
)

// ArchiveRepository stores archived ledger rows in MongoDB
type ArchiveRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewArchiveRepository creates a new MongoDB archive repository
func NewArchiveRepository(logger *slog.Logger, db *mongo.Database) *ArchiveRepository {
	return &ArchiveRepository{
		db:     db,
		logger: logger,
	}
}

// archivedRow is the archive document. Ids are stored as strings and amounts
// as fixed-point strings so documents stay readable and index-friendly without
// custom BSON codecs.
type archivedRow struct {
	RowID       string    `bson:"row_id"`
	AccountID   string    `bson:"account_id"`
	EntryID     string    `bson:"entry_id,omitempty"`
	Date        time.Time `bson:"date"`
	Description string    `bson:"description"`
	Debit       string    `bson:"debit"`
	Credit      string    `bson:"credit"`
	Balance     string    `bson:"balance"`
	ManualEntry bool      `bson:"manual_entry"`
	CreatedAt   time.Time `bson:"created_at"`
	ArchivedAt  time.Time `bson:"archived_at"`
}

func newArchivedRow(row *ledger.Row, archivedAt time.Time) archivedRow {
	doc := archivedRow{
		RowID:       row.ID.String(),
		AccountID:   row.AccountID.String(),
		Date:        row.Date,
		Description: row.Description,
		Debit:       row.Debit.StringFixed(2),
		Credit:      row.Credit.StringFixed(2),
		Balance:     row.Balance.StringFixed(2),
		ManualEntry: row.ManualEntry,
		CreatedAt:   row.CreatedAt,
		ArchivedAt:  archivedAt,
	}
	if row.EntryID != nil {
		doc.EntryID = row.EntryID.String()
	}
	return doc
}

func (d archivedRow) toRow() (*ledger.Row, error) {
	id, err := uuid.Parse(d.RowID)
	if err != nil {
		return nil, fmt.Errorf("invalid archived row id %q: %w", d.RowID, err)
	}
	accountID, err := uuid.Parse(d.AccountID)
	if err != nil {
		return nil, fmt.Errorf("invalid archived account id %q: %w", d.AccountID, err)
	}
	debit, err := decimal.NewFromString(d.Debit)
	if err != nil {
		return nil, fmt.Errorf("invalid archived debit %q: %w", d.Debit, err)
	}
	credit, err := decimal.NewFromString(d.Credit)
	if err != nil {
		return nil, fmt.Errorf("invalid archived credit %q: %w", d.Credit, err)
	}
	balance, err := decimal.NewFromString(d.Balance)
	if err != nil {
		return nil, fmt.Errorf("invalid archived balance %q: %w", d.Balance, err)
	}

	row := &ledger.Row{
		ID:          id,
		AccountID:   accountID,
		Date:        d.Date,
		Description: d.Description,
		Debit:       debit,
		Credit:      credit,
		Balance:     balance,
		ManualEntry: d.ManualEntry,
		CreatedAt:   d.CreatedAt,
	}
	if d.EntryID != "" {
		entryID, err := uuid.Parse(d.EntryID)
		if err != nil {
			return nil, fmt.Errorf("invalid archived entry id %q: %w", d.EntryID, err)
		}
		row.EntryID = &entryID
	}
	return row, nil
}

// InsertRows stores the rows from a committed-rows event. Replays of the same
// event are absorbed by the unique index on row_id; duplicate rows are skipped
// rather than failed.
func (r *ArchiveRepository) InsertRows(ctx context.Context, rows []*ledger.Row) error {
	if len(rows) == 0 {
		return nil
	}

	collection := r.db.Collection(ArchiveCollectionName)

	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, newArchivedRow(row, now))
	}

	// Unordered inserts so one duplicate does not abort the rest of the batch
	opts := options.InsertMany().SetOrdered(false)
	_, err := collection.InsertMany(ctx, docs, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		r.logger.Error("Failed to archive ledger rows", "count", len(rows), "error", err)
		return fmt.Errorf("failed to archive ledger rows: %w", err)
	}

	return nil
}

// GetByAccountID retrieves paginated archived rows for an account, newest
// first by (date, created_at)
func (r *ArchiveRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Row, error) {
	collection := r.db.Collection(ArchiveCollectionName)

	filter := bson.M{"account_id": accountID.String()}
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get archived rows",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get archived rows: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []archivedRow
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("Failed to decode archived rows",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode archived rows: %w", err)
	}

	rows := make([]*ledger.Row, 0, len(docs))
	for _, doc := range docs {
		row, err := doc.toRow()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// CountByAccountID counts the archived rows for an account
func (r *ArchiveRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	collection := r.db.Collection(ArchiveCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"account_id": accountID.String()})
	if err != nil {
		r.logger.Error("Failed to count archived rows",
			"account_id", accountID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count archived rows: %w", err)
	}

	return count, nil
}

// EnsureIndexes creates the indexes the archive relies on. Called once at
// archiver startup.
func (r *ArchiveRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(ArchiveCollectionName)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "row_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "date", Value: -1}, {Key: "created_at", Value: -1}},
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		r.logger.Error("Failed to create archive indexes", "error", err)
		return fmt.Errorf("failed to create archive indexes: %w", err)
	}

	return nil
}

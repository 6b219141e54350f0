package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"debridops/internal/domain"
)

// OperationsRepository stores the history of finished bulk operations and
// the running rows inserted when they start.
type OperationsRepository struct {
	collection *mongo.Collection
}

type itemErrorDoc struct {
	FileID   string `bson:"fileId,omitempty"`
	Filename string `bson:"filename,omitempty"`
	Message  string `bson:"message"`
}

type resultsDoc struct {
	Deleted      []string          `bson:"deleted,omitempty"`
	DownloadURLs map[string]string `bson:"downloadUrls,omitempty"`
	StreamURLs   map[string]string `bson:"streamUrls,omitempty"`
	Favorited    []string          `bson:"favorited,omitempty"`
}

type operationDoc struct {
	ID             string         `bson:"_id"`
	Type           string         `bson:"type"`
	Status         string         `bson:"status"`
	TotalItems     int            `bson:"totalItems"`
	CompletedItems int            `bson:"completedItems"`
	FailedItems    int            `bson:"failedItems"`
	Errors         []itemErrorDoc `bson:"errors,omitempty"`
	Results        resultsDoc     `bson:"results"`
	StartedAt      int64          `bson:"startedAt"`
	FinishedAt     int64          `bson:"finishedAt,omitempty"`
	DurationMs     int64          `bson:"durationMs"`
}

func NewOperationsRepository(client *mongo.Client, dbName string) *OperationsRepository {
	return &OperationsRepository{collection: client.Database(dbName).Collection("operations")}
}

func (r *OperationsRepository) EnsureIndexes(ctx context.Context) error {
	if r == nil || r.collection == nil {
		return nil
	}
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "type", Value: 1}}},
		{Keys: bson.D{{Key: "startedAt", Value: -1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

func (r *OperationsRepository) Insert(ctx context.Context, rec domain.OperationRecord) error {
	doc := toOperationDoc(rec)
	_, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAlreadyExists
		}
	}
	return err
}

// Finish overwrites the running row with the terminal state of the record.
func (r *OperationsRepository) Finish(ctx context.Context, rec domain.OperationRecord) error {
	doc := toOperationDoc(rec)
	update := bson.M{
		"$set": bson.M{
			"status":         doc.Status,
			"totalItems":     doc.TotalItems,
			"completedItems": doc.CompletedItems,
			"failedItems":    doc.FailedItems,
			"errors":         doc.Errors,
			"results":        doc.Results,
			"finishedAt":     doc.FinishedAt,
			"durationMs":     doc.DurationMs,
		},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": doc.ID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OperationsRepository) Get(ctx context.Context, id domain.OperationID) (domain.OperationRecord, error) {
	var doc operationDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.OperationRecord{}, domain.ErrNotFound
		}
		return domain.OperationRecord{}, err
	}
	return fromOperationDoc(doc), nil
}

func (r *OperationsRepository) List(ctx context.Context, filter domain.OperationFilter) ([]domain.OperationRecord, error) {
	query := bson.M{}
	if filter.Status != nil {
		query["status"] = string(*filter.Status)
	}
	if filter.Type != nil {
		query["type"] = string(*filter.Type)
	}

	field, ok := operationSortField(strings.TrimSpace(filter.SortBy))
	if !ok {
		field = "startedAt"
	}
	direction := -1
	if filter.SortOrder == domain.SortAsc {
		direction = 1
	}

	opts := options.Find()
	opts.SetSort(bson.D{{Key: field, Value: direction}})
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []operationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	records := make([]domain.OperationRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, fromOperationDoc(doc))
	}
	return records, nil
}

// PruneOlderThan deletes history rows started before the cutoff, given in
// Unix milliseconds, and reports how many were removed.
func (r *OperationsRepository) PruneOlderThan(ctx context.Context, cutoffMs int64) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"startedAt": bson.M{"$lt": cutoffMs}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func toOperationDoc(rec domain.OperationRecord) operationDoc {
	errs := make([]itemErrorDoc, 0, len(rec.Errors))
	for _, e := range rec.Errors {
		errs = append(errs, itemErrorDoc{
			FileID:   string(e.FileID),
			Filename: e.Filename,
			Message:  e.Message,
		})
	}

	doc := operationDoc{
		ID:             string(rec.ID),
		Type:           string(rec.Type),
		Status:         string(rec.Status),
		TotalItems:     rec.TotalItems,
		CompletedItems: rec.CompletedItems,
		FailedItems:    rec.FailedItems,
		Errors:         errs,
		Results:        toResultsDoc(rec.Results),
		StartedAt:      rec.StartedAt.UnixMilli(),
		DurationMs:     rec.DurationMs,
	}
	if !rec.FinishedAt.IsZero() {
		doc.FinishedAt = rec.FinishedAt.UnixMilli()
	}
	return doc
}

func fromOperationDoc(doc operationDoc) domain.OperationRecord {
	errs := make([]domain.ItemError, 0, len(doc.Errors))
	for _, e := range doc.Errors {
		errs = append(errs, domain.ItemError{
			FileID:   domain.FileID(e.FileID),
			Filename: e.Filename,
			Message:  e.Message,
		})
	}

	rec := domain.OperationRecord{
		ID:             domain.OperationID(doc.ID),
		Type:           domain.BulkOperationType(doc.Type),
		Status:         domain.OperationStatus(doc.Status),
		TotalItems:     doc.TotalItems,
		CompletedItems: doc.CompletedItems,
		FailedItems:    doc.FailedItems,
		Errors:         errs,
		Results:        fromResultsDoc(doc.Results),
		StartedAt:      time.UnixMilli(doc.StartedAt).UTC(),
		DurationMs:     doc.DurationMs,
	}
	if doc.FinishedAt > 0 {
		rec.FinishedAt = time.UnixMilli(doc.FinishedAt).UTC()
	}
	return rec
}

func toResultsDoc(r domain.BulkResults) resultsDoc {
	doc := resultsDoc{}
	for _, id := range r.Deleted {
		doc.Deleted = append(doc.Deleted, string(id))
	}
	for _, id := range r.Favorited {
		doc.Favorited = append(doc.Favorited, string(id))
	}
	if len(r.DownloadURLs) > 0 {
		doc.DownloadURLs = make(map[string]string, len(r.DownloadURLs))
		for id, url := range r.DownloadURLs {
			doc.DownloadURLs[string(id)] = url
		}
	}
	if len(r.StreamURLs) > 0 {
		doc.StreamURLs = make(map[string]string, len(r.StreamURLs))
		for id, url := range r.StreamURLs {
			doc.StreamURLs[string(id)] = url
		}
	}
	return doc
}

func fromResultsDoc(doc resultsDoc) domain.BulkResults {
	results := domain.BulkResults{}
	for _, id := range doc.Deleted {
		results.Deleted = append(results.Deleted, domain.FileID(id))
	}
	for _, id := range doc.Favorited {
		results.Favorited = append(results.Favorited, domain.FileID(id))
	}
	if len(doc.DownloadURLs) > 0 {
		results.DownloadURLs = make(map[domain.FileID]string, len(doc.DownloadURLs))
		for id, url := range doc.DownloadURLs {
			results.DownloadURLs[domain.FileID(id)] = url
		}
	}
	if len(doc.StreamURLs) > 0 {
		results.StreamURLs = make(map[domain.FileID]string, len(doc.StreamURLs))
		for id, url := range doc.StreamURLs {
			results.StreamURLs[domain.FileID(id)] = url
		}
	}
	return results
}

func operationSortField(sortBy string) (string, bool) {
	switch sortBy {
	case "startedAt":
		return "startedAt", true
	case "finishedAt":
		return "finishedAt", true
	case "durationMs":
		return "durationMs", true
	case "type":
		return "type", true
	default:
		return "", false
	}
}

package mongo

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"debridops/internal/domain"
)

// FilesRepository is the persistent index of the user's remote library.
type FilesRepository struct {
	collection *mongo.Collection
}

type fileDoc struct {
	ID          string `bson:"_id"`
	Filename    string `bson:"filename"`
	Filesize    int64  `bson:"filesize"`
	Source      string `bson:"source"`
	Host        string `bson:"host,omitempty"`
	Link        string `bson:"link,omitempty"`
	DownloadURL string `bson:"downloadUrl,omitempty"`
	StreamURL   string `bson:"streamUrl,omitempty"`
	MimeType    string `bson:"mimeType,omitempty"`
	Playable    bool   `bson:"playable"`
	Streamable  bool   `bson:"streamable"`
	AddedAt     int64  `bson:"addedAt"`
	SyncedAt    int64  `bson:"syncedAt"`
}

func NewFilesRepository(client *mongo.Client, dbName string) *FilesRepository {
	return &FilesRepository{collection: client.Database(dbName).Collection("files")}
}

func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (r *FilesRepository) EnsureIndexes(ctx context.Context) error {
	if r == nil || r.collection == nil {
		return nil
	}
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "filename", Value: "text"}}},
		{Keys: bson.D{{Key: "source", Value: 1}}},
		{Keys: bson.D{{Key: "host", Value: 1}}},
		{Keys: bson.D{{Key: "playable", Value: 1}}},
		{Keys: bson.D{{Key: "addedAt", Value: -1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

func (r *FilesRepository) Upsert(ctx context.Context, f domain.RemoteFile) error {
	doc := toFileDoc(f)
	_, err := r.collection.ReplaceOne(
		ctx,
		bson.M{"_id": doc.ID},
		doc,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (r *FilesRepository) Get(ctx context.Context, id domain.FileID) (domain.RemoteFile, error) {
	var doc fileDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.RemoteFile{}, domain.ErrNotFound
		}
		return domain.RemoteFile{}, err
	}
	return fromFileDoc(doc), nil
}

func (r *FilesRepository) GetMany(ctx context.Context, ids []domain.FileID) ([]domain.RemoteFile, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	values := make([]string, 0, len(ids))
	for _, id := range ids {
		values = append(values, string(id))
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": values}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []fileDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return fromFileDocs(docs), nil
}

func (r *FilesRepository) List(ctx context.Context, filter domain.FileFilter) ([]domain.RemoteFile, error) {
	query := bson.M{}
	if filter.Source != nil {
		query["source"] = string(*filter.Source)
	}
	if host := strings.TrimSpace(filter.Host); host != "" {
		query["host"] = host
	}
	if filter.Playable != nil {
		query["playable"] = *filter.Playable
	}

	search := strings.TrimSpace(filter.Search)
	if search != "" {
		query["filename"] = bson.M{
			"$regex":   regexp.QuoteMeta(search),
			"$options": "i",
		}
	}

	sortBy := strings.TrimSpace(filter.SortBy)
	field, ok := fileSortField(sortBy)
	if !ok {
		field = "addedAt"
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

	var docs []fileDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return fromFileDocs(docs), nil
}

func (r *FilesRepository) Delete(ctx context.Context, id domain.FileID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func toFileDoc(f domain.RemoteFile) fileDoc {
	return fileDoc{
		ID:          string(f.ID),
		Filename:    f.Filename,
		Filesize:    f.Filesize,
		Source:      string(f.Source),
		Host:        f.Host,
		Link:        f.Link,
		DownloadURL: f.DownloadURL,
		StreamURL:   f.StreamURL,
		MimeType:    f.MimeType,
		Playable:    f.Playable,
		Streamable:  f.Streamable,
		AddedAt:     f.AddedAt.Unix(),
		SyncedAt:    time.Now().UTC().Unix(),
	}
}

func fromFileDoc(doc fileDoc) domain.RemoteFile {
	return domain.RemoteFile{
		ID:          domain.FileID(doc.ID),
		Filename:    doc.Filename,
		Filesize:    doc.Filesize,
		Source:      domain.FileSource(doc.Source),
		Host:        doc.Host,
		Link:        doc.Link,
		DownloadURL: doc.DownloadURL,
		StreamURL:   doc.StreamURL,
		MimeType:    doc.MimeType,
		Playable:    doc.Playable,
		Streamable:  doc.Streamable,
		AddedAt:     timeFromUnix(doc.AddedAt),
	}
}

func fromFileDocs(docs []fileDoc) []domain.RemoteFile {
	files := make([]domain.RemoteFile, 0, len(docs))
	for _, doc := range docs {
		files = append(files, fromFileDoc(doc))
	}
	return files
}

func timeFromUnix(value int64) time.Time {
	return time.Unix(value, 0).UTC()
}

func fileSortField(sortBy string) (string, bool) {
	switch sortBy {
	case "filename":
		return "filename", true
	case "filesize":
		return "filesize", true
	case "host":
		return "host", true
	case "addedAt":
		return "addedAt", true
	default:
		return "", false
	}
}

package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"debridops/internal/app"
)

const (
	bulkSettingsID  = "bulk"
	cacheSettingsID = "cache"
)

type bulkSettingsDoc struct {
	ID              string `bson:"_id"`
	MaxConcurrency  int    `bson:"maxConcurrency"`
	ItemDelayMs     int64  `bson:"itemDelayMs"`
	ContinueOnError bool   `bson:"continueOnError"`
	ItemTimeoutMs   int64  `bson:"itemTimeoutMs"`
	UpdatedAt       int64  `bson:"updatedAt"`
}

type BulkSettingsRepository struct {
	collection *mongo.Collection
}

func NewBulkSettingsRepository(client *mongo.Client, dbName string) *BulkSettingsRepository {
	return &BulkSettingsRepository{collection: client.Database(dbName).Collection("settings")}
}

func (r *BulkSettingsRepository) GetBulkSettings(ctx context.Context) (app.BulkSettings, bool, error) {
	var doc bulkSettingsDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": bulkSettingsID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return app.BulkSettings{}, false, nil
		}
		return app.BulkSettings{}, false, err
	}
	return app.BulkSettings{
		MaxConcurrency:  doc.MaxConcurrency,
		ItemDelayMs:     doc.ItemDelayMs,
		ContinueOnError: doc.ContinueOnError,
		ItemTimeoutMs:   doc.ItemTimeoutMs,
	}, true, nil
}

func (r *BulkSettingsRepository) SetBulkSettings(ctx context.Context, settings app.BulkSettings) error {
	update := bson.M{
		"$set": bson.M{
			"maxConcurrency":  settings.MaxConcurrency,
			"itemDelayMs":     settings.ItemDelayMs,
			"continueOnError": settings.ContinueOnError,
			"itemTimeoutMs":   settings.ItemTimeoutMs,
			"updatedAt":       time.Now().Unix(),
		},
	}
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": bulkSettingsID},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}

type cacheSettingsDoc struct {
	ID         string `bson:"_id"`
	TTLMinutes int    `bson:"ttlMinutes"`
	MaxEntries int    `bson:"maxEntries"`
	UpdatedAt  int64  `bson:"updatedAt"`
}

type CacheSettingsRepository struct {
	collection *mongo.Collection
}

func NewCacheSettingsRepository(client *mongo.Client, dbName string) *CacheSettingsRepository {
	return &CacheSettingsRepository{collection: client.Database(dbName).Collection("settings")}
}

func (r *CacheSettingsRepository) GetCacheSettings(ctx context.Context) (app.CacheSettings, bool, error) {
	var doc cacheSettingsDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": cacheSettingsID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return app.CacheSettings{}, false, nil
		}
		return app.CacheSettings{}, false, err
	}
	return app.CacheSettings{
		TTLMinutes: doc.TTLMinutes,
		MaxEntries: doc.MaxEntries,
	}, true, nil
}

func (r *CacheSettingsRepository) SetCacheSettings(ctx context.Context, settings app.CacheSettings) error {
	update := bson.M{
		"$set": bson.M{
			"ttlMinutes": settings.TTLMinutes,
			"maxEntries": settings.MaxEntries,
			"updatedAt":  time.Now().Unix(),
		},
	}
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": cacheSettingsID},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}

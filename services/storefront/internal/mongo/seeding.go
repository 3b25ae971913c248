package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/seed"
	"github.com/appetiteclub/taqueria/services/storefront/internal/catalog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Seeds returns all seeds for the storefront catalog
func Seeds(db *mongo.Database) []seed.Seed {
	return []seed.Seed{
		{
			ID:          "2026-03-14_storefront_catalog_items",
			Description: "Seed the taqueria menu: tacos, beverages and extras",
			Run: func(ctx context.Context) error {
				return seedCatalogItems(ctx, db, catalog.Defaults())
			},
		},
	}
}

// seedCatalogItems inserts missing items and leaves existing ones untouched,
// so price edits made in the database survive restarts.
func seedCatalogItems(ctx context.Context, db *mongo.Database, items []catalog.Item) error {
	collection := db.Collection(CatalogCollection)
	now := time.Now()

	for i, item := range items {
		doc, err := newItemDocument(item, i)
		if err != nil {
			return err
		}

		_, err = collection.UpdateOne(ctx,
			bson.M{"_id": doc.ID},
			bson.M{"$setOnInsert": bson.M{
				"_id":        doc.ID,
				"name":       doc.Name,
				"price":      doc.Price,
				"category":   doc.Category,
				"available":  doc.Available,
				"position":   doc.Position,
				"created_at": now,
			}},
			options.Update().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("cannot seed catalog item %s: %w", item.ID, err)
		}
	}
	return nil
}

// SeedingFunc returns a lifecycle hook that applies the catalog seeds once
// the repository is connected.
func SeedingFunc(appName string, dbFn func() *mongo.Database, logger apt.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		logger.Info("Applying storefront catalog seeds...")
		db := dbFn()
		if db == nil {
			return fmt.Errorf("apply seeds: database not connected")
		}
		tracker := seed.NewMongoTracker(db)
		if err := seed.Apply(ctx, tracker, Seeds(db), appName); err != nil {
			return fmt.Errorf("apply seeds: %w", err)
		}
		logger.Info("Storefront catalog seeds applied successfully")
		return nil
	}
}

package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/taqueria/services/storefront/internal/catalog"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CatalogCollection = "catalog_items"

// itemDocument is the stored shape of a catalog item.
type itemDocument struct {
	ID        string               `bson:"_id"`
	Name      string               `bson:"name"`
	Price     primitive.Decimal128 `bson:"price"`
	Category  string               `bson:"category"`
	Available bool                 `bson:"available"`
	Position  int                  `bson:"position"`
}

// CatalogRepo serves the storefront catalog from MongoDB. It implements catalog.Source.
type CatalogRepo struct {
	client     *mongo.Client
	db         *mongo.Database
	collection *mongo.Collection
	logger     apt.Logger
	config     *apt.Config
}

func NewCatalogRepo(config *apt.Config, logger apt.Logger) *CatalogRepo {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &CatalogRepo{
		logger: logger,
		config: config,
	}
}

// Start initializes the MongoDB connection
func (r *CatalogRepo) Start(ctx context.Context) error {
	mongoURL := "mongodb://localhost:27017"
	dbName := "taqueria_storefront"
	if r.config != nil {
		mongoURL = r.config.GetStringOrDef("db.mongo.url", mongoURL)
		dbName = r.config.GetStringOrDef("db.mongo.name", dbName)
	}

	clientOptions := options.Client().ApplyURI(mongoURL).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	r.client = client
	r.db = client.Database(dbName)
	r.collection = r.db.Collection(CatalogCollection)

	// Lookups by category drive the menu board
	categoryIndexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "category", Value: 1}, {Key: "position", Value: 1}},
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, categoryIndexModel); err != nil {
		return fmt.Errorf("cannot create category index: %w", err)
	}

	r.logger.Infof("Connected to MongoDB: %s, database: %s, collection: %s", mongoURL, dbName, CatalogCollection)
	return nil
}

// Stop closes the MongoDB connection
func (r *CatalogRepo) Stop(ctx context.Context) error {
	if r.client != nil {
		if err := r.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
		}
		r.logger.Info("Disconnected from MongoDB")
	}
	return nil
}

// GetDatabase returns the MongoDB database instance
func (r *CatalogRepo) GetDatabase() *mongo.Database {
	return r.db
}

// List returns every catalog item in menu order.
func (r *CatalogRepo) List(ctx context.Context) ([]catalog.Item, error) {
	if r.collection == nil {
		return nil, fmt.Errorf("catalog repository not started")
	}

	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list catalog items: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []itemDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cannot decode catalog items: %w", err)
	}

	items := make([]catalog.Item, 0, len(docs))
	for _, doc := range docs {
		item, err := doc.toItem()
		if err != nil {
			r.logger.Error("skipping catalog item", "id", doc.ID, "error", err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (d itemDocument) toItem() (catalog.Item, error) {
	if d.ID == "" || d.Name == "" {
		return catalog.Item{}, fmt.Errorf("catalog item missing id or name")
	}
	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		return catalog.Item{}, fmt.Errorf("invalid price %q: %w", d.Price.String(), err)
	}
	if !catalog.ValidPrice(price) {
		return catalog.Item{}, fmt.Errorf("price out of range: %s", d.Price.String())
	}
	return catalog.Item{
		ID:        d.ID,
		Name:      d.Name,
		Price:     price,
		Category:  d.Category,
		Available: d.Available,
	}, nil
}

func newItemDocument(item catalog.Item, position int) (itemDocument, error) {
	price, err := primitive.ParseDecimal128(item.Price.StringFixed(2))
	if err != nil {
		return itemDocument{}, fmt.Errorf("invalid price for %s: %w", item.ID, err)
	}
	return itemDocument{
		ID:        item.ID,
		Name:      item.Name,
		Price:     price,
		Category:  item.Category,
		Available: item.Available,
		Position:  position,
	}, nil
}

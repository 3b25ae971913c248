package order

import "context"

// Keys of the persisted storefront records.
const (
	KeyOrderDetails = "orderDetails"
	KeyHistory      = "restaurant_orders"
)

// Storage is the key-value persistence port behind the order store.
// Load returns nil data and no error when the key does not exist.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

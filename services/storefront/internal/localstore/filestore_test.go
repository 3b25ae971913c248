package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storefront", "local.json")

	store := NewFileStore(path, nil)
	if err := store.Save(ctx, "orderDetails", []byte(`[{"id":"taco-pastor","quantity":2}]`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reopened := NewFileStore(path, nil)
	data, err := reopened.Load(ctx, "orderDetails")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(data) != `[{"id":"taco-pastor","quantity":2}]` {
		t.Errorf("Load() = %s", data)
	}

	if err := reopened.Delete(ctx, "orderDetails"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	data, err = NewFileStore(path, nil).Load(ctx, "orderDetails")
	if err != nil {
		t.Fatalf("Load() after Delete error = %v", err)
	}
	if data != nil {
		t.Errorf("Load() after Delete = %s, want nil", data)
	}
}

func TestFileStoreLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		create  bool
		wantErr bool
	}{
		{name: "missingFile", create: false},
		{name: "emptyFile", create: true, content: ""},
		{name: "corruptFile", create: true, content: "{not json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "local.json")
			if tt.create {
				if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
					t.Fatalf("WriteFile() error = %v", err)
				}
			}

			data, err := NewFileStore(path, nil).Load(context.Background(), "orderDetails")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if data != nil {
				t.Errorf("Load() = %s, want nil", data)
			}
		})
	}
}

func TestFileStoreRejectsInvalidJSON(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Save(context.Background(), "orderDetails", []byte("not json")); err == nil {
		t.Error("Save() with invalid JSON should fail")
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Save(ctx, "restaurant_orders", []byte(`[]`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := store.Load(ctx, "restaurant_orders")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("Load() = %s, want []", data)
	}
	if err := store.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}

func TestFileStoreRecoversFromCorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "local.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	store := NewFileStore(path, nil)
	if _, err := store.Load(ctx, "orderDetails"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := store.Save(ctx, "orderDetails", []byte(`[{"id":"refresco","quantity":1}]`)); err != nil {
		t.Fatalf("Save() after corrupt file error = %v", err)
	}

	data, err := NewFileStore(path, nil).Load(ctx, "orderDetails")
	if err != nil {
		t.Fatalf("Load() after rewrite error = %v", err)
	}
	if string(data) != `[{"id":"refresco","quantity":1}]` {
		t.Errorf("Load() after rewrite = %s", data)
	}
}

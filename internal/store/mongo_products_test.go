package store

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"backend/internal/models"
)

func TestNormalizeProductDocumentLegacyCategoryString(t *testing.T) {
	product, err := normalizeProductDocument(bson.M{
		"name":     "Apples",
		"price":    3.5,
		"category": "Fruit",
		"stock":    int32(7),
	})
	if err != nil {
		t.Fatalf("normalizeProductDocument returned error: %v", err)
	}
	if len(product.Category) != 1 || product.Category[0] != "Fruit" {
		t.Fatalf("expected legacy string category to become a list, got %v", product.Category)
	}
	if product.Stock != 7 || !product.InStock {
		t.Fatalf("expected stock 7 in stock, got stock=%d inStock=%v", product.Stock, product.InStock)
	}
}

func TestNormalizeProductDocumentDefaultsStatusFromStock(t *testing.T) {
	inStock, err := normalizeProductDocument(bson.M{"name": "Kale", "price": 2.0, "stock": 4})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if inStock.Status != models.ProductStatusAvailable || inStock.Visibility != models.ProductVisible {
		t.Fatalf("expected available/visible defaults, got %s/%s", inStock.Status, inStock.Visibility)
	}

	depleted, err := normalizeProductDocument(bson.M{"name": "Kale", "price": 2.0})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if depleted.Stock != 0 || depleted.Status != models.ProductStatusOutOfStock {
		t.Fatalf("missing stock should default to 0/out_of_stock, got %d/%s", depleted.Stock, depleted.Status)
	}
}

func TestNormalizeProductDocumentNumericStockTypes(t *testing.T) {
	for _, raw := range []interface{}{int32(3), int64(3), float64(3), 3} {
		product, err := normalizeProductDocument(bson.M{"name": "Corn", "price": 1.0, "stock": raw})
		if err != nil {
			t.Fatalf("normalize stock %T: %v", raw, err)
		}
		if product.Stock != 3 {
			t.Fatalf("stock %T normalized to %d, want 3", raw, product.Stock)
		}
	}
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product status values.
const (
	ProductStatusAvailable  = "available"
	ProductStatusOutOfStock = "out_of_stock"
)

// Product visibility values.
const (
	ProductVisible = "visible"
	ProductHidden  = "hidden"
)

// Product is a farmer's listing. Discount is a string-encoded percentage
// ("10" means 10% off); absent or empty means no discount.
type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FarmerID    primitive.ObjectID `bson:"farmerId" json:"farmerId"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Category    StringList         `bson:"category" json:"category"`
	Price       float64            `bson:"price" json:"price"`
	Discount    string             `bson:"discount,omitempty" json:"discount,omitempty"`
	Stock       int                `bson:"stock" json:"stock"`
	Status      string             `bson:"status" json:"status"`
	Visibility  string             `bson:"visibility" json:"visibility"`
	ImagePath   string             `bson:"imagePath,omitempty" json:"imagePath,omitempty"`
	InStock     bool               `bson:"-" json:"inStock"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Orderable reports whether the product can currently be placed in a cart.
func (p *Product) Orderable() bool {
	return p.Status == ProductStatusAvailable && p.Visibility == ProductVisible
}

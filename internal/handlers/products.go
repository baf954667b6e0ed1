package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/middleware"
	"backend/internal/models"
	"backend/internal/store"
)

/* =========================
   PUBLIC CATALOG
========================= */

// GetProducts lists visible products for the storefront.
func GetProducts(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid pagination params")
			return
		}

		filter := store.ProductFilter{VisibleOnly: true, Page: page, Limit: limit}
		if farmer := strings.TrimSpace(c.Query("farmerId")); farmer != "" {
			farmerID, err := primitive.ObjectIDFromHex(farmer)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "invalid farmerId")
				return
			}
			filter.FarmerID = &farmerID
		}

		products, err := st.Products().List(c.Request.Context(), filter)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "products": products})
	}
}

// GetProduct returns a single product.
func GetProduct(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		product, err := st.Products().Get(c.Request.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "product": product})
	}
}

/* =========================
   FARMER CRUD
========================= */

type productRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Category    []string `json:"category"`
	Price       float64  `json:"price" binding:"required"`
	Discount    string   `json:"discount"`
	Stock       int      `json:"stock"`
	Visibility  string   `json:"visibility"`
	ImagePath   string   `json:"imagePath"`
}

func (r productRequest) validate() string {
	if r.Price <= 0 {
		return "price must be greater than 0"
	}
	if r.Stock < 0 {
		return "stock cannot be negative"
	}
	if d := strings.TrimSpace(r.Discount); d != "" {
		val, err := strconv.ParseFloat(strings.TrimSuffix(d, "%"), 64)
		if err != nil || val < 0 || val > 100 {
			return "discount must be a percentage between 0 and 100"
		}
	}
	if r.Visibility != "" && r.Visibility != models.ProductVisible && r.Visibility != models.ProductHidden {
		return "visibility must be visible or hidden"
	}
	return ""
}

func (r productRequest) toModel(farmerID primitive.ObjectID) models.Product {
	visibility := r.Visibility
	if visibility == "" {
		visibility = models.ProductVisible
	}
	status := models.ProductStatusAvailable
	if r.Stock <= 0 {
		status = models.ProductStatusOutOfStock
	}
	return models.Product{
		FarmerID:    farmerID,
		Name:        strings.TrimSpace(r.Name),
		Description: strings.TrimSpace(r.Description),
		Category:    models.StringList(r.Category),
		Price:       r.Price,
		Discount:    strings.TrimSpace(r.Discount),
		Stock:       r.Stock,
		Status:      status,
		Visibility:  visibility,
		ImagePath:   r.ImagePath,
	}
}

// CreateProduct adds a listing for the authenticated farmer.
func CreateProduct(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /farmer/products"
		defer handlePanic(c, route)

		farmerID, ok := middleware.UserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req productRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			respondWithError(c, http.StatusBadRequest, route, msg)
			return
		}

		product := req.toModel(farmerID)
		product.CreatedAt = time.Now()
		product.UpdatedAt = product.CreatedAt

		if err := st.Products().Create(c.Request.Context(), &product); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusCreated, gin.H{"ok": true, "product": product})
	}
}

// UpdateProduct replaces the mutable fields of the farmer's own listing.
func UpdateProduct(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /farmer/products/:id"
		defer handlePanic(c, route)

		farmerID, ok := middleware.UserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		var req productRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			respondWithError(c, http.StatusBadRequest, route, msg)
			return
		}

		product := req.toModel(farmerID)
		product.ID = id

		err = st.Products().Update(c.Request.Context(), &product)
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "product": product})
	}
}

// DeleteProduct removes the farmer's own listing.
func DeleteProduct(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /farmer/products/:id"
		defer handlePanic(c, route)

		farmerID, ok := middleware.UserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		err = st.Products().Delete(c.Request.Context(), id, farmerID)
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "message": "product deleted"})
	}
}

// GetFarmerProducts lists the authenticated farmer's own listings,
// hidden ones included.
func GetFarmerProducts(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /farmer/products"
		defer handlePanic(c, route)

		farmerID, ok := middleware.UserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid pagination params")
			return
		}

		products, err := st.Products().List(c.Request.Context(), store.ProductFilter{
			FarmerID: &farmerID,
			Page:     page,
			Limit:    limit,
		})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "products": products})
	}
}

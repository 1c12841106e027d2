package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/pharmadirect/pharmacy-backend/common/errors"
	"github.com/pharmadirect/pharmacy-backend/repository"
)

type ProductController struct {
	Products repository.ProductRepository
	Logger   *zap.Logger
}

func NewProductController(products repository.ProductRepository, logger *zap.Logger) *ProductController {
	return &ProductController{Products: products, Logger: logger}
}

// GetProducts is the catalog browse query: filtered, sorted, paged.
func (pc *ProductController) GetProducts(c *gin.Context) {
	var page repository.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid paging parameters"})
		return
	}

	filter := repository.ProductFilter{
		Search: c.Query("search"),
		Brand:  c.Query("brand"),
		Form:   c.Query("form"),
	}
	if raw := c.Query("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category id"})
			return
		}
		filter.CategoryID = &id
	}
	if raw := c.Query("rx_required"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rx_required must be a boolean"})
			return
		}
		filter.RxRequired = &v
	}
	if raw := c.Query("min_price"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_price must be an integer amount in cents"})
			return
		}
		filter.MinPrice = &v
	}
	if raw := c.Query("max_price"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_price must be an integer amount in cents"})
			return
		}
		filter.MaxPrice = &v
	}

	result, err := pc.Products.FindPaged(c.Request.Context(), filter, page)
	if err != nil {
		apperrors.Respond(c, apperrors.Persistence(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":       result.Items,
		"page_number": result.PageNumber,
		"page_size":   result.PageSize,
		"total_count": result.TotalCount,
		"total_pages": result.TotalPages(),
		"has_more":    result.HasMore(),
	})
}

// GetProductByID returns one catalog entry.
func (pc *ProductController) GetProductByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	product, err := pc.Products.FindByID(c.Request.Context(), id)
	if err != nil {
		apperrors.Respond(c, apperrors.Persistence(err))
		return
	}
	if product == nil {
		apperrors.Respond(c, apperrors.NotFound("product not found"))
		return
	}
	c.JSON(http.StatusOK, product)
}

package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront/internal/domain"
	"storefront/internal/service"
)

type CatalogHandler struct {
	catalog service.CatalogService
}

func NewCatalogHandler(catalog service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// GET /api/products?category=&subcategory=&brand=&minPrice=&maxPrice=&inStock=&sort=&page=&limit=
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	f := domain.ProductFilter{
		Subcategory: c.Query("subcategory"),
		Brand:       c.Query("brand"),
		InStock:     c.Query("inStock") == "true",
		Sort:        domain.ParseProductSort(c.Query("sort")),
		Page:        pageQuery(c),
	}
	if raw := c.Query("category"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			fail(c, bindErr(err))
			return
		}
		f.CategoryID = &id
	}
	var err error
	if f.MinPrice, err = decimalQuery(c, "minPrice"); err != nil {
		fail(c, err)
		return
	}
	if f.MaxPrice, err = decimalQuery(c, "maxPrice"); err != nil {
		fail(c, err)
		return
	}

	res, err := h.catalog.ListProducts(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	p, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, bindErr(err))
		return
	}
	p, err := h.catalog.CreateProduct(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, p)
}

func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, bindErr(err))
		return
	}
	p, err := h.catalog.UpdateProduct(c.Request.Context(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"id": id})
}

// GET /api/search?q=&sort=&page=&limit=
func (h *CatalogHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	res, err := h.catalog.Search(c.Request.Context(), q, domain.ParseProductSort(c.Query("sort")), pageQuery(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "query": q, "data": res})
}

func (h *CatalogHandler) ListCategories(c *gin.Context) {
	cats, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, cats)
}

func (h *CatalogHandler) GetCategory(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	cat, err := h.catalog.GetCategory(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, cat)
}

func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var in service.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, bindErr(err))
		return
	}
	cat, err := h.catalog.CreateCategory(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, cat)
}

func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var in service.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, bindErr(err))
		return
	}
	cat, err := h.catalog.UpdateCategory(c.Request.Context(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, cat)
}

func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.catalog.DeleteCategory(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"id": id})
}

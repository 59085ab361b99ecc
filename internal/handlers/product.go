// internal/handlers/product.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/greenproof/greenproof-backend/internal/i18n"
	"github.com/greenproof/greenproof-backend/internal/models"
	"github.com/greenproof/greenproof-backend/internal/services"
	"github.com/greenproof/greenproof-backend/internal/utils"
)

type ProductHandler struct {
	productService *services.ProductService
}

func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// GET /api/products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	// Build search parameters
	searchParams := services.ProductSearchParams{
		PaginationParams: params,
		Category:         models.ProductCategory(c.Query("category")),
		Status:           models.ProductStatus(c.Query("status")),
	}

	producerID, ok := optionalUUIDQuery(c, "producer")
	if !ok {
		return
	}
	searchParams.ProducerID = producerID

	products, total, err := h.productService.GetProducts(c.Request.Context(), searchParams)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, "products", products, utils.CreatePaginationResult(total, params))
}

// GET /api/products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	productID, ok := utils.ParseUUIDParam(c, "id", "product")
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(c.Request.Context(), productID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"product": product})
}

// GET /api/products/qr/:qrCode
func (h *ProductHandler) GetProductByQRCode(c *gin.Context) {
	product, err := h.productService.GetProductByQRCode(c.Request.Context(), c.Param("qrCode"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"product": product})
}

// GET /api/products/:id/qr
func (h *ProductHandler) GetProductQRCode(c *gin.Context) {
	productID, ok := utils.ParseUUIDParam(c, "id", "product")
	if !ok {
		return
	}

	qr, err := h.productService.GetProductQRCode(c.Request.Context(), productID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"qrCode": qr})
}

// POST /api/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	created, err := h.productService.CreateProduct(c.Request.Context(), userID, &req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, i18n.T(lang, i18n.KeyProductCreated), created)
}

// PUT /api/products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	productID, ok := utils.ParseUUIDParam(c, "id", "product")
	if !ok {
		return
	}

	var req services.UpdateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), productID, userID, &req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.MessageResponse(c, i18n.T(lang, i18n.KeyProductUpdated), gin.H{"product": product})
}

// DELETE /api/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	productID, ok := utils.ParseUUIDParam(c, "id", "product")
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), productID, userID); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.MessageResponse(c, i18n.T(lang, i18n.KeyProductDeleted), nil)
}

// POST /api/products/:id/supply-chain
func (h *ProductHandler) AddSupplyChainStage(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	productID, ok := utils.ParseUUIDParam(c, "id", "product")
	if !ok {
		return
	}

	var req services.AddSupplyChainStageRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.AddSupplyChainStage(c.Request.Context(), productID, userID, &req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.MessageResponse(c, i18n.T(lang, i18n.KeyProductStageAdded), gin.H{"product": product})
}

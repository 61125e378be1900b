package handlers

import (
	"math"
	"strconv"
	"strings"

	"sweetshop/internal/middleware"
	"sweetshop/internal/models"
	"sweetshop/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ItemHandler handles HTTP requests for catalog items and purchases.
type ItemHandler struct {
	catalog  *services.CatalogService
	admin    *services.AdminService
	purchase *services.PurchaseService
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(catalog *services.CatalogService, admin *services.AdminService, purchase *services.PurchaseService) *ItemHandler {
	return &ItemHandler{
		catalog:  catalog,
		admin:    admin,
		purchase: purchase,
	}
}

// RegisterRoutes registers the item routes. Reads are anonymous; authRequired guards
// purchases and, together with the admin role check, every mutation. Both run before
// any body is parsed.
func (h *ItemHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	itemRoutes := router.Group("/items")
	itemRoutes.Get("/", h.HandleSearchItems)
	itemRoutes.Get("/:id", h.HandleGetItemByID)
	itemRoutes.Post("/", authRequired, adminOnly, h.HandleCreateItem)
	itemRoutes.Put("/:id", authRequired, adminOnly, h.HandleUpdateItem)
	itemRoutes.Delete("/:id", authRequired, adminOnly, h.HandleDeleteItem)
	itemRoutes.Post("/:id/purchase", authRequired, h.HandlePurchaseItem)
}

// HandleSearchItems lists items matching the optional search, minPrice, maxPrice and
// available query parameters.
func (h *ItemHandler) HandleSearchItems(c *fiber.Ctx) error {
	filter, err := parseItemFilter(c)
	if err != nil {
		return respondError(c, "Invalid search parameters", err)
	}

	items, err := h.catalog.Search(c.UserContext(), filter)
	if err != nil {
		return respondError(c, "Could not retrieve items", err)
	}
	return c.JSON(items)
}

func parseItemFilter(c *fiber.Ctx) (models.ItemFilter, error) {
	filter := models.ItemFilter{Search: strings.TrimSpace(c.Query("search"))}
	fields := make(map[string]string)

	parsePrice := func(name string) *float64 {
		raw := strings.TrimSpace(c.Query(name))
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			fields[name] = "must be a number"
			return nil
		}
		return &v
	}
	filter.MinPrice = parsePrice("minPrice")
	filter.MaxPrice = parsePrice("maxPrice")

	if raw := strings.TrimSpace(c.Query("available")); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			fields["available"] = "must be a boolean"
		}
		filter.AvailableOnly = available
	}

	if len(fields) > 0 {
		return models.ItemFilter{}, &models.ValidationError{Fields: fields}
	}
	return filter, nil
}

// HandleGetItemByID retrieves a single item by its ID.
func (h *ItemHandler) HandleGetItemByID(c *fiber.Ctx) error {
	item, err := h.catalog.GetItem(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, "Could not retrieve item", err)
	}
	return c.JSON(item)
}

// CreateItemRequest is the body of POST /items. Price and quantity are pointers so that
// an omitted value is rejected rather than read as zero.
type CreateItemRequest struct {
	Name     string   `json:"name" validate:"required,max=100"`
	Category string   `json:"category" validate:"required,max=50"`
	Price    *float64 `json:"price" validate:"required,gte=0"`
	Quantity *int     `json:"quantity" validate:"required,gte=0"`
	Image    string   `json:"image" validate:"omitempty,max=500"`
}

// HandleCreateItem adds a new item to the catalog.
func (h *ItemHandler) HandleCreateItem(c *fiber.Ctx) error {
	var req CreateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, "Invalid request body", invalidBody(err))
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if err := models.ValidateStruct(req); err != nil {
		return respondError(c, "Validation failed", err)
	}

	item := &models.Item{
		Name:     req.Name,
		Category: req.Category,
		Price:    *req.Price,
		Quantity: *req.Quantity,
		Image:    req.Image,
	}
	created, err := h.admin.CreateItem(c.UserContext(), item, middleware.PrincipalFrom(c))
	if err != nil {
		return respondError(c, "Could not create item", err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// HandleUpdateItem applies a partial update to an existing item.
func (h *ItemHandler) HandleUpdateItem(c *fiber.Ctx) error {
	var patch models.ItemPatch
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&patch); err != nil {
			return respondError(c, "Invalid request body", invalidBody(err))
		}
	}

	item, err := h.admin.UpdateItem(c.UserContext(), c.Params("id"), patch, middleware.PrincipalFrom(c))
	if err != nil {
		return respondError(c, "Could not update item", err)
	}
	return c.JSON(item)
}

// HandleDeleteItem removes an item from the catalog.
func (h *ItemHandler) HandleDeleteItem(c *fiber.Ctx) error {
	if err := h.admin.DeleteItem(c.UserContext(), c.Params("id"), middleware.PrincipalFrom(c)); err != nil {
		return respondError(c, "Could not delete item", err)
	}
	return c.JSON(fiber.Map{
		"message": "Item removed successfully",
	})
}

// HandlePurchaseItem sells one unit of an item to the caller.
func (h *ItemHandler) HandlePurchaseItem(c *fiber.Ctx) error {
	receipt, err := h.purchase.Purchase(c.UserContext(), c.Params("id"), middleware.PrincipalFrom(c))
	if err != nil {
		return respondError(c, "Purchase failed", err)
	}
	return c.JSON(fiber.Map{
		"message":      "Purchase successful",
		"data":         receipt.Item,
		"purchased_at": receipt.PurchasedAt,
	})
}

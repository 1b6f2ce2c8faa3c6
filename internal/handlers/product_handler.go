package handlers

import (
	"encoding/json"
	"errors"
	"strconv"

	"productapi/internal/models"
	"productapi/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrBadRequest reports a request body that is missing or not a JSON object.
var ErrBadRequest = errors.New("invalid JSON body")

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service *services.ProductService
	log     *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, log *zap.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		log:     log,
	}
}

// RegisterRoutes registers the product routes with the Fiber router.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Put("/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
}

// HandleGetProducts lists every product.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(products)
}

// HandleCreateProduct creates a product from a JSON object body.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	fields, err := parseFields(c)
	if err != nil {
		return invalidJSON(c)
	}

	product, err := h.service.CreateProduct(c.UserContext(), fields)
	if err != nil {
		return h.writeError(c, "Could not create product", err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleGetProductByID returns one product.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.lookup(c)
	if err != nil {
		return h.writeError(c, "Could not retrieve product", err)
	}
	return c.JSON(product)
}

// HandleUpdateProduct overwrites the fields present in the body.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	product, err := h.lookup(c)
	if err != nil {
		return h.writeError(c, "Could not retrieve product", err)
	}

	fields, err := parseFields(c)
	if err != nil {
		return invalidJSON(c)
	}

	updated, err := h.service.UpdateProduct(c.UserContext(), product, fields)
	if err != nil {
		return h.writeError(c, "Could not update product", err)
	}
	return c.JSON(updated)
}

// HandleDeleteProduct removes a product.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	product, err := h.lookup(c)
	if err != nil {
		return h.writeError(c, "Could not retrieve product", err)
	}

	if err := h.service.DeleteProduct(c.UserContext(), product); err != nil {
		return h.writeError(c, "Could not delete product", err)
	}
	return c.JSON(fiber.Map{
		"message": "Product deleted",
	})
}

// lookup resolves the :id route parameter. IDs that are not unsigned
// integers cannot exist and are reported as not found.
func (h *ProductHandler) lookup(c *fiber.Ctx) (*models.Product, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 0)
	if err != nil {
		return nil, services.ErrProductNotFound
	}
	return h.service.GetProductByID(c.UserContext(), uint(id))
}

// writeError maps service errors onto status codes.
func (h *ProductHandler) writeError(c *fiber.Ctx, message string, err error) error {
	var validationErr *services.ValidationError
	var persistenceErr *services.PersistenceError

	switch {
	case errors.Is(err, services.ErrProductNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Product not found",
		})
	case errors.As(err, &validationErr):
		body := fiber.Map{"message": validationErr.Message}
		if len(validationErr.Fields) > 0 {
			body["errors"] = validationErr.Fields
		}
		return c.Status(fiber.StatusBadRequest).JSON(body)
	case errors.As(err, &persistenceErr):
		h.log.Error(message, zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": message,
			"error":   persistenceErr.Err.Error(),
		})
	default:
		return err
	}
}

func parseFields(c *fiber.Ctx) (services.ProductFields, error) {
	var fields services.ProductFields
	if err := json.Unmarshal(c.Body(), &fields); err != nil {
		return nil, ErrBadRequest
	}
	// A literal null decodes without error into a nil map.
	if fields == nil {
		return nil, ErrBadRequest
	}
	return fields, nil
}

func invalidJSON(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid JSON",
	})
}

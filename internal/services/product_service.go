package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"productapi/internal/models"
	"productapi/internal/repositories"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Routing keys of the events published after successful writes.
const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
)

// EventPublisher delivers product change notifications to a broker.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// ProductEvent is the body of a published product notification.
type ProductEvent struct {
	Type    string         `json:"type"`
	Product models.Product `json:"product"`
}

// ProductFields holds a decoded JSON object from a create or update request.
// Key presence matters: a missing key and a null value are different inputs.
type ProductFields map[string]any

// ProductService handles business logic related to products.
type ProductService struct {
	repo      repositories.ProductRepository
	publisher EventPublisher
	validate  *validator.Validate
	log       *zap.Logger
}

// NewProductService creates a new ProductService. publisher may be nil.
func NewProductService(repo repositories.ProductRepository, publisher EventPublisher, log *zap.Logger) *ProductService {
	return &ProductService{
		repo:      repo,
		publisher: publisher,
		validate:  NewValidator(),
		log:       log,
	}
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.GetAll(ctx)
}

// GetProductByID retrieves a single product by its ID. A missing product is
// reported as ErrProductNotFound.
func (s *ProductService) GetProductByID(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

// CreateProduct validates fields and inserts a new product.
func (s *ProductService) CreateProduct(ctx context.Context, fields ProductFields) (*models.Product, error) {
	var product models.Product

	if err := applyName(&product, fields); err != nil {
		return nil, err
	}
	raw, ok := fields["description"]
	if !ok {
		return nil, invalidInput("Description must be a string or null")
	}
	if err := applyDescription(&product, raw); err != nil {
		return nil, err
	}
	if err := applyPrice(&product, fields); err != nil {
		return nil, err
	}

	if err := s.check(&product); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, &product); err != nil {
		return nil, &PersistenceError{Op: "create", Err: err}
	}
	s.log.Info("Product created", zap.Uint("product_id", product.ID))
	s.notify(EventProductCreated, product)
	return &product, nil
}

// UpdateProduct merges the fields present in the request into a copy of
// existing, validates the copy and saves it. existing is never modified.
func (s *ProductService) UpdateProduct(ctx context.Context, existing *models.Product, fields ProductFields) (*models.Product, error) {
	product := existing.Clone()

	if err := applyName(&product, fields); err != nil {
		return nil, err
	}
	if raw, ok := fields["description"]; ok {
		if err := applyDescription(&product, raw); err != nil {
			return nil, err
		}
	}
	if err := applyPrice(&product, fields); err != nil {
		return nil, err
	}

	if err := s.check(&product); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, &product); err != nil {
		return nil, &PersistenceError{Op: "update", Err: err}
	}
	s.log.Info("Product updated", zap.Uint("product_id", product.ID))
	s.notify(EventProductUpdated, product)
	return &product, nil
}

// DeleteProduct removes a product from the store.
func (s *ProductService) DeleteProduct(ctx context.Context, product *models.Product) error {
	if err := s.repo.Delete(ctx, product); err != nil {
		return &PersistenceError{Op: "delete", Err: err}
	}
	s.log.Info("Product deleted", zap.Uint("product_id", product.ID))
	s.notify(EventProductDeleted, *product)
	return nil
}

func (s *ProductService) check(product *models.Product) error {
	if err := s.validate.Struct(product); err != nil {
		return &ValidationError{Message: "Validation errors", Fields: FieldErrors(err)}
	}
	return nil
}

// notify publishes a product event. Delivery is best effort: the write has
// already been committed, so failures are only logged.
func (s *ProductService) notify(eventType string, product models.Product) {
	if s.publisher == nil {
		return
	}
	body, err := json.Marshal(ProductEvent{Type: eventType, Product: product})
	if err != nil {
		s.log.Error("Failed to marshal product event", zap.String("event", eventType), zap.Error(err))
		return
	}
	if err := s.publisher.Publish(eventType, body); err != nil {
		s.log.Warn("Failed to publish product event",
			zap.String("event", eventType),
			zap.Uint("product_id", product.ID),
			zap.Error(err),
		)
	}
}

// applyName sets the name when the key holds a string. Null or absent
// leaves the current value.
func applyName(product *models.Product, fields ProductFields) error {
	s, ok, err := optionalString(fields, "name", "Name")
	if err != nil {
		return err
	}
	if ok {
		product.Name = s
	}
	return nil
}

func applyPrice(product *models.Product, fields ProductFields) error {
	s, ok, err := optionalString(fields, "price", "Price")
	if err != nil {
		return err
	}
	if ok {
		product.Price = s
	}
	return nil
}

func applyDescription(product *models.Product, raw any) error {
	switch v := raw.(type) {
	case nil:
		product.Description = nil
	case string:
		product.Description = &v
	default:
		return invalidInput("Description must be a string or null")
	}
	return nil
}

func optionalString(fields ProductFields, key, label string) (string, bool, error) {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", false, invalidInput(fmt.Sprintf("%s must be a string", label))
	}
	return s, true, nil
}

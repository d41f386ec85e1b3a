package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrNoValidProducts = errors.New("no products with valid categories found")
)

var slugStrip = regexp.MustCompile(`[^a-z0-9_-]+`)

// Slugify lowercases name, turns spaces into dashes and drops every other
// character outside [a-z0-9_-].
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	return slugStrip.ReplaceAllString(s, "")
}

// ProductInput carries the admin-editable fields of a product
type ProductInput struct {
	Name        string
	Slug        string
	Description string
	Price       int64
	Currency    string
	Images      []string
	CategoryID  uuid.UUID
	Inventory   int
	Features    []string
}

// CategoryInput carries the admin-editable fields of a category
type CategoryInput struct {
	Name        string
	Slug        string
	Description string
}

// BulkProductRow is one already-parsed import row. Category is matched by name.
type BulkProductRow struct {
	Name        string
	Slug        string
	Description string
	Price       int64
	Category    string
	Inventory   int
	Image       string
	Features    string
}

// BulkResult reports how many rows were created and how many were ignored
type BulkResult struct {
	Created int `json:"count"`
	Ignored int `json:"ignored"`
}

// ProductPage is one page of a product listing
type ProductPage struct {
	Products []*domain.Product `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// ProductQuery selects a page of products. A non-empty Search takes
// precedence over the category filter and sorting.
type ProductQuery struct {
	CategorySlug string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    repository.SortOrder
}

// CatalogService is the catalog store consumed by the cart and the admin back-office
type CatalogService interface {
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	BulkCreate(ctx context.Context, rows []BulkProductRow) (BulkResult, error)

	Snapshot(ctx context.Context, productID uuid.UUID) (domain.ProductSnapshot, error)
}

type catalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository) CatalogService {
	return &catalogService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
	}
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categoryRepo.List(ctx)
}

func (s *catalogService) CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	category := &domain.Category{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(in.Name),
		Slug:        in.Slug,
		Description: in.Description,
		CreatedAt:   time.Now(),
	}
	if category.Slug == "" {
		category.Slug = Slugify(category.Name)
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (*domain.Category, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	category.Name = strings.TrimSpace(in.Name)
	category.Description = in.Description
	if in.Slug != "" {
		category.Slug = in.Slug
	}

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.categoryRepo.Delete(ctx, id)
}

func (s *catalogService) ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 20
	}

	var (
		products []*domain.Product
		total    int
		err      error
	)

	if strings.TrimSpace(q.Search) != "" {
		products, total, err = s.productRepo.Search(ctx, q.Search, q.Page, q.PageSize)
	} else {
		var categoryID *uuid.UUID
		if q.CategorySlug != "" {
			category, cerr := s.categoryRepo.FindBySlug(ctx, q.CategorySlug)
			if cerr != nil {
				return nil, cerr
			}
			categoryID = &category.ID
		}
		products, total, err = s.productRepo.List(ctx, categoryID, q.Page, q.PageSize, q.SortBy, q.SortOrder)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return &ProductPage{
		Products: products,
		Total:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
	}, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

func (s *catalogService) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return s.productRepo.FindBySlug(ctx, slug)
}

func (s *catalogService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if _, err := s.categoryRepo.FindByID(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	now := time.Now()
	product := &domain.Product{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyProductInput(product, in)

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.CategoryID != product.CategoryID {
		if _, err := s.categoryRepo.FindByID(ctx, in.CategoryID); err != nil {
			return nil, err
		}
	}

	applyProductInput(product, in)
	product.UpdatedAt = time.Now()

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func applyProductInput(p *domain.Product, in ProductInput) {
	p.Name = strings.TrimSpace(in.Name)
	p.Slug = in.Slug
	if p.Slug == "" {
		p.Slug = Slugify(p.Name)
	}
	p.Description = in.Description
	p.Price = in.Price
	p.Currency = in.Currency
	if p.Currency == "" {
		p.Currency = domain.DefaultCurrency
	}
	p.Images = in.Images
	p.CategoryID = in.CategoryID
	p.Inventory = in.Inventory
	p.Features = in.Features
}

func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.productRepo.Delete(ctx, id)
}

// BulkCreate imports rows whose category name matches an existing category.
// Rows with unknown categories are ignored and counted.
func (s *catalogService) BulkCreate(ctx context.Context, rows []BulkProductRow) (BulkResult, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return BulkResult{}, err
	}
	byName := make(map[string]uuid.UUID, len(categories))
	for _, c := range categories {
		byName[strings.ToLower(c.Name)] = c.ID
	}

	now := time.Now()
	products := make([]*domain.Product, 0, len(rows))
	for _, row := range rows {
		categoryID, ok := byName[strings.ToLower(strings.TrimSpace(row.Category))]
		if !ok {
			continue
		}

		product := &domain.Product{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		}
		in := ProductInput{
			Name:        row.Name,
			Slug:        row.Slug,
			Description: row.Description,
			Price:       row.Price,
			CategoryID:  categoryID,
			Inventory:   row.Inventory,
			Features:    splitFeatures(row.Features),
		}
		if row.Image != "" {
			in.Images = []string{row.Image}
		}
		applyProductInput(product, in)
		products = append(products, product)
	}

	result := BulkResult{Ignored: len(rows) - len(products)}
	if len(products) == 0 {
		return result, ErrNoValidProducts
	}

	if err := s.productRepo.BulkCreate(ctx, products); err != nil {
		return result, err
	}
	result.Created = len(products)
	return result, nil
}

func splitFeatures(raw string) []string {
	features := []string{}
	for _, f := range strings.Split(raw, ";") {
		if f = strings.TrimSpace(f); f != "" {
			features = append(features, f)
		}
	}
	return features
}

// Snapshot resolves a product and its category into the frozen form held by cart lines
func (s *catalogService) Snapshot(ctx context.Context, productID uuid.UUID) (domain.ProductSnapshot, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return domain.ProductSnapshot{}, err
	}

	category, err := s.categoryRepo.FindByID(ctx, product.CategoryID)
	if err != nil && !errors.Is(err, repository.ErrCategoryNotFound) {
		return domain.ProductSnapshot{}, err
	}
	return product.Snapshot(category), nil
}

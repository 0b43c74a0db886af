package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/voyager-tech/go-backend/internal/cfg"
	"github.com/voyager-tech/go-backend/internal/domain"
	"github.com/voyager-tech/go-backend/pkg/e"
)

// Resolver сопоставляет скрапленные данные с долговечными идентификаторами магазинов и товаров.
type Resolver struct {
	storeRepo    StoreRepository
	productRepo  ProductRepository
	categoryRepo CategoryRepository
	cfg          *cfg.CatalogCfg
}

func NewResolver(
	storeRepo StoreRepository,
	productRepo ProductRepository,
	categoryRepo CategoryRepository,
	cfg *cfg.CatalogCfg,
) *Resolver {
	return &Resolver{
		storeRepo:    storeRepo,
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		cfg:          cfg,
	}
}

// ResolveStore находит магазин по хосту baseURL или создаёт его.
func (r *Resolver) ResolveStore(ctx context.Context, baseURL string) (*domain.Store, error) {
	const op = "Resolver.ResolveStore"

	u, err := domain.ParseHTTPURL(baseURL)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	name, err := domain.StoreNameFromURL(baseURL)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	store := domain.NewStore(name, fmt.Sprintf("%s://%s", u.Scheme, strings.ToLower(u.Host)))
	store.Currency = r.cfg.DefaultCurrency

	resolved, err := r.storeRepo.Resolve(ctx, store)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return resolved, nil
}

// ResolveProduct вставляет товар по ключу (storeID, url) или обновляет его изменяемые поля.
// Ровно одна вставка или одно обновление за вызов.
func (r *Resolver) ResolveProduct(ctx context.Context, storeID int64, in ProductInput) (*ResolvedProduct, error) {
	const op = "Resolver.ResolveProduct"

	if err := validateProductInput(storeID, &in); err != nil {
		return nil, e.Wrap(op, err)
	}

	fields := domain.ScrapedFields{
		Name:       in.Name,
		Image:      in.Image,
		CategoryID: in.CategoryID,
		InStock:    in.InStock,
		ScrapedAt:  in.ScrapedAt,
	}

	res, err := r.productRepo.Upsert(ctx, domain.NewProduct(storeID, in.URL, fields))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	resolved := &ResolvedProduct{Product: res.Product, Created: res.Created}
	if !res.Created && res.Previous != nil {
		_, resolved.Changes = res.Previous.ApplyUpdate(fields)
	}

	return resolved, nil
}

// ResolveCategory возвращает ID категории по slug. Пустой slug — без категории.
// Неизвестный slug — ошибка валидации: данные не подгоняются под таксономию.
func (r *Resolver) ResolveCategory(ctx context.Context, slug string) (*int64, error) {
	const op = "Resolver.ResolveCategory"

	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, nil
	}

	category, found, err := r.categoryRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if !found {
		return nil, e.NewValidationError(-1, "category", fmt.Sprintf("unknown category slug %q", slug))
	}

	id := category.ID
	return &id, nil
}

// validateProductInput нормализует и проверяет вход до обращения к хранилищу.
func validateProductInput(storeID int64, in *ProductInput) error {
	if storeID <= 0 {
		return e.ErrInvalidID
	}

	return validateProductFields(in)
}

func validateProductFields(in *ProductInput) error {
	canonical, err := domain.CanonicalProductURL(in.URL)
	if err != nil {
		return err
	}
	in.URL = canonical

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return e.NewValidationError(-1, "name", "must not be empty")
	}

	if in.Image != nil {
		img := strings.TrimSpace(*in.Image)
		if img == "" {
			in.Image = nil
		} else {
			in.Image = &img
		}
	}

	if in.ScrapedAt.IsZero() {
		in.ScrapedAt = time.Now().UTC()
	}

	return nil
}

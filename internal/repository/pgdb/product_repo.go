package pgdb

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jimlawless/whereami"
	"github.com/voyager-tech/go-backend/internal/domain"
	"github.com/voyager-tech/go-backend/internal/repository/pgdb/converter"
	"github.com/voyager-tech/go-backend/internal/usecase"
	"github.com/voyager-tech/go-backend/pkg/e"
	"github.com/voyager-tech/go-backend/pkg/postgres"
)

// productInfoSelect — товар с магазином, категорией и последним наблюдением цены.
const productInfoSelect = `
	SELECT
		p.id, p.store_id, s.name, p.category_id, c.name, p.name, p.url, p.image,
		p.in_stock, p.is_deleted, p.last_scraped_at, p.created_at,
		lp.price::TEXT, lp.currency, lp.scraped_at
	FROM products p
	JOIN stores s ON s.id = p.store_id
	LEFT JOIN categories c ON c.id = p.category_id
	LEFT JOIN LATERAL (
		SELECT pr.price, pr.currency, pr.scraped_at
		FROM prices pr
		WHERE pr.product_id = p.id
		ORDER BY pr.scraped_at DESC, pr.id DESC
		LIMIT 1
	) lp ON TRUE
`

// ProductRepo реализует репозиторий товаров поверх PostgreSQL.
type ProductRepo struct {
	db   postgres.DB
	conv converter.ProductConverter
}

func NewProductRepo(db postgres.DB, conv converter.ProductConverter) *ProductRepo {
	return &ProductRepo{
		db:   db,
		conv: conv,
	}
}

// Upsert атомарно создаёт товар по ключу (store_id, url) или обновляет его изменяемые поля.
// Отсутствующие image и category_id сохраняют прежние значения, search_text меняется только
// вместе с именем, повторное появление снимает мягкое удаление. last_scraped_at не откатывается
// назад, если батч догружает старый скрапинг.
// CTE prev видит строку до изменения: по ней usecase вычисляет, что поменялось.
func (p *ProductRepo) Upsert(ctx context.Context, product *domain.Product) (*usecase.UpsertProductRes, error) {
	model, err := p.conv.ToModel(product)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	// VALUES ($1..$8) store_id, url, name, image, category_id, in_stock, last_scraped_at, search_text
	query := `
		WITH prev AS (
			SELECT id, category_id, name, image, in_stock, is_deleted, deleted_at, last_scraped_at, search_text
			FROM products
			WHERE store_id = $1 AND url = $2
			FOR UPDATE
		), upsert AS (
			INSERT INTO products (store_id, url, name, image, category_id, in_stock, last_scraped_at, search_text)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (store_id, url)
			DO UPDATE SET
				name = EXCLUDED.name,
				image = COALESCE(EXCLUDED.image, products.image),
				category_id = COALESCE(EXCLUDED.category_id, products.category_id),
				in_stock = EXCLUDED.in_stock,
				last_scraped_at = GREATEST(products.last_scraped_at, EXCLUDED.last_scraped_at),
				search_text = CASE
					WHEN products.name IS DISTINCT FROM EXCLUDED.name THEN EXCLUDED.search_text
					ELSE products.search_text
				END,
				is_deleted = FALSE,
				deleted_at = NULL,
				updated_at = NOW()
			RETURNING
				id, store_id, category_id, name, url, image, metadata, in_stock, is_deleted,
				deleted_at, last_scraped_at, search_text, created_at, updated_at,
				(xmax = 0) AS inserted
		)
		SELECT
			u.id, u.store_id, u.category_id, u.name, u.url, u.image, u.metadata, u.in_stock, u.is_deleted,
			u.deleted_at, u.last_scraped_at, u.search_text, u.created_at, u.updated_at, u.inserted,
			prev.id, prev.category_id, prev.name, prev.image, prev.in_stock, prev.is_deleted,
			prev.deleted_at, prev.last_scraped_at, prev.search_text
		FROM upsert u
		LEFT JOIN prev ON prev.id = u.id;
	`

	var (
		res      converter.ProductModel
		prev     converter.PrevProductModel
		inserted bool
	)
	err = conn(ctx, p.db).QueryRow(ctx, query,
		model.StoreID, model.URL, model.Name, model.Image, model.CategoryID,
		model.InStock, model.LastScrapedAt, model.SearchText,
	).Scan(
		&res.ID, &res.StoreID, &res.CategoryID, &res.Name, &res.URL, &res.Image, &res.Metadata,
		&res.InStock, &res.IsDeleted, &res.DeletedAt, &res.LastScrapedAt, &res.SearchText,
		&res.CreatedAt, &res.UpdatedAt, &inserted,
		&prev.ID, &prev.CategoryID, &prev.Name, &prev.Image, &prev.InStock, &prev.IsDeleted,
		&prev.DeletedAt, &prev.LastScrapedAt, &prev.SearchText,
	)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), postgres.MapError(err))
	}

	current, err := p.conv.ToEntity(&res)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var previous *domain.Product
	if !inserted {
		previous = p.conv.ToPrevious(current, &prev)
	}

	return usecase.NewUpsertProductRes(current, previous, inserted), nil
}

// GetInfo возвращает товар с последней ценой; found == false, если товара нет или он скрыт политикой.
func (p *ProductRepo) GetInfo(ctx context.Context, id int64, includeDeleted bool) (*usecase.ProductInfo, bool, error) {
	query := productInfoSelect + `
		WHERE p.id = $1 AND ($2 OR NOT p.is_deleted);
	`

	rows, err := conn(ctx, p.db).Query(ctx, query, id, includeDeleted)
	if err != nil {
		return nil, false, e.Wrap(whereami.WhereAmI(), postgres.MapError(err))
	}

	products, err := p.collectInfo(rows)
	if err != nil {
		return nil, false, e.Wrap(whereami.WhereAmI(), err)
	}
	if len(products) == 0 {
		return nil, false, nil
	}

	return &products[0], true, nil
}

// Recent возвращает товары по убыванию времени последнего скрапинга.
func (p *ProductRepo) Recent(ctx context.Context, limit int, includeDeleted bool) ([]usecase.ProductInfo, error) {
	query := productInfoSelect + `
		WHERE ($1 OR NOT p.is_deleted)
		ORDER BY p.last_scraped_at DESC NULLS LAST, p.id DESC
		LIMIT $2;
	`

	rows, err := conn(ctx, p.db).Query(ctx, query, includeDeleted, limit)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), postgres.MapError(err))
	}

	products, err := p.collectInfo(rows)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return products, nil
}

// Search ищет подстроку в search_text. normalized уже приведён NormalizeSearchText и
// содержит только буквы, цифры и одиночные пробелы, поэтому экранирование LIKE не нужно.
// Запрос обслуживается GIN-индексом pg_trgm.
func (p *ProductRepo) Search(ctx context.Context, normalized string, limit int, includeDeleted bool) ([]usecase.ProductInfo, error) {
	query := productInfoSelect + `
		WHERE p.search_text LIKE '%' || $1 || '%'
		  AND ($2 OR NOT p.is_deleted)
		ORDER BY p.last_scraped_at DESC NULLS LAST, p.id DESC
		LIMIT $3;
	`

	rows, err := conn(ctx, p.db).Query(ctx, query, normalized, includeDeleted, limit)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), postgres.MapError(err))
	}

	products, err := p.collectInfo(rows)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return products, nil
}

// MarkMissing мягко удаляет товары магазина (и категории, если задана),
// последний скрапинг которых раньше before. Возвращает ID помеченных товаров.
func (p *ProductRepo) MarkMissing(ctx context.Context, storeID int64, categoryID *int64, before time.Time) ([]int64, error) {
	query := `
		UPDATE products
		SET is_deleted = TRUE, deleted_at = $3, updated_at = NOW()
		WHERE store_id = $1
		  AND NOT is_deleted
		  AND (last_scraped_at IS NULL OR last_scraped_at < $3)
		  AND ($2::BIGINT IS NULL OR category_id = $2)
		RETURNING id;
	`

	rows, err := conn(ctx, p.db).Query(ctx, query, storeID, categoryID, before)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), postgres.MapError(err))
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), postgres.MapError(err))
	}

	return ids, nil
}

func (p *ProductRepo) collectInfo(rows pgx.Rows) ([]usecase.ProductInfo, error) {
	defer rows.Close()

	result := make([]usecase.ProductInfo, 0)
	for rows.Next() {
		var m converter.ProductInfoModel
		if err := rows.Scan(
			&m.ID, &m.StoreID, &m.StoreName, &m.CategoryID, &m.CategoryName, &m.Name, &m.URL, &m.Image,
			&m.InStock, &m.IsDeleted, &m.LastScrapedAt, &m.CreatedAt,
			&m.Price, &m.PriceCurrency, &m.PriceScrapedAt,
		); err != nil {
			return nil, err
		}

		info, err := p.conv.ToInfo(&m)
		if err != nil {
			return nil, err
		}

		result = append(result, *info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iterator error: %w", postgres.MapError(err))
	}

	return result, nil
}

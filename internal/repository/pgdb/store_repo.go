package pgdb

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jimlawless/whereami"
	"github.com/voyager-tech/go-backend/internal/domain"
	"github.com/voyager-tech/go-backend/internal/repository/pgdb/converter"
	"github.com/voyager-tech/go-backend/pkg/e"
	"github.com/voyager-tech/go-backend/pkg/postgres"
)

// StoreRepo реализует репозиторий магазинов поверх PostgreSQL.
type StoreRepo struct {
	db   postgres.DB
	conv converter.StoreConverter
}

func NewStoreRepo(db postgres.DB, conv converter.StoreConverter) *StoreRepo {
	return &StoreRepo{db: db, conv: conv}
}

// Resolve атомарно находит магазин по имени или создаёт его.
// DO UPDATE вместо DO NOTHING: RETURNING отдаёт строку и при конфликте, в том числе
// когда её только что вставила параллельная транзакция.
func (s *StoreRepo) Resolve(ctx context.Context, store *domain.Store) (*domain.Store, error) {
	model := s.conv.ToModel(store)

	// VALUES ($1, $2, $3) name, url, currency
	query := `
		INSERT INTO stores (name, url, currency)
		VALUES ($1, $2, $3)
		ON CONFLICT (name)
		DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, url, currency, created_at;
	`

	var res converter.StoreModel
	err := conn(ctx, s.db).QueryRow(ctx, query, model.Name, model.URL, model.Currency).
		Scan(&res.ID, &res.Name, &res.URL, &res.Currency, &res.CreatedAt)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), postgres.MapError(err))
	}

	return s.conv.ToEntity(&res), nil
}

// GetByID возвращает магазин; found == false, если его нет.
func (s *StoreRepo) GetByID(ctx context.Context, id int64) (*domain.Store, bool, error) {
	query := `SELECT id, name, url, currency, created_at FROM stores WHERE id = $1`

	var model converter.StoreModel
	err := conn(ctx, s.db).QueryRow(ctx, query, id).
		Scan(&model.ID, &model.Name, &model.URL, &model.Currency, &model.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, e.Wrap(whereami.WhereAmI(), postgres.MapError(err))
	}

	return s.conv.ToEntity(&model), true, nil
}

// List возвращает все магазины, отсортированные по имени.
func (s *StoreRepo) List(ctx context.Context) ([]domain.Store, error) {
	query := `SELECT id, name, url, currency, created_at FROM stores ORDER BY name`

	rows, err := conn(ctx, s.db).Query(ctx, query)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), postgres.MapError(err))
	}
	defer rows.Close()

	result := make([]domain.Store, 0)
	for rows.Next() {
		var model converter.StoreModel
		if err := rows.Scan(&model.ID, &model.Name, &model.URL, &model.Currency, &model.CreatedAt); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		result = append(result, *s.conv.ToEntity(&model))
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), postgres.MapError(err))
	}

	return result, nil
}

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

// CategoryRepo реализует репозиторий категорий поверх PostgreSQL.
// Таксономия засеяна миграцией и только читается.
type CategoryRepo struct {
	db   postgres.DB
	conv converter.CategoryConverter
}

func NewCategoryRepo(db postgres.DB, conv converter.CategoryConverter) *CategoryRepo {
	return &CategoryRepo{db: db, conv: conv}
}

// GetBySlug возвращает категорию по slug; found == false, если её нет.
func (c *CategoryRepo) GetBySlug(ctx context.Context, slug string) (*domain.Category, bool, error) {
	query := `
		SELECT id, name, slug, description, created_at
		FROM categories
		WHERE slug = $1;
	`

	var model converter.CategoryModel
	err := conn(ctx, c.db).QueryRow(ctx, query, slug).
		Scan(&model.ID, &model.Name, &model.Slug, &model.Description, &model.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, e.Wrap(whereami.WhereAmI(), postgres.MapError(err))
	}

	return c.conv.ToEntity(&model), true, nil
}

package pgdb

import (
	"context"

	"github.com/jimlawless/whereami"
	"github.com/voyager-tech/go-backend/internal/usecase"
	"github.com/voyager-tech/go-backend/pkg/e"
	"github.com/voyager-tech/go-backend/pkg/postgres"
)

type StatsRepo struct {
	db postgres.DB
}

func NewStatsRepo(db postgres.DB) *StatsRepo {
	return &StatsRepo{db: db}
}

// Counts считает магазины, товары и наблюдения цены одним запросом.
func (s *StatsRepo) Counts(ctx context.Context) (*usecase.Stats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM stores),
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM prices);
	`

	var stats usecase.Stats
	if err := conn(ctx, s.db).QueryRow(ctx, query).Scan(&stats.Stores, &stats.Products, &stats.Prices); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), postgres.MapError(err))
	}

	return &stats, nil
}

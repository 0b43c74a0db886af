package redis

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyager-tech/go-backend/internal/cfg"
	"github.com/voyager-tech/go-backend/internal/repository/redis/converter"
	"github.com/voyager-tech/go-backend/internal/usecase"
	"github.com/voyager-tech/go-backend/pkg/clients"
	"github.com/voyager-tech/go-backend/pkg/logger"
)

// unreachableRepo указывает на закрытый порт: каждая команда падает с ошибкой соединения.
func unreachableRepo() *CacheRepo {
	c := &cfg.RedisCfg{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
		Timeout:     200 * time.Millisecond,
		ProductTTL:  time.Minute,
	}

	return NewCacheRepo(clients.NewRedisClient(c), converter.ProductInfoConv{}, c, logger.NewNop())
}

func TestCacheRepo_GetProductReportsConnectionError(t *testing.T) {
	repo := unreachableRepo()
	defer repo.client.Close()

	_, _, found, err := repo.GetProduct(context.Background(), 1)
	assert.Error(t, err)
	assert.False(t, found)
}

func TestCacheRepo_WritesNeverFail(t *testing.T) {
	repo := unreachableRepo()
	defer repo.client.Close()
	ctx := context.Background()

	assert.NoError(t, repo.SetProduct(ctx, usecase.ProductInfo{ID: 1, Name: "RAM 8GB"}, 0))
	assert.NoError(t, repo.DeleteProducts(ctx, []int64{1, 2}))
	assert.NoError(t, repo.DeleteProducts(ctx, nil))
}

func TestCacheRepo_ProductKey(t *testing.T) {
	repo := unreachableRepo()
	defer repo.client.Close()

	assert.Equal(t, "product:{42}", repo.productKey(42))
	assert.Equal(t, "product:{42}:gen", repo.generationKey(42))
}

func TestParseGeneration(t *testing.T) {
	gen, err := parseGeneration(nil)
	require.NoError(t, err)
	assert.Zero(t, gen)

	gen, err = parseGeneration("7")
	require.NoError(t, err)
	assert.Equal(t, int64(7), gen)

	_, err = parseGeneration(int64(7))
	assert.Error(t, err)

	_, err = parseGeneration("seven")
	assert.Error(t, err)
}

func TestProductInfoConv_KeepsPriceExact(t *testing.T) {
	conv := converter.ProductInfoConv{}
	scraped := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	model := conv.ToRedisModel(&usecase.ProductInfo{
		ID:   7,
		Name: "RAM 8GB",
		Price: &usecase.LatestPrice{
			Amount:    decimal.RequireFromString("1999.9"),
			Currency:  "MKD",
			ScrapedAt: scraped,
		},
	})
	assert.Equal(t, "1999.90", model.Price.Amount)

	info, err := conv.ToUseCase(model)
	require.NoError(t, err)
	assert.True(t, info.Price.Amount.Equal(decimal.RequireFromString("1999.90")))
	assert.Equal(t, scraped, info.Price.ScrapedAt)

	model.Price.Amount = "not-a-number"
	_, err = conv.ToUseCase(model)
	assert.Error(t, err)
}

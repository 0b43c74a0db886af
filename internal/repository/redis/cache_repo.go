package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
	"github.com/voyager-tech/go-backend/internal/cfg"
	"github.com/voyager-tech/go-backend/internal/repository/redis/converter"
	"github.com/voyager-tech/go-backend/internal/usecase"
	"github.com/voyager-tech/go-backend/pkg/clients"
	"github.com/voyager-tech/go-backend/pkg/e"
	"github.com/voyager-tech/go-backend/pkg/logger"
)

// CacheRepo — read-through кэш карточек товаров. Источник истины — PostgreSQL,
// поэтому ошибки записи и удаления только логируются.
type CacheRepo struct {
	client *clients.RedisClient
	conv   converter.ProductInfoConverter
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewCacheRepo(client *clients.RedisClient, conv converter.ProductInfoConverter,
	cfg *cfg.RedisCfg, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		client: client,
		conv:   conv,
		cfg:    cfg,
		logger: logger,
	}
}

// generationTTL — время жизни счётчика поколения; заведомо больше любого чтения из БД
const generationTTL = 24 * time.Hour

// setIfGeneration пишет карточку, только если поколение не менялось с момента чтения.
// Отсутствующий счётчик равен поколению 0.
var setIfGeneration = r.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// GetProduct возвращает закэшированную карточку и текущее поколение ключа; found == false при промахе.
// Битая запись удаляется и считается промахом.
func (c *CacheRepo) GetProduct(ctx context.Context, id int64) (*usecase.ProductInfo, int64, bool, error) {
	key := c.productKey(id)

	vals, err := c.client.Client.MGet(ctx, key, c.generationKey(id)).Result()
	if err != nil {
		return nil, 0, false, e.Wrap(whereami.WhereAmI(), err)
	}

	generation, err := parseGeneration(vals[1])
	if err != nil {
		return nil, 0, false, e.Wrap(whereami.WhereAmI(), err)
	}

	data, ok := vals[0].(string)
	if !ok {
		return nil, generation, false, nil
	}

	var model converter.ProductInfoRedisModel
	if err := json.Unmarshal([]byte(data), &model); err != nil {
		c.logger.Warnf("Redis unmarshal failed: %v", e.Wrap(whereami.WhereAmI(), err))
		c.drop(ctx, key)
		return nil, generation, false, nil
	}

	if model.ID != id {
		c.logger.Warnf("Cache ID mismatch: key_id: %d, model_id: %d", id, model.ID)
		c.drop(ctx, key)
		return nil, generation, false, nil
	}

	info, err := c.conv.ToUseCase(&model)
	if err != nil {
		c.logger.Warnf("%v", e.Wrap(whereami.WhereAmI(), err))
		c.drop(ctx, key)
		return nil, generation, false, nil
	}

	return info, generation, true, nil
}

// SetProduct кэширует карточку с TTL из конфигурации, если с момента GetProduct
// товар не инвалидировали.
func (c *CacheRepo) SetProduct(ctx context.Context, product usecase.ProductInfo, generation int64) error {
	data, err := json.Marshal(c.conv.ToRedisModel(&product))
	if err != nil {
		c.logger.Warnf("Failed to marshal product for caching (Product ID: %d): %v", product.ID, e.Wrap(whereami.WhereAmI(), err))
		return nil
	}

	keys := []string{c.productKey(product.ID), c.generationKey(product.ID)}
	written, err := setIfGeneration.Run(ctx, c.client.Client, keys,
		strconv.FormatInt(generation, 10), data, c.cfg.ProductTTL.Milliseconds()).Int()
	if err != nil {
		c.logger.Warnf("Redis SET failed: %v", e.Wrap(whereami.WhereAmI(), err))
		return nil
	}
	if written == 0 {
		c.logger.Debugf("Product %d was invalidated during read, cache fill skipped", product.ID)
	}

	return nil
}

// DeleteProducts удаляет карточки из кэша и сдвигает их поколение
func (c *CacheRepo) DeleteProducts(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := c.client.Client.TxPipelined(ctx, func(pipe r.Pipeliner) error {
		for _, id := range ids {
			gen := c.generationKey(id)
			pipe.Incr(ctx, gen)
			pipe.Expire(ctx, gen, generationTTL)
			pipe.Del(ctx, c.productKey(id))
		}
		return nil
	})
	if err != nil {
		c.logger.Warnf("Redis invalidation failed: %v", e.Wrap(whereami.WhereAmI(), err))
	}

	return nil
}

func (c *CacheRepo) drop(ctx context.Context, key string) {
	if err := c.client.Client.Del(ctx, key).Err(); err != nil {
		c.logger.Warnf("Redis del failed: %v", e.Wrap(whereami.WhereAmI(), err))
	}
}

// productKey возвращает Redis-ключ для одного товара. Хэш-тег держит карточку
// и её поколение в одном слоте кластера.
func (c *CacheRepo) productKey(id int64) string {
	return fmt.Sprintf("product:{%d}", id)
}

func (c *CacheRepo) generationKey(id int64) string {
	return fmt.Sprintf("product:{%d}:gen", id)
}

func parseGeneration(v any) (int64, error) {
	if v == nil {
		return 0, nil
	}

	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected generation value %T", v)
	}

	return strconv.ParseInt(s, 10, 64)
}

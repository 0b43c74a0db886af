package usecase

import (
	"context"
	"time"

	"github.com/voyager-tech/go-backend/internal/domain"
)

// Запись выполняется в транзакции из контекста, если она там есть, иначе напрямую через пул.

type StoreRepository interface {
	// Resolve атомарно находит магазин по имени или создаёт его.
	Resolve(ctx context.Context, store *domain.Store) (*domain.Store, error)
	GetByID(ctx context.Context, id int64) (*domain.Store, bool, error)
	List(ctx context.Context) ([]domain.Store, error)
}

type CategoryRepository interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Category, bool, error)
}

type ProductRepository interface {
	// Upsert атомарно вставляет товар по ключу (store_id, url) или обновляет изменяемые поля.
	Upsert(ctx context.Context, product *domain.Product) (*UpsertProductRes, error)
	GetInfo(ctx context.Context, id int64, includeDeleted bool) (*ProductInfo, bool, error)
	Recent(ctx context.Context, limit int, includeDeleted bool) ([]ProductInfo, error)
	Search(ctx context.Context, normalized string, limit int, includeDeleted bool) ([]ProductInfo, error)
	// MarkMissing мягко удаляет товары магазина, не встреченные в скрапинге начиная с before.
	MarkMissing(ctx context.Context, storeID int64, categoryID *int64, before time.Time) ([]int64, error)
}

type PriceRepository interface {
	Append(ctx context.Context, price *domain.Price) (*domain.Price, error)
	Latest(ctx context.Context, productID int64) (*domain.Price, bool, error)
	History(ctx context.Context, productID int64, limit int) ([]domain.Price, error)
}

type StatsRepository interface {
	Counts(ctx context.Context) (*Stats, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
	// Release возвращает событие в очередь после неудачной публикации.
	Release(ctx context.Context, id int64) error
	// ReleaseStale возвращает в очередь события, застрявшие в processing дольше olderThan.
	ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// CacheRepository хранит карточки товаров вместе с поколением ключа.
// DeleteProducts увеличивает поколение, а SetProduct пишет карточку, только если поколение
// не изменилось с момента GetProduct: прочитанная до коммита карточка не вернётся в кэш.
type CacheRepository interface {
	GetProduct(ctx context.Context, id int64) (product *ProductInfo, generation int64, found bool, err error)
	SetProduct(ctx context.Context, product ProductInfo, generation int64) error
	DeleteProducts(ctx context.Context, ids []int64) error
}

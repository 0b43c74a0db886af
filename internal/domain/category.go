package domain

import "time"

// Category описывает узел фиксированной таксономии товаров
type Category struct {
	ID          int64
	Name        string
	Slug        string
	Description string
	CreatedAt   time.Time
}

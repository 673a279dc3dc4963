package media

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("media item not found")

type Repository interface {
	Get(ctx context.Context, id int64) (*Item, error)
	GetMany(ctx context.Context, ids []int64) (map[int64]*Item, error)
}

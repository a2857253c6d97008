package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ds124wfegd/WB_L3/avatar/internal/entity"
	"github.com/redis/go-redis/v9"
)

const (
	currentKeyPrefix = "avatar:current:"
	currentNamesKey  = "avatar:current-names"
	supersededKey    = "avatar:superseded"
)

// replaceScript swaps the owner's record and moves the previous name from the
// current set into the superseded set in one step.
var replaceScript = redis.NewScript(`
local prev = redis.call('GETSET', KEYS[1], ARGV[1])
redis.call('SADD', KEYS[3], ARGV[3])
if prev then
	local name = cjson.decode(prev)['name']
	if name and name ~= ARGV[3] then
		redis.call('ZADD', KEYS[2], ARGV[2], name)
		redis.call('SREM', KEYS[3], name)
	end
end
return prev
`)

type redisImageRepository struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisImageRepository(client *redis.Client) ImageRepository {
	return newRedisImageRepository(client, time.Now)
}

func newRedisImageRepository(client *redis.Client, now func() time.Time) *redisImageRepository {
	return &redisImageRepository{client: client, now: now}
}

func (r *redisImageRepository) Current(ctx context.Context, owner string) (*entity.StoredImage, error) {
	data, err := r.client.Get(ctx, currentKeyPrefix+owner).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var image entity.StoredImage
	if err := json.Unmarshal(data, &image); err != nil {
		return nil, fmt.Errorf("decode current image: %w", err)
	}
	return &image, nil
}

func (r *redisImageRepository) Replace(ctx context.Context, image *entity.StoredImage) (*entity.StoredImage, error) {
	data, err := json.Marshal(image)
	if err != nil {
		return nil, err
	}

	keys := []string{currentKeyPrefix + image.Owner, supersededKey, currentNamesKey}
	prev, err := replaceScript.Run(ctx, r.client, keys, data, r.now().UnixMilli(), image.Name).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var previous entity.StoredImage
	if err := json.Unmarshal([]byte(prev), &previous); err != nil {
		return nil, fmt.Errorf("decode previous image: %w", err)
	}
	return &previous, nil
}

func (r *redisImageRepository) Superseded(ctx context.Context, before time.Time) ([]string, error) {
	return r.client.ZRangeByScore(ctx, supersededKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(before.UnixMilli(), 10),
	}).Result()
}

func (r *redisImageRepository) Forget(ctx context.Context, name string) error {
	return r.client.ZRem(ctx, supersededKey, name).Err()
}

func (r *redisImageRepository) IsCurrent(ctx context.Context, name string) (bool, error) {
	return r.client.SIsMember(ctx, currentNamesKey, name).Result()
}

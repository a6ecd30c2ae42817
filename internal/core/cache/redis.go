package cache

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const defaultPrefix = "skillswap:"

// Cache 读穿缓存；nil 或未配置 Redis 时所有方法直接回源
type Cache struct {
	RDB    *redis.Client
	Prefix string
	sf     singleflight.Group
}

func New(addr, pass string, db int) *Cache {
	return &Cache{
		RDB:    redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}),
		Prefix: defaultPrefix,
	}
}

// Connect addr 为空返回 nil；连不上也返回 nil，调用方降级为无缓存
func Connect(ctx context.Context, addr, pass string, db int) (*Cache, error) {
	if addr == "" {
		return nil, nil
	}
	c := New(addr, pass, db)
	if err := c.RDB.Ping(ctx).Err(); err != nil {
		_ = c.RDB.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) enabled() bool { return c != nil && c.RDB != nil }

func (c *Cache) key(k string) string { return c.Prefix + k }

// genTTL 代号 key 的保留时间，远大于任何一次回源耗时
const genTTL = 24 * time.Hour

// setIfGen 代号没变才回写：回源期间发生过 Del 就丢弃这次结果
var setIfGen = redis.NewScript(`
local g = redis.call('GET', KEYS[2])
if (g or '') == ARGV[1] then
  if ARGV[3] == '0' then
    redis.call('SET', KEYS[1], ARGV[2])
  else
    redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
  end
  return 1
end
return 0
`)

func (c *Cache) genKey(k string) string { return k + ":gen" }

// GetOrLoad 未命中时合并并发回源；Redis 读失败按未命中处理且不回写
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	if !c.enabled() {
		return load(ctx)
	}
	k := c.key(key)
	b, err := c.RDB.Get(ctx, k).Bytes()
	if err == nil {
		return b, nil
	}
	writeBack := errors.Is(err, redis.Nil)

	v, err, _ := c.sf.Do(k, func() (any, error) {
		// 先记代号再回源
		gen, gerr := c.RDB.Get(ctx, c.genKey(k)).Result()
		store := writeBack && (gerr == nil || errors.Is(gerr, redis.Nil))
		b, e := load(ctx)
		if e != nil {
			return nil, e
		}
		if store {
			_ = setIfGen.Run(ctx, c.RDB, []string{k, c.genKey(k)}, gen, b, jitter(ttl).Milliseconds()).Err()
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Del 失效：删值并推进代号，进行中的回源不会再写回旧值；缓存不可用时忽略
func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if !c.enabled() || len(keys) == 0 {
		return nil
	}
	pipe := c.RDB.TxPipeline()
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
		pipe.Incr(ctx, c.genKey(full[i]))
		pipe.Expire(ctx, c.genKey(full[i]), genTTL)
		c.sf.Forget(full[i])
	}
	pipe.Del(ctx, full...)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *Cache) Close() error {
	if !c.enabled() {
		return nil
	}
	return c.RDB.Close()
}

// jitter 在 ttl 上随机加至多 10%，错开同一批 key 的过期时间
func jitter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	spread := int64(ttl / 10)
	if spread <= 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Int64N(spread+1))
}

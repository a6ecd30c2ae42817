// Package service 业务层：技能目录、交换状态机、评分/徽章聚合、通知。
// 所有写操作在 repo.Store 事务里完成；带 tx 参数的方法在调用方事务内执行，tx 为 nil 时用自己的连接。
package service

import (
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"skillswap/internal/core/cache"
	"skillswap/internal/core/storage"
	"skillswap/internal/repo"
)

type Options struct {
	Log            *zap.Logger
	Cache          *cache.Cache     // nil 表示不缓存
	Storage        *storage.Storage // nil 表示关闭头像上传
	Now            func() time.Time
	ProfileTTL     time.Duration
	MaxAvatarBytes int64
}

type Services struct {
	Store         *repo.Store
	Notifications *NotificationSink
	Catalog       *SkillCatalog
	Aggregator    *Aggregator
	Swaps         *SwapService
	Users         *UserService
	Admin         *AdminService
}

func New(store *repo.Store, o Options) *Services {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	if o.ProfileTTL <= 0 {
		o.ProfileTTL = time.Minute
	}
	if o.MaxAvatarBytes <= 0 {
		o.MaxAvatarBytes = 2 << 20
	}
	b := base{store: store, log: o.Log, now: o.Now}

	notes := &NotificationSink{base: b.named("notify")}
	catalog := &SkillCatalog{base: b.named("catalog")}
	agg := &Aggregator{base: b.named("aggregator"), notes: notes, cache: o.Cache}
	return &Services{
		Store:         store,
		Notifications: notes,
		Catalog:       catalog,
		Aggregator:    agg,
		Swaps:         &SwapService{base: b.named("swap"), catalog: catalog, notes: notes, agg: agg},
		Users: &UserService{
			base: b.named("user"), catalog: catalog, agg: agg,
			cache: o.Cache, storage: o.Storage, profileTTL: o.ProfileTTL, maxAvatar: o.MaxAvatarBytes,
		},
		Admin: &AdminService{base: b.named("admin"), notes: notes, agg: agg},
	}
}

type base struct {
	store *repo.Store
	log   *zap.Logger
	now   func() time.Time
}

func (b base) named(n string) base {
	b.log = b.log.Named(n)
	return b
}

// in 有外层事务用外层的
func (b base) in(tx *repo.Store) *repo.Store {
	if tx != nil {
		return tx
	}
	return b.store
}

func tooLong(s string, n int) bool { return utf8.RuneCountInString(s) > n }

// clip 按字符截断
func clip(s string, n int) string {
	if !tooLong(s, n) {
		return s
	}
	return string([]rune(s)[:n])
}

package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"skillswap/internal/core/cache"
	"skillswap/internal/core/storage"
	"skillswap/internal/domain"
	"skillswap/internal/repo"
	"skillswap/pkg/utils"
)

type UserService struct {
	base
	catalog    *SkillCatalog
	agg        *Aggregator
	cache      *cache.Cache
	storage    *storage.Storage
	profileTTL time.Duration
	maxAvatar  int64
}

// RegisterInput 密码上限 72 是 bcrypt 的输入上限
type RegisterInput struct {
	Email         string `validate:"required,email,max=254"`
	Username      string `validate:"required,min=3,max=64,handle"`
	Password      string `validate:"required,min=8,max=72"`
	FirstName     string `validate:"max=30"`
	LastName      string `validate:"max=30"`
	OfferedSkills []string
	WantedSkills  []string
}

// Register 建号、登记初始技能、授予 New Member
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	in.FirstName, in.LastName = strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if err := check(in); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &domain.User{
		ID:           utils.NewID(),
		Email:        in.Email,
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Availability: domain.AvailabilityAvailable,
		IsPublic:     true,
		IsActive:     true,
	}
	err = s.store.Transaction(ctx, func(tx *repo.Store) error {
		if err := tx.Users.Create(ctx, u); err != nil {
			return err
		}
		if err := s.addSkills(ctx, tx, u.ID, domain.SkillOffered, in.OfferedSkills); err != nil {
			return err
		}
		if err := s.addSkills(ctx, tx, u.ID, domain.SkillWanted, in.WantedSkills); err != nil {
			return err
		}
		_, _, err := s.agg.AwardBadge(ctx, tx, u.ID, domain.BadgeNewMember)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.String("id", u.ID), zap.String("username", u.Username))
	return u, nil
}

func (s *UserService) addSkills(ctx context.Context, tx *repo.Store, userID string, t domain.SkillType, names []string) error {
	seen := map[string]bool{}
	for _, name := range names {
		sk, err := s.catalog.Resolve(ctx, tx, name)
		if err != nil {
			return err
		}
		if seen[sk.ID] {
			continue
		}
		seen[sk.ID] = true
		if err := tx.UserSkills.Create(ctx, &domain.UserSkill{
			ID:        utils.NewID(),
			UserID:    userID,
			SkillID:   sk.ID,
			SkillType: t,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Login 邮箱或用户名均可
func (s *UserService) Login(ctx context.Context, login, password string) (*domain.User, error) {
	login = strings.TrimSpace(login)
	var (
		u   *domain.User
		err error
	)
	if strings.Contains(login, "@") {
		u, err = s.store.Users.FindByEmail(ctx, login)
	} else {
		u, err = s.store.Users.FindByUsername(ctx, login)
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil || !utils.CheckPassword(password, u.PasswordHash) {
		return nil, domain.Errorf(domain.KindUnauthorized, "invalid credentials")
	}
	if !u.IsActive {
		return nil, domain.Errorf(domain.KindForbidden, "account is disabled")
	}
	now := s.now()
	if err := s.store.Users.Touch(ctx, u.ID, now); err != nil {
		s.log.Warn("touch last_active_at", zap.String("id", u.ID), zap.Error(err))
	}
	u.LastActiveAt = &now
	return u, nil
}

func (s *UserService) Me(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.Errorf(domain.KindUserNotFound, "user not found")
	}
	return u, nil
}

// Refresh 换发 token 前重新核对账号；角色和用户名以库里为准
func (s *UserService) Refresh(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, domain.Errorf(domain.KindUnauthorized, "account no longer exists")
	}
	if !u.IsActive {
		return nil, domain.Errorf(domain.KindForbidden, "account is disabled")
	}
	now := s.now()
	if err := s.store.Users.Touch(ctx, u.ID, now); err != nil {
		s.log.Warn("touch last_active_at", zap.String("id", u.ID), zap.Error(err))
	}
	u.LastActiveAt = &now
	return u, nil
}

// ProfileInput nil 字段不修改
type ProfileInput struct {
	FirstName    *string `validate:"omitempty,max=30"`
	LastName     *string `validate:"omitempty,max=30"`
	Bio          *string `validate:"omitempty,max=500"`
	Location     *string `validate:"omitempty,max=100"`
	Availability *string `validate:"omitempty,oneof=available busy"`
	IsPublic     *bool
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*domain.User, error) {
	fields := map[string]any{}
	for col, p := range map[string]**string{"first_name": &in.FirstName, "last_name": &in.LastName, "bio": &in.Bio, "location": &in.Location} {
		if *p == nil {
			continue
		}
		v := strings.TrimSpace(**p)
		*p = &v
		fields[col] = v
	}
	if err := check(in); err != nil {
		return nil, err
	}
	if in.Availability != nil {
		fields["availability"] = *in.Availability
	}
	if in.IsPublic != nil {
		fields["is_public"] = *in.IsPublic
	}
	if _, err := s.Me(ctx, id); err != nil {
		return nil, err
	}
	if err := s.store.Users.UpdateProfile(ctx, id, fields); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	s.agg.Invalidate(ctx, id)
	return s.Me(ctx, id)
}

type SkillRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Proficiency string `json:"proficiency,omitempty"`
}

type BadgeRef struct {
	Name     string    `json:"name"`
	Icon     string    `json:"icon"`
	EarnedAt time.Time `json:"earnedAt"`
}

// PublicProfile 对外资料，按用户缓存
type PublicProfile struct {
	ID                  string     `json:"id"`
	Username            string     `json:"username"`
	Name                string     `json:"name"`
	Bio                 string     `json:"bio"`
	Location            string     `json:"location"`
	Availability        string     `json:"availability"`
	HasAvatar           bool       `json:"hasAvatar"`
	Rating              float64    `json:"rating"`
	TotalRatings        int        `json:"totalRatings"`
	TotalCompletedSwaps int        `json:"totalCompletedSwaps"`
	Offered             []SkillRef `json:"offeredSkills"`
	Wanted              []SkillRef `json:"wantedSkills"`
	Badges              []BadgeRef `json:"badges"`
	MemberSince         time.Time  `json:"memberSince"`
}

// cachedProfile 可见性不对外输出，缓存里单独带上
type cachedProfile struct {
	PublicProfile
	Visible bool `json:"visible"`
}

func (s *UserService) PublicProfile(ctx context.Context, callerID, id string) (*PublicProfile, error) {
	cp, err := cache.GetOrLoadJSON(s.cache, ctx, ProfileCacheKey(id), s.profileTTL, func(ctx context.Context) (*cachedProfile, error) {
		return s.loadProfile(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if cp == nil || (!cp.Visible && callerID != id) {
		return nil, domain.Errorf(domain.KindUserNotFound, "user not found")
	}
	p := cp.PublicProfile
	return &p, nil
}

func (s *UserService) loadProfile(ctx context.Context, id string) (*cachedProfile, error) {
	u, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.IsActive {
		return nil, domain.Errorf(domain.KindUserNotFound, "user not found")
	}
	skills, err := s.store.UserSkills.ListByUser(ctx, id, "")
	if err != nil {
		return nil, err
	}
	badges, err := s.store.Badges.ListForUser(ctx, id)
	if err != nil {
		return nil, err
	}
	p := &cachedProfile{
		PublicProfile: PublicProfile{
			ID:                  u.ID,
			Username:            u.Username,
			Name:                u.FullName(),
			Bio:                 u.Bio,
			Location:            u.Location,
			Availability:        u.Availability,
			HasAvatar:           u.AvatarKey != "",
			Rating:              u.Rating,
			TotalRatings:        u.TotalRatings,
			TotalCompletedSwaps: u.TotalCompletedSwaps,
			Offered:             []SkillRef{},
			Wanted:              []SkillRef{},
			Badges:              []BadgeRef{},
			MemberSince:         u.CreatedAt,
		},
		Visible: u.IsPublic,
	}
	for _, us := range skills {
		if us.Skill == nil {
			continue
		}
		ref := SkillRef{ID: us.Skill.ID, Name: us.Skill.Name, Category: us.Skill.Category, Proficiency: us.Proficiency}
		if us.SkillType == domain.SkillOffered {
			p.Offered = append(p.Offered, ref)
		} else {
			p.Wanted = append(p.Wanted, ref)
		}
	}
	for _, ub := range badges {
		if ub.Badge != nil {
			p.Badges = append(p.Badges, BadgeRef{Name: ub.Badge.Name, Icon: ub.Badge.Icon, EarnedAt: ub.EarnedAt})
		}
	}
	return p, nil
}

type DiscoverInput struct {
	Q            string
	Skill        string
	Availability string
	repo.Page
}

// Discover 公开且未封禁的其他用户
func (s *UserService) Discover(ctx context.Context, callerID string, in DiscoverInput) ([]domain.User, int64, error) {
	f := repo.UserFilter{
		Q:          in.Q,
		PublicOnly: true,
		ActiveOnly: true,
		ExcludeID:  callerID,
		Page:       in.Page,
	}
	if strings.TrimSpace(in.Skill) != "" {
		_, key, err := domain.NormalizeSkillName(in.Skill)
		if err != nil {
			return nil, 0, err
		}
		f.Skill = key
	}
	if in.Availability != "" {
		if !domain.ValidAvailability(in.Availability) {
			return nil, 0, domain.Errorf(domain.KindValidation, "availability must be available or busy")
		}
		f.Availability = in.Availability
	}
	return s.store.Users.List(ctx, f)
}

func (s *UserService) Badges(ctx context.Context, userID string) ([]domain.UserBadge, error) {
	return s.store.Badges.ListForUser(ctx, userID)
}

func (s *UserService) BadgeCatalog(ctx context.Context) ([]domain.Badge, error) {
	return s.store.Badges.ListAll(ctx)
}

func (s *UserService) Skills(ctx context.Context, userID string, t domain.SkillType) ([]domain.UserSkill, error) {
	if t != "" && !t.Valid() {
		return nil, domain.Errorf(domain.KindValidation, "skill type must be offered or wanted")
	}
	return s.store.UserSkills.ListByUser(ctx, userID, t)
}

// UploadAvatar 写对象存储后替换 avatar_key，旧对象尽力删除
func (s *UserService) UploadAvatar(ctx context.Context, userID, filename, contentType string, size int64, r io.Reader) (*domain.User, error) {
	if !s.storage.Enabled() {
		return nil, domain.Errorf(domain.KindValidation, "avatar upload is not configured")
	}
	if size <= 0 || size > s.maxAvatar {
		return nil, domain.Errorf(domain.KindValidation, "avatar must be between 1 byte and %d KB", s.maxAvatar>>10)
	}
	ext := strings.ToLower(path.Ext(filename))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mime.TypeByExtension(ext)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, domain.Errorf(domain.KindValidation, "avatar must be an image")
	}
	u, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	key := path.Join("avatars", userID, utils.NewID()+ext)
	if err := s.storage.Put(ctx, key, r, size, contentType); err != nil {
		return nil, fmt.Errorf("store avatar: %w", err)
	}
	if err := s.store.Users.UpdateProfile(ctx, userID, map[string]any{"avatar_key": key}); err != nil {
		_ = s.storage.Delete(ctx, key)
		return nil, fmt.Errorf("save avatar key: %w", err)
	}
	if old := u.AvatarKey; old != "" {
		if err := s.storage.Delete(ctx, old); err != nil {
			s.log.Warn("delete old avatar", zap.String("key", old), zap.Error(err))
		}
	}
	s.agg.Invalidate(ctx, userID)
	u.AvatarKey = key
	return u, nil
}

// OpenAvatar 调用方负责 Close
func (s *UserService) OpenAvatar(ctx context.Context, userID string) (io.ReadCloser, string, error) {
	if !s.storage.Enabled() {
		return nil, "", domain.Errorf(domain.KindNotFound, "avatar not found")
	}
	u, err := s.Me(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if u.AvatarKey == "" || !u.IsActive {
		return nil, "", domain.Errorf(domain.KindNotFound, "avatar not found")
	}
	rc, err := s.storage.Get(ctx, u.AvatarKey)
	if err != nil {
		return nil, "", fmt.Errorf("open avatar: %w", err)
	}
	ct := mime.TypeByExtension(path.Ext(u.AvatarKey))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return rc, ct, nil
}

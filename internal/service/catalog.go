package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"skillswap/internal/domain"
	"skillswap/internal/repo"
	"skillswap/pkg/utils"
)

// SkillCatalog 技能名 -> 规范记录，按名称取或建
type SkillCatalog struct {
	base
}

func (c *SkillCatalog) Resolve(ctx context.Context, tx *repo.Store, name string) (*domain.Skill, error) {
	return c.ResolveCategory(ctx, tx, name, "")
}

// ResolveCategory category 只在新建时生效；已有技能保持原样
func (c *SkillCatalog) ResolveCategory(ctx context.Context, tx *repo.Store, name, category string) (*domain.Skill, error) {
	display, key, err := domain.NormalizeSkillName(name)
	if err != nil {
		return nil, err
	}
	st := c.in(tx)
	if s, err := st.Skills.FindByKey(ctx, key); err != nil {
		return nil, fmt.Errorf("lookup skill: %w", err)
	} else if s != nil {
		return s, nil
	}

	category = strings.ToLower(strings.TrimSpace(category))
	if !domain.ValidCategory(category) {
		category = domain.CategoryOther
	}
	s, err := st.Skills.Upsert(ctx, &domain.Skill{
		ID:       utils.NewID(),
		Name:     display,
		NameKey:  key,
		Category: category,
	})
	if err != nil {
		return nil, fmt.Errorf("create skill %q: %w", display, err)
	}
	c.log.Debug("skill resolved", zap.String("name", s.Name), zap.String("id", s.ID))
	return s, nil
}

func (c *SkillCatalog) List(ctx context.Context, q, category string, p repo.Page) ([]domain.Skill, int64, error) {
	if category != "" && !domain.ValidCategory(category) {
		return nil, 0, domain.Errorf(domain.KindValidation, "unknown category %q", category)
	}
	return c.store.Skills.List(ctx, repo.SkillFilter{Q: q, Category: category, Page: p})
}

func (c *SkillCatalog) Popular(ctx context.Context, limit int) ([]repo.SkillUsage, error) {
	return c.store.Skills.Popular(ctx, limit)
}

func (c *SkillCatalog) Categories() []string {
	return append([]string(nil), domain.SkillCategories...)
}

// Delete 仅允许删除未被引用的技能
func (c *SkillCatalog) Delete(ctx context.Context, id string) error {
	return c.store.Transaction(ctx, func(tx *repo.Store) error {
		s, err := tx.Skills.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if s == nil {
			return domain.Errorf(domain.KindNotFound, "skill not found")
		}
		n, err := tx.Skills.CountUsage(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.Errorf(domain.KindConflict, "skill %q is still referenced %d times", s.Name, n)
		}
		if _, err := tx.Skills.Delete(ctx, id); err != nil {
			return err
		}
		c.log.Info("skill deleted", zap.String("id", id), zap.String("name", s.Name))
		return nil
	})
}

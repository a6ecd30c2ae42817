package domain

// Models 需要迁移的全部表
func Models() []any {
	return []any{
		&User{}, &Skill{}, &UserSkill{}, &SwapRequest{},
		&Rating{}, &Badge{}, &UserBadge{}, &Notification{},
	}
}

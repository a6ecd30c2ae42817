package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxSkillNameLen        = 100
	MaxSkillDescriptionLen = 300
)

type SkillType string

const (
	SkillOffered SkillType = "offered"
	SkillWanted  SkillType = "wanted"
)

func (t SkillType) Valid() bool { return t == SkillOffered || t == SkillWanted }

const CategoryOther = "other"

// SkillCategories 固定分类
var SkillCategories = []string{
	"technology", "design", "language", "music", "sports",
	"cooking", "business", "arts", CategoryOther,
}

var Proficiencies = []string{"beginner", "intermediate", "advanced", "expert"}

type Skill struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	NameKey     string    `gorm:"uniqueIndex;size:100;not null" json:"-"`
	Category    string    `gorm:"size:20;not null;default:other" json:"category"`
	Description string    `gorm:"size:300" json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (Skill) TableName() string { return "skills" }

// UserSkill 用户提供/想学的技能；(user, skill, type) 唯一
type UserSkill struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"size:36;not null;uniqueIndex:idx_user_skill_type" json:"userId"`
	SkillID     string    `gorm:"size:36;not null;uniqueIndex:idx_user_skill_type;index" json:"skillId"`
	SkillType   SkillType `gorm:"size:10;not null;uniqueIndex:idx_user_skill_type" json:"skillType"`
	Proficiency string    `gorm:"size:15" json:"proficiency,omitempty"`
	Description string    `gorm:"size:300" json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// 入参：按名称引用技能，由目录解析成 SkillID
	SkillName string `gorm:"-" json:"skillName,omitempty"`
	Skill     *Skill `gorm:"foreignKey:SkillID" json:"skill,omitempty"`
}

func (UserSkill) TableName() string { return "user_skills" }

// NormalizeSkillName 去首尾空白、合并连续空白；返回展示名与唯一键（小写）
func NormalizeSkillName(name string) (display, key string, err error) {
	display = strings.Join(strings.Fields(name), " ")
	if display == "" {
		return "", "", Errorf(KindInvalidSkillName, "skill name is required")
	}
	if utf8.RuneCountInString(display) > MaxSkillNameLen {
		return "", "", Errorf(KindInvalidSkillName, "skill name exceeds %d characters", MaxSkillNameLen)
	}
	return display, strings.ToLower(display), nil
}

func ValidCategory(c string) bool {
	for _, x := range SkillCategories {
		if x == c {
			return true
		}
	}
	return false
}

func ValidProficiency(p string) bool {
	if p == "" {
		return true
	}
	for _, x := range Proficiencies {
		if x == p {
			return true
		}
	}
	return false
}

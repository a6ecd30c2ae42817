package utils

import "github.com/google/uuid"

// NewID 36 位 UUID 字符串，所有实体主键统一用它
func NewID() string { return uuid.NewString() }

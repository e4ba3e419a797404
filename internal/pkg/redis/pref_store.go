package redis

import (
	"Switchboard/internal/pkg/consts"
	"context"
)

// PreferenceStore 以 Redis 键保存界面偏好（例如最后使用的标签页）
type PreferenceStore struct{}

func NewPreferenceStore() *PreferenceStore {
	return &PreferenceStore{}
}

func (s *PreferenceStore) Get(ctx context.Context, key string) (string, error) {
	return GetValue(ctx, consts.PreferenceKey+key)
}

func (s *PreferenceStore) Set(ctx context.Context, key, value string) error {
	return SetValue(ctx, consts.PreferenceKey+key, value)
}

package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pkujx.cn/library/internal/entity"
)

type SettingRepository interface {
	List(ctx context.Context) ([]entity.SiteSetting, error)
	Get(ctx context.Context, key string) (*entity.SiteSetting, error)
	Upsert(ctx context.Context, setting *entity.SiteSetting) error
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, key string) (bool, error)
}

type settingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) List(ctx context.Context) ([]entity.SiteSetting, error) {
	settings := make([]entity.SiteSetting, 0)
	err := r.db.WithContext(ctx).Order("setting_key ASC").Find(&settings).Error
	return settings, err
}

func (r *settingRepository) Get(ctx context.Context, key string) (*entity.SiteSetting, error) {
	var setting entity.SiteSetting
	if err := r.db.WithContext(ctx).Where("setting_key = ?", key).First(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *settingRepository) Upsert(ctx context.Context, setting *entity.SiteSetting) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"setting_value", "description", "last_updated"}),
	}).Create(setting).Error
}

func (r *settingRepository) Delete(ctx context.Context, key string) (bool, error) {
	res := r.db.WithContext(ctx).Where("setting_key = ?", key).Delete(&entity.SiteSetting{})
	return res.RowsAffected > 0, res.Error
}

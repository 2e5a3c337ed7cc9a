package entity

import "time"

const (
	SettingBlogRequiresReview = "blog_requires_review"
	SettingAnnouncement       = "announcement"
	SettingSiteName           = "site_name"
)

type SiteSetting struct {
	SettingKey   string    `gorm:"primaryKey;size:100" json:"setting_key"`
	SettingValue string    `gorm:"type:text;not null" json:"setting_value"`
	Description  string    `gorm:"size:255" json:"description"`
	LastUpdated  time.Time `json:"last_updated"`
}

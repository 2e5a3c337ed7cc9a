package dto

type UpsertSettingInput struct {
	Value       *string `json:"setting_value" binding:"required"`
	Description *string `json:"description" binding:"omitempty,max=255"`
}

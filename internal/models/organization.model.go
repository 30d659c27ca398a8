package models

type Organization struct {
	BaseUUIDModel
	Name string `gorm:"type:varchar(200);not null;uniqueIndex" json:"name"`
}

type AdminUser struct {
	BaseUUIDModel
	Email          string `gorm:"type:varchar(200);not null;uniqueIndex" json:"email"`
	OrganizationID string `gorm:"type:varchar(64);not null;index"        json:"organizationId"`

	Organization *Organization `gorm:"constraint:OnDelete:CASCADE" json:"organization,omitempty"`
}

package deployments

import "time"

// Deployment is one trigger attempt. Key material is never stored.
type Deployment struct {
	ID        string    `gorm:"type:text;primaryKey"`
	Title     string    `gorm:"type:text;not null"`
	ImageURL  string    `gorm:"type:text;not null"`
	Host      string    `gorm:"type:text;not null;index:idx_deployment_host"`
	Port      uint      `gorm:"not null;default:22"`
	Username  string    `gorm:"type:text;not null"`
	Command   string    `gorm:"type:text"`
	Success   bool      `gorm:"not null"`
	Error     string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"type:timestamp;not null;index:idx_deployment_created_at"`
}

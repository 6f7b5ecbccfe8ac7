package deployments

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(deployment *Deployment) error {
	if deployment.ID == "" {
		deployment.ID = uuid.NewString()
	}

	if deployment.CreatedAt.IsZero() {
		deployment.CreatedAt = time.Now()
	}

	return r.db.Create(deployment).Error
}

// List returns the most recent deployments first. A limit <= 0 returns all.
func (r *Repository) List(limit int) ([]*Deployment, error) {
	var deployments []*Deployment

	query := r.db.Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&deployments).Error

	if err != nil {
		return nil, err
	}

	return deployments, nil
}

func (r *Repository) GetLast() (*Deployment, error) {
	deployment := &Deployment{}

	err := r.db.Order("created_at DESC").First(deployment).Error

	if err != nil {
		return nil, err
	}

	return deployment, nil
}

func (r *Repository) DeleteAll() error {
	return r.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Deployment{}).Error
}

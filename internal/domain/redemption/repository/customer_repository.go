package repository

import (
	"context"

	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/model"

	"gorm.io/gorm"
)

type CustomerRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*model.Customer, error)
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) GetByID(ctx context.Context, tenantID, id string) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&customer).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &customer, nil
}

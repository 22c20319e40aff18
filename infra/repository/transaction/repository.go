// Package transaction provides the GORM-backed implementation of the
// transaction read-model repository.
package transaction

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	infrarepo "github.com/amirasaad/payproc/infra/repository"
	"github.com/amirasaad/payproc/pkg/domain"
	"github.com/amirasaad/payproc/pkg/dto"
	repo "github.com/amirasaad/payproc/pkg/repository/transaction"
)

type repository struct {
	db *gorm.DB
}

// New creates a CQRS-style transaction read repository using the provided
// *gorm.DB.
func New(db *gorm.DB) repo.Repository {
	return &repository{db: db}
}

// Upsert implements transaction.Repository.
func (r *repository) Upsert(ctx context.Context, row dto.TransactionRead) error {
	m := mapReadDTOToModel(row)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_id"}},
		UpdateAll: true,
	}).Create(&m).Error
	return infrarepo.MapGormErrorToDomain(err)
}

// Update implements transaction.Repository.
func (r *repository) Update(
	ctx context.Context,
	transactionID string,
	update dto.TransactionUpdate,
) error {
	updates := mapUpdateDTOToModel(update)
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&ReadModel{}).
		Where("transaction_id = ?", transactionID).
		Updates(updates)
	if res.Error != nil {
		return infrarepo.MapGormErrorToDomain(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Get implements transaction.Repository.
func (r *repository) Get(ctx context.Context, transactionID string) (*dto.TransactionRead, error) {
	var m ReadModel
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&m).Error
	if err != nil {
		return nil, infrarepo.MapGormErrorToDomain(err)
	}
	row := mapModelToReadDTO(m)
	return &row, nil
}

// ListByUser implements transaction.Repository.
func (r *repository) ListByUser(ctx context.Context, userID string) ([]dto.TransactionRead, error) {
	var models []ReadModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, infrarepo.MapGormErrorToDomain(err)
	}
	return mapModelsToReadDTOs(models), nil
}

// ListByUserAndStatuses implements transaction.Repository.
func (r *repository) ListByUserAndStatuses(
	ctx context.Context,
	userID string,
	statuses []domain.TransactionStatus,
) ([]dto.TransactionRead, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	var models []ReadModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, names).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, infrarepo.MapGormErrorToDomain(err)
	}
	return mapModelsToReadDTOs(models), nil
}

// ListByDateRange implements transaction.Repository.
func (r *repository) ListByDateRange(ctx context.Context, from, to time.Time) ([]dto.TransactionRead, error) {
	var models []ReadModel
	err := r.db.WithContext(ctx).
		Where("created_at BETWEEN ? AND ?", from, to).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, infrarepo.MapGormErrorToDomain(err)
	}
	return mapModelsToReadDTOs(models), nil
}

// CountByStatus implements transaction.Repository.
func (r *repository) CountByStatus(ctx context.Context, status domain.TransactionStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&ReadModel{}).
		Where("status = ?", string(status)).
		Count(&n).Error
	return n, infrarepo.MapGormErrorToDomain(err)
}

// SumAmountByStatusSince implements transaction.Repository.
func (r *repository) SumAmountByStatusSince(
	ctx context.Context,
	status domain.TransactionStatus,
	since time.Time,
) (float64, error) {
	var sum float64
	err := r.db.WithContext(ctx).
		Model(&ReadModel{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("status = ? AND created_at >= ?", string(status), since).
		Scan(&sum).Error
	return sum, infrarepo.MapGormErrorToDomain(err)
}

func mapReadDTOToModel(row dto.TransactionRead) ReadModel {
	return ReadModel{
		TransactionID:        row.TransactionID,
		UserID:               row.UserID,
		Amount:               row.Amount,
		Currency:             row.Currency,
		PaymentMethod:        string(row.PaymentMethod),
		Description:          row.Description,
		Status:               string(row.Status),
		CreatedAt:            row.CreatedAt,
		CompletedAt:          row.CompletedAt,
		RiskScore:            row.RiskScore,
		FraudReason:          row.FraudReason,
		GatewayTransactionID: row.GatewayTransactionID,
	}
}

func mapUpdateDTOToModel(update dto.TransactionUpdate) map[string]any {
	updates := make(map[string]any)
	if update.Status != nil {
		updates["status"] = string(*update.Status)
	}
	if update.CompletedAt != nil {
		updates["completed_at"] = *update.CompletedAt
	}
	if update.RiskScore != nil {
		updates["risk_score"] = *update.RiskScore
	}
	if update.FraudReason != nil {
		updates["fraud_reason"] = *update.FraudReason
	}
	if update.GatewayTransactionID != nil {
		updates["gateway_transaction_id"] = *update.GatewayTransactionID
	}
	return updates
}

func mapModelToReadDTO(m ReadModel) dto.TransactionRead {
	return dto.TransactionRead{
		TransactionID:        m.TransactionID,
		UserID:               m.UserID,
		Amount:               m.Amount,
		Currency:             m.Currency,
		PaymentMethod:        domain.PaymentMethod(m.PaymentMethod),
		Description:          m.Description,
		Status:               domain.TransactionStatus(m.Status),
		CreatedAt:            m.CreatedAt,
		CompletedAt:          m.CompletedAt,
		RiskScore:            m.RiskScore,
		FraudReason:          m.FraudReason,
		GatewayTransactionID: m.GatewayTransactionID,
	}
}

func mapModelsToReadDTOs(models []ReadModel) []dto.TransactionRead {
	out := make([]dto.TransactionRead, len(models))
	for i, m := range models {
		out[i] = mapModelToReadDTO(m)
	}
	return out
}

package transaction

import (
	"time"
)

// ReadModel is the denormalized read row for one transaction, maintained
// by the projector and queried by the read side.
type ReadModel struct {
	TransactionID        string  `gorm:"type:varchar(64);primaryKey"`
	UserID               string  `gorm:"type:varchar(64);index;not null"`
	Amount               float64 `gorm:"type:decimal(20,2);not null"`
	Currency             string  `gorm:"type:varchar(3);not null;default:'USD'"`
	PaymentMethod        string  `gorm:"type:varchar(32);not null"`
	Description          string  `gorm:"type:varchar(255)"`
	Status               string  `gorm:"type:varchar(32);not null;index"`
	CreatedAt            time.Time `gorm:"index"`
	CompletedAt          *time.Time
	RiskScore            *float64 `gorm:"type:decimal(5,4)"`
	FraudReason          *string  `gorm:"type:varchar(255)"`
	GatewayTransactionID *string  `gorm:"type:varchar(64);column:gateway_transaction_id"`
	UpdatedAt            time.Time
}

// TableName specifies the table name for the ReadModel.
func (ReadModel) TableName() string {
	return "transaction_read_models"
}

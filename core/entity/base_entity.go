package entity

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the id and audit columns shared by persisted rows.
type BaseEntity struct {
	ID        uuid.UUID `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Touch sets UpdatedAt, and CreatedAt when it is still zero.
func (b *BaseEntity) Touch(now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

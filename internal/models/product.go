package models

import "time"

// Product represents a product in the catalog.
type Product struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null" validate:"required,max=255"`
	Description *string   `json:"description" gorm:"type:text"`
	Price       string    `json:"price" gorm:"type:varchar(32);not null" validate:"omitempty,decimal"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// Clone returns a deep copy, so the description pointer is not shared.
func (p Product) Clone() Product {
	if p.Description != nil {
		d := *p.Description
		p.Description = &d
	}
	return p
}

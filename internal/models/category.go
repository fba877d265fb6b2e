package models

import "time"

// Category is the top level of the content taxonomy.
type Category struct {
	ID          string     `json:"_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

func (c Category) EntityID() string   { return c.ID }
func (c Category) Created() time.Time { return c.CreatedAt }

// Subcategory belongs to exactly one Category.
type Subcategory struct {
	ID          string     `json:"_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Category    Ref        `json:"category_id"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

func (s Subcategory) EntityID() string   { return s.ID }
func (s Subcategory) Created() time.Time { return s.CreatedAt }

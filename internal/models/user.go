package models

import "time"

// UserRole represents the roles the Special Academy API accepts.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// User is a platform account as returned by the users endpoints.
type User struct {
	ID        string     `json:"_id"`
	FullName  string     `json:"fullName"`
	Email     string     `json:"email"`
	Role      UserRole   `json:"role"`
	Avatar    string     `json:"avatar,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// EntityID implements crud.Record.
func (u User) EntityID() string { return u.ID }

// Created implements crud.Record.
func (u User) Created() time.Time { return u.CreatedAt }

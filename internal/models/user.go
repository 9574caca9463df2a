package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserRole identifies the coarse authorization level of a user.
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleCEO      UserRole = "ceo"
	RoleEmployee UserRole = "employee"
)

// User is a requesting identity.
type User struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Password  string    `db:"password" json:"-"`
	Role      UserRole  `db:"role" json:"role"`
	IsDeleted bool      `db:"is_deleted" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// JWTClaims are the claims carried in access tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Pagination carries list paging metadata in response envelopes.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

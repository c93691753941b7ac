package models

import "github.com/golang-jwt/jwt/v5"

// Token identity
const (
	TokenIssuer   = "banklens-api"
	TokenAudience = "banklens-client"
)

type UserClaims struct {
	jwt.RegisteredClaims
	UserID          string `json:"userId"`
	Email           string `json:"email"`
	IsEmailVerified bool   `json:"isEmailVerified"`
}

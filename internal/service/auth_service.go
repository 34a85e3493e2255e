package service

import (
	"context"
	"errors"
	"time"

	"ecommerce-api/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("credenciales inválidas")
	ErrUserDisabled       = errors.New("el usuario está deshabilitado")
	ErrInvalidToken       = errors.New("token inválido o expirado")
)

// Servicio de autenticación local: emite y valida JWT firmados con el secreto
// del servicio, las contraseñas se guardan con bcrypt.
type AuthService struct {
	users  UserRepository
	secret string
	ttl    time.Duration
}

func NewAuthService(users UserRepository, secret string) *AuthService {
	return &AuthService{
		users:  users,
		secret: secret,
		ttl:    24 * time.Hour,
	}
}

type authClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

func (a *AuthService) Register(ctx context.Context, name, email, password string) (*model.User, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	user := &model.User{
		Name:      name,
		Email:     email,
		Password:  string(hash),
		Role:      "user",
		IsActive:  true,
		LastLogin: time.Now().UTC(),
	}

	if err := a.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := a.generateToken(user.ID.Hex())
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (a *AuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, "", ErrUserDisabled
	}

	_ = a.users.UpdateLastLogin(ctx, user.ID.Hex())

	token, err := a.generateToken(user.ID.Hex())
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Valida el token y devuelve el usuario que lo porta.
func (a *AuthService) ValidateToken(ctx context.Context, tokenString string) (*model.User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(a.secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*authClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	user, err := a.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	return user, nil
}

func (a *AuthService) generateToken(userID string) (string, error) {
	claims := &authClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.secret))
}

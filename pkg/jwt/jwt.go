package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrEmptySecret = errors.New("jwt: secret vacío")
	ErrNoUser      = errors.New("jwt: token sin usuario")
)

// leeway tolerancia de reloj entre el emisor y este servicio.
const leeway = 30 * time.Second

// Claims incluye los claims estándar JWT más el usuario que ejecuta los movimientos.
// El token lo emite el servicio de identidad; aquí solo se valida.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// Generate firma un token HS256 para userID. Lo usan las herramientas y los tests.
func Generate(secret, userID, issuer string, expMinutes int) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
		},
		UserID: userID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Verifier valida tokens de un emisor. Issuer vacío acepta cualquier emisor.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier construye el verificador; falla si no hay secreto configurado.
func NewVerifier(secret, issuer string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &Verifier{secret: []byte(secret), parser: jwt.NewParser(opts...)}, nil
}

// Parse valida firma, expiración y emisor y devuelve el userID (claim user_id o, si falta, sub).
func (v *Verifier) Parse(tokenString string) (string, error) {
	var claims Claims
	_, err := v.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("jwt: %w", err)
	}
	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return "", ErrNoUser
	}
	return userID, nil
}

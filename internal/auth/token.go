package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenTypeLedger = "ledger"

type Claims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// LedgerToken дает доступ к одному анонимному леджеру.
type LedgerToken struct {
	Token     string
	LedgerID  string
	ExpiresAt time.Time
}

type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager инициализирует менеджер JWT токенов.
func NewTokenManager(secret string, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// NewLedger создает новый леджер и токен доступа к нему.
func (m *TokenManager) NewLedger() (LedgerToken, error) {
	return m.Issue(uuid.NewString())
}

// Issue выпускает токен для существующего леджера.
func (m *TokenManager) Issue(ledgerID string) (LedgerToken, error) {
	if ledgerID == "" {
		return LedgerToken{}, errors.New("ledger id is required")
	}

	now := m.now()
	expiresAt := now.Add(m.ttl)

	claims := Claims{
		TokenType: tokenTypeLedger,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   ledgerID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return LedgerToken{}, err
	}

	return LedgerToken{Token: signed, LedgerID: ledgerID, ExpiresAt: expiresAt}, nil
}

// Parse валидирует токен и возвращает идентификатор леджера.
func (m *TokenManager) Parse(tokenString string) (string, error) {
	claims := &Claims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
	)
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return "", err
	}

	if !token.Valid {
		return "", errors.New("token is invalid")
	}

	if claims.TokenType != tokenTypeLedger {
		return "", errors.New("token type mismatch")
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", errors.New("invalid token subject")
	}

	return claims.Subject, nil
}

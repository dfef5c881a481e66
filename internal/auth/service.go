package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/gymsuite/internal/shared"
)

const issuer = "gymsuite"

// Claims is the JWT payload; it carries the caller's data scope.
type Claims struct {
	CompanyID int64   `json:"company_id"`
	Branches  []int64 `json:"branches,omitempty"`
	Admin     bool    `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	secret   []byte
	ttl      time.Duration
	currency string
	now      func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, secret string, ttl time.Duration, currency string) *Service {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{repo: repo, secret: []byte(secret), ttl: ttl, currency: currency, now: time.Now}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues a signed access token.
func (s *Service) Login(ctx context.Context, email, password string) (Token, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return Token{}, err
	}
	token, err := s.IssueToken(user)
	if err != nil {
		return Token{}, err
	}
	_ = s.repo.TouchLogin(ctx, user.ID)
	return token, nil
}

// IssueToken signs a HS256 token for the user.
func (s *Service) IssueToken(user *User) (Token, error) {
	now := s.now().UTC()
	expires := now.Add(s.ttl)
	claims := Claims{
		CompanyID: user.CompanyID,
		Branches:  user.BranchIDs,
		Admin:     user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return Token{AccessToken: signed, TokenType: "Bearer", ExpiresAt: expires}, nil
}

// ParseToken verifies the token and rebuilds the request context from its claims.
func (s *Service) ParseToken(raw string) (shared.RequestContext, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return shared.RequestContext{}, errors.Join(shared.ErrUnauthorized, err)
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return shared.RequestContext{}, fmt.Errorf("%w: bad subject", shared.ErrUnauthorized)
	}
	return shared.RequestContext{
		UserID:          userID,
		CompanyID:       claims.CompanyID,
		AllowedBranches: claims.Branches,
		IsAdmin:         claims.Admin,
		Currency:        s.currency,
	}, nil
}

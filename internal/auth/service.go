package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/forte001/GraceCoop/internal/domain/member"
)

var ErrInvalidCredentials = errors.New("invalid_credentials")

type Service struct {
	members   Members
	hasher    *BcryptHasher
	jwt       *JWTManager
	accessTTL time.Duration
}

type Members interface {
	GetByEmail(ctx context.Context, email string) (*member.Entity, error)
}

func NewService(members Members, hasher *BcryptHasher, jwt *JWTManager, accessTTL time.Duration) *Service {
	if accessTTL <= 0 {
		accessTTL = 12 * time.Hour
	}
	return &Service{members: members, hasher: hasher, jwt: jwt, accessTTL: accessTTL}
}

type LoginResult struct {
	Token  string
	Member *member.Entity
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	m, err := s.members.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Check(m.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.Mint(m.ID, m.Role, "access", s.accessTTL)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, Member: m}, nil
}

package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"

	"github.com/gurukulhq/gurukul/internal/domain"
)

// Sentinel errors for the auth package.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)

// argon2id parameters following OWASP recommendations.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// Service authenticates platform operators against the catalog and
// issues capability-carrying tokens for the admin surface.
type Service struct {
	operators domain.OperatorRepository
	jwtSecret string
	accessTTL time.Duration
}

func NewService(operators domain.OperatorRepository, jwtSecret string, accessTTL time.Duration) *Service {
	return &Service{
		operators: operators,
		jwtSecret: jwtSecret,
		accessTTL: accessTTL,
	}
}

// Login validates email/password and returns a signed access token
// carrying the operator's capability set.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	op, err := s.operators.GetByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("auth.Login: %w", ErrInvalidCredentials)
	}

	if !VerifyPassword(password, op.PasswordHash) {
		return "", fmt.Errorf("auth.Login: %w", ErrInvalidCredentials)
	}

	token, err := IssueToken(s.jwtSecret, op.ID, op.Capabilities, s.accessTTL)
	if err != nil {
		return "", fmt.Errorf("auth.Login: %w", err)
	}

	return token, nil
}

// Validate parses a token and returns its claims.
func (s *Service) Validate(token string) (*Claims, error) {
	return ValidateToken(s.jwtSecret, token)
}

// HashPassword generates an argon2id hash with a random salt.
// Format: hex(salt) + "$" + hex(hash)
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

// VerifyPassword checks a password against an argon2id hash.
func VerifyPassword(password, encoded string) bool {
	saltHex, hashHex, ok := strings.Cut(encoded, "$")
	if !ok || saltHex == "" || hashHex == "" {
		return false
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}

	expectedHash, err := hex.DecodeString(hashHex)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return subtle.ConstantTimeCompare(computed, expectedHash) == 1
}

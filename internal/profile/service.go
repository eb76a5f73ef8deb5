package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/wichananm65/storefront-backend/internal/audit"
)

const (
	minSearchLength = 3
	maxSearchResult = 20
)

type Service struct {
	repo   Repository
	audit  audit.Recorder
	logger *slog.Logger
}

func NewService(repo Repository, recorder audit.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, audit: recorder, logger: logger}
}

// CreateInput is the data accepted by the internal profile creation endpoint.
type CreateInput struct {
	ID       string
	Email    string
	FullName string
	Phone    string
	Role     string
}

// CreateProfile inserts a profile and then records an audit entry. The two
// writes are sequential with no rollback: when the audit insert fails the
// profile stays and the failure is only logged.
func (s *Service) CreateProfile(ctx context.Context, actor string, in CreateInput) (Profile, error) {
	p := Profile{
		ID:       in.ID,
		Email:    normalizeEmail(in.Email),
		FullName: strings.TrimSpace(in.FullName),
		Phone:    strings.TrimSpace(in.Phone),
		Role:     in.Role,
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Role == "" {
		p.Role = RoleCustomer
	}

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return Profile{}, err
	}

	if s.audit != nil {
		err := s.audit.Record(ctx, audit.Entry{
			Actor:    actor,
			Action:   audit.ActionProfileCreated,
			Entity:   "profile",
			EntityID: created.ID,
			Metadata: map[string]any{"email": created.Email, "role": created.Role},
		})
		if err != nil {
			s.logger.Error("audit log for profile creation failed", "profile_id", created.ID, "error", err)
		}
	}
	return created, nil
}

// SignUp registers a customer with a password.
func (s *Service) SignUp(ctx context.Context, email, password, fullName, phone string) (Profile, error) {
	email = normalizeEmail(email)
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return Profile{}, ErrEmailExists
	} else if !errors.Is(err, ErrNotFound) {
		return Profile{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Profile{}, fmt.Errorf("hash password: %w", err)
	}

	return s.repo.Create(ctx, Profile{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		Phone:        strings.TrimSpace(phone),
		Role:         RoleCustomer,
		PasswordHash: string(hashed),
	})
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (Profile, error) {
	p, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Profile{}, ErrInvalidCredentials
		}
		return Profile{}, err
	}
	// profiles created through the internal endpoint have no password
	if p.PasswordHash == "" {
		return Profile{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return Profile{}, ErrInvalidCredentials
	}
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Profile, error) {
	return s.repo.GetByID(ctx, id)
}

// Email returns the address for a profile id. Payment notifications use it.
func (s *Service) Email(ctx context.Context, id string) (string, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return p.Email, nil
}

// SearchClients trims q and returns at most 20 matching profiles.
func (s *Service) SearchClients(ctx context.Context, q string) ([]Profile, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < minSearchLength {
		return nil, ErrQueryTooShort
	}
	return s.repo.Search(ctx, q, maxSearchResult)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

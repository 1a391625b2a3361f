package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/clinprot/regdocs/pkg/audit"
	"github.com/clinprot/regdocs/pkg/common/apperrors"
	"github.com/clinprot/regdocs/pkg/common/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Roles. Admins manage users; sponsors upload and sign documents;
// investigators review submissions.
const (
	RoleAdmin        = "admin"
	RoleSponsor      = "sponsor"
	RoleInvestigator = "investigator"
)

var (
	ErrBootstrapNotAllowed = errors.New("platform already bootstrapped")
	ErrInvalidCredentials  = errors.New("invalid credentials")
)

type Service struct {
	repo    *Repository
	auditor *audit.Service
}

func NewService(repo *Repository, auditor *audit.Service) *Service {
	return &Service{repo: repo, auditor: auditor}
}

// Bootstrap creates the first admin account. Refused once any user
// exists.
func (s *Service) Bootstrap(ctx context.Context, req models.BootstrapRequest) (models.User, error) {
	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		return models.User{}, err
	}
	if count > 0 {
		return models.User{}, ErrBootstrapNotAllowed
	}
	user, err := s.createUser(ctx, req.Email, req.Name, RoleAdmin, req.Password)
	if err != nil {
		return models.User{}, err
	}
	s.auditor.Record(ctx, models.AuditEntry{
		Action:     "platform_bootstrapped",
		Agent:      user.Email,
		TargetType: "user",
		TargetID:   user.ID.String(),
	})
	return user, nil
}

// Register creates a user. Only admins may register new accounts.
func (s *Service) Register(ctx context.Context, actorRole string, req models.RegisterUserRequest) (models.User, error) {
	if actorRole != RoleAdmin {
		return models.User{}, apperrors.Validation("only admins can register users")
	}
	role := req.Role
	switch role {
	case "":
		role = RoleSponsor
	case RoleAdmin, RoleSponsor, RoleInvestigator:
	default:
		return models.User{}, apperrors.Validation("unknown role " + role)
	}
	user, err := s.createUser(ctx, req.Email, req.Name, role, req.Password)
	if err != nil {
		return models.User{}, err
	}
	s.auditor.Record(ctx, models.AuditEntry{
		Action:     "user_registered",
		TargetType: "user",
		TargetID:   user.ID.String(),
		Details:    map[string]interface{}{"role": role},
	})
	return user, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	if email == "" || password == "" {
		return models.User{}, ErrInvalidCredentials
	}
	user, hash, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// AuthenticateSSO resolves a federated login to a provisioned account.
// SSO users must be registered by an administrator first; an unknown
// email is rejected rather than auto-provisioned.
func (s *Service) AuthenticateSSO(ctx context.Context, email string) (models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return models.User{}, ErrInvalidCredentials
	}
	user, _, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *Service) createUser(ctx context.Context, email, name, role, password string) (models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return models.User{}, apperrors.Validation("a valid email is required")
	}
	if len(password) < 8 {
		return models.User{}, apperrors.Validation("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	return s.repo.CreateUser(ctx, models.User{Email: email, Name: name, Role: role}, string(hash))
}

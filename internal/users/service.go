package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/prostorehq/prostore-backend/pkg/auth"
	"github.com/prostorehq/prostore-backend/pkg/config"
	"github.com/prostorehq/prostore-backend/pkg/db/models"
	pkgerrors "github.com/prostorehq/prostore-backend/pkg/errors"
	"github.com/prostorehq/prostore-backend/pkg/logger"
	"github.com/prostorehq/prostore-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

type userRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
}

// cartMerger folds an anonymous cart into the user's cart at login.
type cartMerger interface {
	MergeAnonymousIntoUser(ctx context.Context, userID uuid.UUID, sessionCartID string) error
}

// Service defines registration and credentials login.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*UserDTO, error)
	Login(ctx context.Context, input LoginInput) (*LoginResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*UserDTO, error)
}

// RegisterInput holds the validated signup payload.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginInput holds the validated credentials plus the request's anonymous
// cart token, if any.
type LoginInput struct {
	Email         string
	Password      string
	SessionCartID string
}

type service struct {
	repo   userRepository
	carts  cartMerger
	logg   *logger.Logger
	jwtCfg config.JWTConfig
	pwCfg  config.PasswordConfig
	now    func() time.Time
}

// ServiceParams bundles the dependencies required to build a user service.
type ServiceParams struct {
	UserRepo       userRepository
	CartMerger     cartMerger
	Logger         *logger.Logger
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
}

// NewService constructs a user service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.CartMerger == nil {
		return nil, fmt.Errorf("cart merger is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		repo:   params.UserRepo,
		carts:  params.CartMerger,
		logg:   params.Logger,
		jwtCfg: params.JWTConfig,
		pwCfg:  params.PasswordConfig,
		now:    time.Now,
	}, nil
}

// Register creates a shopper account with a hashed password.
func (s *service) Register(ctx context.Context, input RegisterInput) (*UserDTO, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email is already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check email")
	}

	hash, err := security.HashPassword(input.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "hash password")
	}

	created, err := s.repo.Create(ctx, &models.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         models.UserRoleUser,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	return toDTO(created), nil
}

// Login verifies credentials, mints an access token and folds the request's
// anonymous cart into the user's cart. A failed merge is logged and never
// fails the login.
func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResponse, error) {
	account, err := s.authenticate(ctx, input.Email, input.Password)
	if err != nil {
		return nil, err
	}

	token, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		UserID: account.ID,
		Role:   account.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	if sessionCartID := strings.TrimSpace(input.SessionCartID); sessionCartID != "" {
		mergeCtx := s.logg.WithSessionCartID(s.logg.WithUserID(ctx, account.ID.String()), sessionCartID)
		if err := s.carts.MergeAnonymousIntoUser(ctx, account.ID, sessionCartID); err != nil {
			s.logg.Error(mergeCtx, "cart merge failed during login", err)
		}
	}

	return &LoginResponse{Token: token, User: *toDTO(account)}, nil
}

// GetByID returns the account read model.
func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return toDTO(account), nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	account, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	ok, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return account, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/itqanpos/ITQN/internal/auth"
	"github.com/itqanpos/ITQN/internal/clock"
	ierr "github.com/itqanpos/ITQN/internal/errors"
	"github.com/itqanpos/ITQN/internal/model"
	"github.com/itqanpos/ITQN/internal/repository"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Username           string           `json:"username" binding:"required,max=255"`
	Email              string           `json:"email" binding:"required,email"`
	Password           string           `json:"password" binding:"required,min=6"`
	Role               string           `json:"role" binding:"required,oneof=owner admin manager cashier sales"`
	CommissionEligible bool             `json:"commission_eligible"`
	CommissionRate     *decimal.Decimal `json:"commission_rate"` // percent; nil uses the tenant rate
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// DTO for returning User without exposing the password hash
type UserResponse struct {
	ID                 string  `json:"id"`
	TenantID           string  `json:"tenant_id"`
	Username           string  `json:"username"`
	Email              string  `json:"email"`
	Role               string  `json:"role"`
	CommissionEligible bool    `json:"commission_eligible"`
	CommissionRate     *string `json:"commission_rate"`
	CreatedAt          string  `json:"created_at"`
}

// UserService manages the actors of a tenant and issues their access tokens.
type UserService interface {
	CreateUser(ctx context.Context, tenantID, actorID uuid.UUID, req CreateUserRequest) (UserResponse, error)
	Login(ctx context.Context, req LoginUserRequest) (TokenResponse, error)
	GetUser(ctx context.Context, tenantID, id uuid.UUID) (UserResponse, error)
	ListUsers(ctx context.Context, tenantID uuid.UUID, page, limit int) ([]UserResponse, int64, error)
}

type userService struct {
	userRepo  repository.UserRepository
	auditRepo repository.AuditRepository
	runner    *TxRunner
	clock     clock.Clock
	secret    []byte
	tokenTTL  time.Duration
}

func NewUserService(
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	runner *TxRunner,
	clk clock.Clock,
	secret []byte,
	tokenTTL time.Duration,
) UserService {
	return &userService{
		userRepo:  userRepo,
		auditRepo: auditRepo,
		runner:    runner,
		clock:     clk,
		secret:    secret,
		tokenTTL:  tokenTTL,
	}
}

// userManagers may add users to their tenant.
var userManagers = []string{model.RoleOwner, model.RoleAdmin}

func (s *userService) CreateUser(ctx context.Context, tenantID, actorID uuid.UUID, req CreateUserRequest) (UserResponse, error) {
	if actorID == uuid.Nil {
		return UserResponse{}, errUnauthenticated()
	}
	if !lo.Contains(model.Roles, req.Role) {
		return UserResponse{}, errInvalidArgument("role must be one of " + strings.Join(model.Roles, ", "))
	}
	if req.CommissionRate != nil && (req.CommissionRate.IsNegative() || req.CommissionRate.GreaterThan(hundred)) {
		return UserResponse{}, errInvalidArgument("commission_rate must be between 0 and 100")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return UserResponse{}, ierr.WithError(err).WithMessage("hash password").Mark(ierr.ErrInternal)
	}

	user := model.User{
		TenantID:           tenantID,
		Username:           req.Username,
		Email:              strings.ToLower(req.Email),
		Password:           string(hashedPassword),
		Role:               req.Role,
		CommissionEligible: req.CommissionEligible,
		CommissionRate:     req.CommissionRate,
	}

	err = s.runner.Run(ctx, "create user", func(txCtx context.Context) error {
		actor, err := s.userRepo.FindByID(txCtx, tenantID, actorID)
		if err != nil {
			if ierr.IsNotFound(err) {
				return errUnauthenticated()
			}
			return err
		}
		if !lo.Contains(userManagers, actor.Role) {
			return ierr.Newf("role %q may not create users", actor.Role).
				WithHint("you do not have permission to create users").
				Mark(ierr.ErrPermissionDenied)
		}

		if err := ensureEmailAvailable(txCtx, s.userRepo, user.Email); err != nil {
			return err
		}
		if err := s.userRepo.Create(txCtx, &user); err != nil {
			return err
		}
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			TenantID:   tenantID,
			UserID:     &actorID,
			Action:     model.ActionCreateUser,
			EntityID:   user.ID.String(),
			EntityName: user.Username,
			Details:    map[string]interface{}{"role": user.Role, "commission_eligible": user.CommissionEligible},
		})
	})
	if err != nil {
		return UserResponse{}, err
	}
	return toUserResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginUserRequest) (TokenResponse, error) {
	invalid := func() error {
		return ierr.NewError("bad credentials").
			WithHint("invalid email or password").
			Mark(ierr.ErrUnauthenticated)
	}

	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if ierr.IsNotFound(err) {
			return TokenResponse{}, invalid()
		}
		return TokenResponse{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return TokenResponse{}, invalid()
	}

	now := s.clock.Now()
	token, err := auth.IssueToken(s.secret, auth.Identity{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Role:     user.Role,
	}, s.tokenTTL, now)
	if err != nil {
		return TokenResponse{}, ierr.WithError(err).WithMessage("sign token").Mark(ierr.ErrInternal)
	}
	return TokenResponse{Token: token, ExpiresAt: now.Add(s.tokenTTL).Format(timeLayout)}, nil
}

func (s *userService) GetUser(ctx context.Context, tenantID, id uuid.UUID) (UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, tenantID, id)
	if err != nil {
		return UserResponse{}, err
	}
	return toUserResponse(*user), nil
}

func (s *userService) ListUsers(ctx context.Context, tenantID uuid.UUID, page, limit int) ([]UserResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	users, total, err := s.userRepo.List(ctx, tenantID, page, limit)
	if err != nil {
		return nil, 0, err
	}
	return lo.Map(users, func(u model.User, _ int) UserResponse {
		return toUserResponse(u)
	}), total, nil
}

// ensureEmailAvailable reports a taken email as Conflict. The unique index
// still catches a concurrent insert of the same address.
func ensureEmailAvailable(ctx context.Context, userRepo repository.UserRepository, email string) error {
	_, err := userRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return ierr.Newf("email %s is taken", email).
			WithHint("email already exists").
			Also(ierr.ErrAlreadyExists).
			Mark(ierr.ErrConflict)
	case ierr.IsNotFound(err):
		return nil
	default:
		return err
	}
}

func toUserResponse(u model.User) UserResponse {
	resp := UserResponse{
		ID:                 u.ID.String(),
		TenantID:           u.TenantID.String(),
		Username:           u.Username,
		Email:              u.Email,
		Role:               u.Role,
		CommissionEligible: u.CommissionEligible,
		CreatedAt:          u.CreatedAt.Format(timeLayout),
	}
	if u.CommissionRate != nil {
		rate := u.CommissionRate.String()
		resp.CommissionRate = &rate
	}
	return resp
}

package user

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/crypto/bcrypt"

	types "physlib-backend/internal/shared"
	"physlib-backend/pkg/jwt"
	"physlib-backend/pkg/logger"
)

// TaskEnqueuer is the slice of asynq.Client this service needs.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Service struct {
	repo        Repository
	jwtManager  *jwt.Manager
	asynqClient TaskEnqueuer
	appBaseURL  string
}

func NewService(repo Repository, jwtManager *jwt.Manager, asynqClient TaskEnqueuer, appBaseURL string) *Service {
	return &Service{
		repo:        repo,
		jwtManager:  jwtManager,
		asynqClient: asynqClient,
		appBaseURL:  appBaseURL,
	}
}

// Register creates a self-service member account.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	exists, err := s.repo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashStr := string(hash)

	now := time.Now()
	u := &User{
		ID:           uuid.New(),
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: &hashStr,
		Role:         RoleUser,
		ActivatedAt:  &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return s.issueTokens(u)
}

// Login authenticates by email and password.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	u, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		// Same answer for unknown email and wrong password.
		return nil, ErrInvalidCredentials
	}
	if u.Role == RoleSuspended {
		return nil, ErrAccountSuspended
	}
	if u.IsPending() {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issueTokens(u)
}

// Invite creates a pending staff or member account and queues the
// invitation email with a setup token.
func (s *Service) Invite(ctx context.Context, req *InviteRequest, inviterID, inviterName string) (*User, error) {
	exists, err := s.repo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	inviter, err := uuid.Parse(inviterID)
	if err != nil {
		return nil, fmt.Errorf("invalid inviter id: %w", err)
	}

	now := time.Now()
	u := &User{
		ID:        uuid.New(),
		Email:     req.Email,
		FullName:  req.FullName,
		Role:      req.Role,
		InvitedBy: &inviter,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	setupToken, err := s.jwtManager.GenerateSetupToken(u.ID.String(), u.Email, u.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate setup token: %w", err)
	}

	payload, _ := json.Marshal(types.InvitationEmailPayload{
		UserID:      u.ID.String(),
		Email:       u.Email,
		Name:        u.FullName,
		InviterName: inviterName,
		Role:        u.Role,
		SetupLink:   fmt.Sprintf("%s/setup?token=%s", s.appBaseURL, setupToken),
	})
	task := asynq.NewTask(types.TypeSendInvitationEmail, payload)
	if _, err := s.asynqClient.Enqueue(task, asynq.Queue(types.QueueEmail), asynq.MaxRetry(5)); err != nil {
		logger.Warn("could not enqueue invitation email", map[string]interface{}{
			"user_id": u.ID.String(),
			"error":   err.Error(),
		})
	}

	return u, nil
}

// CompleteSetup exchanges an invitation token for a password.
func (s *Service) CompleteSetup(ctx context.Context, req *CompleteSetupRequest) (*AuthResponse, error) {
	claims, err := s.jwtManager.ValidateToken(req.Token)
	if err != nil || claims.Type != "setup" {
		return nil, ErrInvalidSetupToken
	}

	u, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidSetupToken
	}
	if !u.IsPending() {
		return nil, ErrAlreadyActivated
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashStr := string(hash)

	if err := s.repo.SetPassword(ctx, u.ID.String(), hashStr); err != nil {
		return nil, err
	}

	u.PasswordHash = &hashStr
	return s.issueTokens(u)
}

// List pages through accounts for the admin screen.
func (s *Service) List(ctx context.Context, page, limit int) ([]User, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.repo.List(ctx, limit, (page-1)*limit)
}

// UpdateRole changes an account's role, including suspension.
func (s *Service) UpdateRole(ctx context.Context, id, role string) error {
	if !ValidRole(role) {
		return fmt.Errorf("invalid role %q", role)
	}
	return s.repo.UpdateRole(ctx, id, role)
}

func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) issueTokens(u *User) (*AuthResponse, error) {
	access, err := s.jwtManager.GenerateAccessToken(u.ID.String(), u.Email, u.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.jwtManager.GenerateRefreshToken(u.ID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return &AuthResponse{AccessToken: access, RefreshToken: refresh, User: u}, nil
}

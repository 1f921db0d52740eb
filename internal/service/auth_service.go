package service

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/conradkoh/jcep-sub000/internal/auth"
	"github.com/conradkoh/jcep-sub000/internal/models"
	"github.com/conradkoh/jcep-sub000/internal/repository"
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo    *repository.UserRepository
	roleRepo    *repository.RoleRepository
	sessionRepo *repository.SessionRepository
	authSvc     *auth.Service
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo *repository.UserRepository,
	roleRepo *repository.RoleRepository,
	sessionRepo *repository.SessionRepository,
	authSvc *auth.Service,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		roleRepo:    roleRepo,
		sessionRepo: sessionRepo,
		authSvc:     authSvc,
	}
}

// TokenPair holds a freshly issued access/refresh token pair
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Register registers a new user. The first user becomes an admin; everyone
// else starts as a plain user and is promoted by an admin later.
func (s *AuthService) Register(email, password, firstName, lastName string) (*models.User, error) {
	existing, _ := s.userRepo.GetByEmail(email)
	if existing != nil {
		return nil, repository.ErrUserExists
	}

	passwordHash, err := s.authSvc.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		IsActive:     true,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	roleName := "user"
	users, err := s.userRepo.GetAll(2, 0)
	if err != nil {
		slog.Error("Failed to count users", "error", err)
	} else if len(users) == 1 {
		roleName = "admin"
		slog.Info("Assigning admin role to first user", "email", email)
	}

	role, err := s.roleRepo.GetByName(roleName)
	if err != nil {
		slog.Error("Failed to find role", "role", roleName, "error", err)
	} else if err := s.userRepo.AssignRole(user.ID, role.ID); err != nil {
		slog.Error("Failed to assign role", "role", roleName, "user_id", user.ID, "error", err)
	}

	return user, nil
}

// Login authenticates a user and issues an access/refresh token pair
func (s *AuthService) Login(email, password, ipAddress, userAgent string) (*TokenPair, *models.User, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	if err := s.authSvc.VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, nil, ErrUserInactive
	}

	return s.issueTokens(user, ipAddress, userAgent)
}

// Refresh exchanges a valid refresh token for a fresh token pair. The old
// refresh token is invalidated.
func (s *AuthService) Refresh(refreshToken, ipAddress, userAgent string) (*TokenPair, *models.User, error) {
	claims, err := s.authSvc.ValidateToken(refreshToken)
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.sessionRepo.GetByJTI(claims.ID)
	if err != nil || session.TokenType != "refresh" {
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, ErrUserInactive
	}

	if err := s.sessionRepo.DeleteByJTI(claims.ID); err != nil {
		slog.Error("Failed to invalidate refresh token", "jti", claims.ID, "error", err)
	}

	return s.issueTokens(user, ipAddress, userAgent)
}

// Logout invalidates the session behind a token, even an expired one
func (s *AuthService) Logout(token string) error {
	jti, err := s.authSvc.ExtractJTI(token)
	if err != nil {
		return fmt.Errorf("failed to extract token ID: %w", err)
	}

	return s.sessionRepo.DeleteByJTI(jti)
}

// GetUserWithRoles loads a user and their role names
func (s *AuthService) GetUserWithRoles(userID string) (*models.User, []string, error) {
	user, err := s.userRepo.GetByID(userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	roles, err := s.userRepo.GetUserRoles(userID)
	if err != nil {
		return nil, nil, err
	}

	roleNames := make([]string, 0, len(roles))
	for _, role := range roles {
		roleNames = append(roleNames, role.Name)
	}

	return user, roleNames, nil
}

func (s *AuthService) issueTokens(user *models.User, ipAddress, userAgent string) (*TokenPair, *models.User, error) {
	accessToken, accessJTI, err := s.authSvc.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, refreshJTI, err := s.authSvc.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	accessClaims, err := s.authSvc.ValidateToken(accessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to validate issued token: %w", err)
	}
	refreshClaims, err := s.authSvc.ValidateToken(refreshToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to validate issued token: %w", err)
	}

	sessions := []*models.Session{
		{
			UserID:    user.ID,
			JTI:       accessJTI,
			TokenType: "access",
			ExpiresAt: accessClaims.ExpiresAt.Time,
			IPAddress: ipAddress,
			UserAgent: userAgent,
		},
		{
			UserID:    user.ID,
			JTI:       refreshJTI,
			TokenType: "refresh",
			ExpiresAt: refreshClaims.ExpiresAt.Time,
			IPAddress: ipAddress,
			UserAgent: userAgent,
		},
	}

	for _, session := range sessions {
		if err := s.sessionRepo.Create(session); err != nil {
			return nil, nil, fmt.Errorf("failed to create session: %w", err)
		}
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, user, nil
}

// CleanupExpiredSessions removes sessions whose tokens have expired
func (s *AuthService) CleanupExpiredSessions() error {
	return s.sessionRepo.DeleteExpiredSessions()
}

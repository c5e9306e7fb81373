package identity

import (
	"context"
	"errors"
	"time"

	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/cloudpos/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidRefreshToken = shared.NewDomainError("INVALID_TOKEN", "Refresh token is invalid or expired")

// AuthService handles login, token refresh and logout
type AuthService struct {
	users     identity.UserRepository
	roles     identity.RoleRepository
	jwt       *auth.JWTService
	blacklist auth.TokenBlacklist
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	users identity.UserRepository,
	roles identity.RoleRepository,
	jwt *auth.JWTService,
	blacklist auth.TokenBlacklist,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		roles:     roles,
		jwt:       jwt,
		blacklist: blacklist,
		logger:    logger,
		now:       time.Now,
	}
}

// Login checks the password, applies the lockout policy and issues tokens
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	user, err := s.users.FindByUsername(ctx, in.TenantID, in.Username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Login for unknown user", zap.String("username", in.Username))
			return nil, identity.ErrInvalidCredentials
		}
		return nil, err
	}

	now := s.now()
	if err := user.CanLogin(now); err != nil {
		s.logger.Warn("Login refused", zap.String("username", in.Username), zap.Error(err))
		return nil, err
	}

	if !user.VerifyPassword(in.Password) {
		locked := user.RecordLoginFailure(now)
		if err := s.users.Save(ctx, user); err != nil {
			s.logger.Error("Failed to record login failure", zap.Error(err))
		}
		if locked {
			s.logger.Warn("Account locked after failed attempts",
				zap.String("username", in.Username),
				zap.Int("attempts", user.FailedAttempts))
			return nil, identity.ErrAccountLocked
		}
		return nil, identity.ErrInvalidCredentials
	}

	perms, err := s.permissionsOf(ctx, user)
	if err != nil {
		return nil, err
	}
	pair, err := s.jwt.GenerateTokenPair(subjectOf(user, perms))
	if err != nil {
		return nil, err
	}

	user.RecordLoginSuccess(now)
	if err := s.users.Save(ctx, user); err != nil {
		s.logger.Error("Failed to record login", zap.Error(err))
	}

	s.logger.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("tenant_id", user.TenantID.String()),
		zap.String("ip", in.IP))

	dto := ToUserDTO(user)
	dto.Permissions = perms
	return &LoginResult{Token: pair, User: dto}, nil
}

// Refresh exchanges a refresh token. Roles and branch are re-read so that
// access changes apply at the next refresh.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	if revoked, err := s.isRevoked(ctx, claims); err != nil {
		return nil, err
	} else if revoked {
		return nil, ErrInvalidRefreshToken
	}

	tenantID, _ := claims.TenantUUID()
	userID, _ := claims.UserUUID()
	user, err := s.users.FindByID(ctx, tenantID, userID)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	if err := user.CanLogin(s.now()); err != nil {
		return nil, err
	}

	perms, err := s.permissionsOf(ctx, user)
	if err != nil {
		return nil, err
	}
	pair, err := s.jwt.Refresh(claims, subjectOf(user, perms))
	if err != nil {
		if errors.Is(err, auth.ErrMaxRefreshExceeded) {
			return nil, shared.NewDomainError("REFRESH_LIMIT", "Session expired, please log in again")
		}
		return nil, err
	}
	// single use
	if err := s.blacklist.Revoke(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		s.logger.Warn("Failed to revoke used refresh token", zap.Error(err))
	}

	dto := ToUserDTO(user)
	dto.Permissions = perms
	return &LoginResult{Token: pair, User: dto}, nil
}

func (s *AuthService) isRevoked(ctx context.Context, claims *auth.Claims) (bool, error) {
	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil || revoked {
		return revoked, err
	}
	return s.blacklist.IsUserRevoked(ctx, claims.UserID, claims.IssuedAtTime())
}

// Logout blacklists the access token JTI and, when given, the refresh token
func (s *AuthService) Logout(ctx context.Context, access *auth.Claims, refreshToken string) error {
	if err := s.blacklist.Revoke(ctx, access.ID, access.RemainingTTL()); err != nil {
		return err
	}
	if refreshToken != "" {
		if rc, err := s.jwt.ValidateRefreshToken(refreshToken); err == nil && rc.UserID == access.UserID {
			if err := s.blacklist.Revoke(ctx, rc.ID, rc.RemainingTTL()); err != nil {
				return err
			}
		}
	}
	s.logger.Info("User logged out", zap.String("user_id", access.UserID))
	return nil
}

// Me returns the current user with effective permissions
func (s *AuthService) Me(ctx context.Context, p *identity.Principal) (*UserDTO, error) {
	user, err := s.users.FindByID(ctx, p.TenantID, p.UserID)
	if err != nil {
		return nil, err
	}
	dto := ToUserDTO(user)
	dto.Permissions = p.Permissions()
	return &dto, nil
}

// ChangePassword verifies the current password and revokes every other session
func (s *AuthService) ChangePassword(ctx context.Context, p *identity.Principal, oldPassword, newPassword string) error {
	user, err := s.users.FindByID(ctx, p.TenantID, p.UserID)
	if err != nil {
		return err
	}
	if err := user.ChangePassword(oldPassword, newPassword); err != nil {
		return err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}
	if err := s.blacklist.RevokeUser(ctx, user.ID.String(), s.jwt.RefreshTokenExpiration()); err != nil {
		s.logger.Warn("Failed to revoke sessions after password change", zap.Error(err))
	}
	return nil
}

func (s *AuthService) permissionsOf(ctx context.Context, user *identity.User) ([]string, error) {
	if len(user.RoleIDs) == 0 {
		return []string{}, nil
	}
	roles, err := s.roles.FindByIDs(ctx, user.TenantID, user.RoleIDs)
	if err != nil {
		return nil, err
	}
	return identity.PermissionsForRoles(roles), nil
}

func subjectOf(user *identity.User, perms []string) auth.TokenSubject {
	return auth.TokenSubject{
		TenantID:    user.TenantID,
		UserID:      user.ID,
		Username:    user.Username,
		BranchID:    user.BranchID,
		Permissions: perms,
	}
}

// PrincipalFromClaims rebuilds the request principal from access token claims
func PrincipalFromClaims(c *auth.Claims) (*identity.Principal, error) {
	tenantID, err := c.TenantUUID()
	if err != nil {
		return nil, err
	}
	userID, err := c.UserUUID()
	if err != nil {
		return nil, err
	}
	branchID, err := c.BranchUUID()
	if err != nil {
		return nil, err
	}
	if branchID != nil && *branchID == uuid.Nil {
		branchID = nil
	}
	return identity.NewPrincipal(userID, tenantID, branchID, c.Permissions), nil
}

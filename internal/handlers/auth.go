package handlers

import (
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/classpulse/interaction-service/internal/config"
	"github.com/classpulse/interaction-service/internal/models"
	"github.com/classpulse/interaction-service/internal/repositories"
	"github.com/classpulse/interaction-service/internal/utils"
)

// AuthMiddleware authenticates requests against Casdoor-issued JWTs and
// resolves them to local user rows. Identity is owned by Casdoor; the local
// users table is a mirror keyed by the token's subject claim.
type AuthMiddleware struct {
	repo   repositories.Repository
	logger utils.Logger
}

func NewAuthMiddleware(cfg *config.Config, repo repositories.Repository, logger utils.Logger) *AuthMiddleware {
	casdoorsdk.InitConfig(
		cfg.CasdoorEndpoint,
		cfg.CasdoorClientID,
		cfg.CasdoorClientSecret,
		cfg.CasdoorCertificate,
		cfg.CasdoorOrganization,
		cfg.CasdoorApplication,
	)
	return &AuthMiddleware{repo: repo, logger: logger}
}

// Handler validates the bearer token and sets user_id and user_role in the
// gin context for downstream handlers.
func (m *AuthMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Missing or malformed Authorization header",
			})
			return
		}

		claims, err := casdoorsdk.ParseJwtToken(token)
		if err != nil {
			m.logger.Warn("Token validation failed", "error", err, "remote_addr", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid or expired token",
			})
			return
		}

		user, err := m.resolveUser(c, claims)
		if err != nil {
			m.logger.Error("Failed to resolve local user", "error", err, "subject", claims.User.Id)
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
				Message: "Internal server error",
			})
			return
		}

		c.Set("user_id", user.ID)
		c.Set("user_role", user.Role)
		c.Next()
	}
}

// RequireRole rejects requests whose resolved user lacks the given role.
// Admins pass every role gate.
func RequireRole(role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get("user_role")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "User not authenticated",
			})
			return
		}
		userRole, ok := value.(models.UserRole)
		if !ok || (userRole != role && userRole != models.RoleAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: "Insufficient permissions",
			})
			return
		}
		c.Next()
	}
}

// resolveUser maps token claims onto a local user row, creating the mirror
// row on first sight of a subject.
func (m *AuthMiddleware) resolveUser(c *gin.Context, claims *casdoorsdk.Claims) (*models.User, error) {
	subject := claims.User.Id

	user, err := m.repo.User().GetByCasdoorSubject(c.Request.Context(), subject)
	if err == nil {
		return user, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, err
	}

	// First login for this subject; adopt an existing roster-imported account
	// by username, otherwise create a fresh mirror row.
	user, err = m.repo.User().GetByUsername(c.Request.Context(), claims.User.Name)
	if err == nil {
		user.CasdoorSubject = &subject
		if err := m.repo.User().Update(c.Request.Context(), user); err != nil {
			return nil, err
		}
		return user, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, err
	}

	user = &models.User{
		Username:       claims.User.Name,
		Role:           roleFromClaims(claims),
		CasdoorSubject: &subject,
	}
	if claims.User.Email != "" {
		email := claims.User.Email
		user.Email = &email
	}
	if err := m.repo.User().Create(c.Request.Context(), user); err != nil {
		return nil, err
	}

	m.logger.Info("Local user mirror created", "user_id", user.ID, "username", user.Username, "role", user.Role)
	return user, nil
}

// roleFromClaims reads the role from the Casdoor user tag, defaulting to
// student for unknown values.
func roleFromClaims(claims *casdoorsdk.Claims) models.UserRole {
	switch models.UserRole(claims.User.Tag) {
	case models.RoleLecturer:
		return models.RoleLecturer
	case models.RoleAdmin:
		return models.RoleAdmin
	default:
		return models.RoleStudent
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

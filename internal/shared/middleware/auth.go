package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/tenant"
)

// AuthMiddleware verifies the bearer JWT and populates the tenant context
// with {organization_id, user_id, role}. Every protected route runs behind
// this; the core never trusts ids from URLs or bodies for tenancy.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(401, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(401, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}
		token := parts[1]

		claims := jwt.MapClaims{}
		parsedToken, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})

		if err != nil || !parsedToken.Valid {
			c.JSON(401, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		userIDStr, ok := claims["user_id"].(string)
		if !ok {
			c.JSON(401, gin.H{"error": "invalid user ID in token"})
			c.Abort()
			return
		}

		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			c.JSON(401, gin.H{"error": "invalid UUID format"})
			c.Abort()
			return
		}

		orgID, ok := claims["organization_id"].(string)
		if !ok || orgID == "" {
			c.JSON(401, gin.H{"error": "invalid organization in token"})
			c.Abort()
			return
		}

		role, _ := claims["role"].(string)
		if role == "" {
			role = tenant.RoleStaff
		}

		tenant.Set(c, tenant.Context{
			OrganizationID: orgID,
			UserID:         userID,
			Role:           role,
		})

		c.Next()
	}
}

// RequireRole rejects callers whose role is not in the allowed set.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		tc, err := tenant.FromGin(c)
		if err != nil {
			c.JSON(401, gin.H{"error": "missing tenant context"})
			c.Abort()
			return
		}

		if _, ok := allowed[tc.Role]; !ok {
			c.JSON(403, gin.H{"error": "insufficient role"})
			c.Abort()
			return
		}

		c.Next()
	}
}

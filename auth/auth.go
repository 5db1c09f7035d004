// Package auth gates the administrative endpoints. Tokens are issued by
// the identity service; this side only validates them and normalizes the
// role claim into one canonical shape.
package auth

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const RoleAdmin = "admin"

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID string   `json:"user_id"`
	Name   string   `json:"name,omitempty"`
	Roles  []string `json:"roles,omitempty"`
	// Legacy tokens carry a single "role" claim, sometimes a plain
	// string and sometimes an object with a name field. Kept raw here
	// and folded into Roles by NormalizedRoles.
	Role json.RawMessage `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// NormalizedRoles returns every role the token carries, lower-cased, with
// the legacy role claim folded in. Call sites never inspect the raw shape.
func (c *Claims) NormalizedRoles() []string {
	roles := make([]string, 0, len(c.Roles)+1)
	for _, r := range c.Roles {
		roles = append(roles, strings.ToLower(r))
	}
	if len(c.Role) > 0 {
		var s string
		if err := json.Unmarshal(c.Role, &s); err == nil {
			if s != "" {
				roles = append(roles, strings.ToLower(s))
			}
		} else {
			var obj struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(c.Role, &obj); err == nil && obj.Name != "" {
				roles = append(roles, strings.ToLower(obj.Name))
			}
		}
	}
	return roles
}

func (c *Claims) HasRole(role string) bool {
	for _, r := range c.NormalizedRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// ValidateToken parses and verifies an HS256 token.
func ValidateToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Middleware requires a valid token carrying the given role. The token is
// read from the Authorization header or the jwt_token cookie.
func Middleware(secret, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies("jwt_token")
		if tokenString == "" {
			header := c.Get("Authorization")
			if strings.HasPrefix(header, "Bearer ") {
				tokenString = strings.TrimPrefix(header, "Bearer ")
			}
		}
		if tokenString == "" {
			return c.Status(401).JSON(&fiber.Map{
				"status":  401,
				"message": "Missing token.",
			})
		}

		claims, err := ValidateToken(secret, tokenString)
		if err != nil {
			return c.Status(401).JSON(&fiber.Map{
				"status":  401,
				"message": "Invalid token.",
			})
		}
		if role != "" && !claims.HasRole(role) {
			return c.Status(403).JSON(&fiber.Map{
				"status":  403,
				"message": "Insufficient permissions.",
			})
		}

		c.Locals("claims", claims)
		return c.Next()
	}
}

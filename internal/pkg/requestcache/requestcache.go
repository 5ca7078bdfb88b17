package requestcache

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/fudoline/fudoline/app/models"
	"github.com/fudoline/fudoline/app/repository"
	"github.com/fudoline/fudoline/internal/pkg/apperr"
)

// AuthUserHeader carries the authenticated identity resolved by the edge
// proxy. Handlers never read it directly; they go through GetTenant.
const AuthUserHeader = "X-Auth-User-ID"

const tenantKey = "TENANT_CONTEXT"

// GetTenant resolves the tenant for the request's authenticated user.
// The lookup runs once per request; handlers that call this repeatedly
// get the cached row from fiber locals.
func GetTenant(c *fiber.Ctx, tenants repository.TenantRepository) (*models.Tenant, error) {
	if cached := c.Locals(tenantKey); cached != nil {
		return cached.(*models.Tenant), nil
	}

	authUserID := c.Get(AuthUserHeader)
	if authUserID == "" {
		return nil, apperr.Authorization("authentication required")
	}

	tenant, err := tenants.GetByAuthUserID(authUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Authorization("no tenant for authenticated user")
		}
		return nil, err
	}

	c.Locals(tenantKey, tenant)
	return tenant, nil
}

// SetTenant seeds the request-scoped tenant. Used by tests and by flows
// that resolve the tenant through another path.
func SetTenant(c *fiber.Ctx, tenant *models.Tenant) {
	c.Locals(tenantKey, tenant)
}

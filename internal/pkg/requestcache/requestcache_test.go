package requestcache

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fudoline/fudoline/app/models"
	"github.com/fudoline/fudoline/internal/pkg/apperr"
)

type fakeTenants struct {
	byAuthID map[string]*models.Tenant
	lookups  int
}

func (f *fakeTenants) Create(tenant *models.Tenant) error { return nil }
func (f *fakeTenants) GetByID(id string) (*models.Tenant, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeTenants) GetByEmail(email string) (*models.Tenant, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeTenants) Update(tenant *models.Tenant) error { return nil }

func (f *fakeTenants) GetByAuthUserID(authUserID string) (*models.Tenant, error) {
	f.lookups++
	tenant, ok := f.byAuthID[authUserID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return tenant, nil
}

func TestGetTenantCachesLookup(t *testing.T) {
	tenants := &fakeTenants{byAuthID: map[string]*models.Tenant{
		"auth-1": {ID: "tenant-1", AuthUserID: "auth-1"},
	}}

	app := fiber.New()
	app.Get("/probe", func(c *fiber.Ctx) error {
		first, err := GetTenant(c, tenants)
		require.NoError(t, err)
		second, err := GetTenant(c, tenants)
		require.NoError(t, err)
		assert.Same(t, first, second)
		return c.SendString(first.ID)
	})

	req := httptest.NewRequest("GET", "/probe", nil)
	req.Header.Set(AuthUserHeader, "auth-1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 1, tenants.lookups)
}

func TestGetTenantRequiresHeader(t *testing.T) {
	tenants := &fakeTenants{byAuthID: map[string]*models.Tenant{}}

	app := fiber.New()
	app.Get("/probe", func(c *fiber.Ctx) error {
		_, err := GetTenant(c, tenants)
		assert.True(t, apperr.Is(err, apperr.KindAuthorization))
		return c.SendStatus(204)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/probe", nil))
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)
}

func TestGetTenantUnknownUser(t *testing.T) {
	tenants := &fakeTenants{byAuthID: map[string]*models.Tenant{}}

	app := fiber.New()
	app.Get("/probe", func(c *fiber.Ctx) error {
		_, err := GetTenant(c, tenants)
		assert.True(t, apperr.Is(err, apperr.KindAuthorization))
		return c.SendStatus(204)
	})

	req := httptest.NewRequest("GET", "/probe", nil)
	req.Header.Set(AuthUserHeader, "auth-unknown")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)
}

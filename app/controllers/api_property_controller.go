package controllers

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/fudoline/fudoline/app/models"
	"github.com/fudoline/fudoline/app/repository"
	"github.com/fudoline/fudoline/internal/pkg/apperr"
	"github.com/fudoline/fudoline/internal/pkg/csvarchive"
	"github.com/fudoline/fudoline/internal/pkg/csvimport"
	"github.com/fudoline/fudoline/internal/pkg/requestcache"
)

// archiveClient is set at startup when CSV archival is configured.
var archiveClient *csvarchive.Client

// SetArchiveClient installs the import archival client.
func SetArchiveClient(client *csvarchive.Client) {
	archiveClient = client
}

// PropertyRequest is the create/update payload for one listing.
type PropertyRequest struct {
	Name         string   `json:"name" validate:"required,max=100"`
	Address      string   `json:"address" validate:"required,max=200"`
	PropertyType string   `json:"property_type" validate:"required,max=50"`
	Price        *float64 `json:"price" validate:"omitempty,gte=0,lte=999999999"`
	Size         *float64 `json:"size" validate:"omitempty,gte=0,lte=10000"`
	Rooms        *float64 `json:"rooms" validate:"omitempty,gte=0,lte=100"`
	Description  *string  `json:"description" validate:"omitempty,max=1000"`
	Status       string   `json:"status" validate:"omitempty,oneof=draft published archived"`
}

// Validate checks the payload against its constraints.
func (p *PropertyRequest) Validate() error {
	v := validator.New()
	return v.Struct(p)
}

// HandleListProperties returns a page of the tenant's listings.
func HandleListProperties(c *fiber.Ctx) error {
	tenant, err := requestcache.GetTenant(c, repository.GetGlobalFactory().GetTenantRepository())
	if err != nil {
		return respondError(c, err)
	}

	offset, limit := pagination(c)
	repo := repository.GetGlobalFactory().GetPropertyRepository()

	if query := c.Query("q"); query != "" {
		listings, err := repo.Search(tenant.ID, query, limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"properties": listings})
	}

	listings, err := repo.GetByTenantID(tenant.ID, offset, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"properties": listings, "offset": offset, "limit": limit})
}

// HandleGetProperty returns one listing.
func HandleGetProperty(c *fiber.Ctx) error {
	tenant, err := requestcache.GetTenant(c, repository.GetGlobalFactory().GetTenantRepository())
	if err != nil {
		return respondError(c, err)
	}

	property, err := repository.GetGlobalFactory().GetPropertyRepository().GetByID(c.Params("id"), tenant.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, apperr.NotFound("property not found"))
		}
		return respondError(c, err)
	}
	return c.JSON(property)
}

// HandleCreateProperty creates one listing.
func HandleCreateProperty(c *fiber.Ctx) error {
	tenant, err := requestcache.GetTenant(c, repository.GetGlobalFactory().GetTenantRepository())
	if err != nil {
		return respondError(c, err)
	}

	var payload PropertyRequest
	if err := c.BodyParser(&payload); err != nil {
		return respondError(c, apperr.Validation("malformed request body"))
	}
	if err := payload.Validate(); err != nil {
		return respondError(c, apperr.Validation(err.Error()))
	}

	status := payload.Status
	if status == "" {
		status = models.PropertyStatusDraft
	}
	property := &models.Property{
		TenantID:     tenant.ID,
		Name:         payload.Name,
		Address:      payload.Address,
		PropertyType: payload.PropertyType,
		Price:        payload.Price,
		Size:         payload.Size,
		Rooms:        payload.Rooms,
		Description:  payload.Description,
		Status:       status,
	}
	if err := repository.GetGlobalFactory().GetPropertyRepository().Create(property); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(property)
}

// HandleUpdateProperty updates one listing.
func HandleUpdateProperty(c *fiber.Ctx) error {
	tenant, err := requestcache.GetTenant(c, repository.GetGlobalFactory().GetTenantRepository())
	if err != nil {
		return respondError(c, err)
	}

	repo := repository.GetGlobalFactory().GetPropertyRepository()
	property, err := repo.GetByID(c.Params("id"), tenant.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, apperr.NotFound("property not found"))
		}
		return respondError(c, err)
	}

	var payload PropertyRequest
	if err := c.BodyParser(&payload); err != nil {
		return respondError(c, apperr.Validation("malformed request body"))
	}
	if err := payload.Validate(); err != nil {
		return respondError(c, apperr.Validation(err.Error()))
	}

	property.Name = payload.Name
	property.Address = payload.Address
	property.PropertyType = payload.PropertyType
	property.Price = payload.Price
	property.Size = payload.Size
	property.Rooms = payload.Rooms
	property.Description = payload.Description
	if payload.Status != "" {
		property.Status = payload.Status
	}
	if err := repo.Update(property); err != nil {
		return respondError(c, err)
	}
	return c.JSON(property)
}

// HandleDeleteProperty removes one listing.
func HandleDeleteProperty(c *fiber.Ctx) error {
	tenant, err := requestcache.GetTenant(c, repository.GetGlobalFactory().GetTenantRepository())
	if err != nil {
		return respondError(c, err)
	}

	repo := repository.GetGlobalFactory().GetPropertyRepository()
	if _, err := repo.GetByID(c.Params("id"), tenant.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, apperr.NotFound("property not found"))
		}
		return respondError(c, err)
	}
	if err := repo.Delete(c.Params("id"), tenant.ID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleImportProperties ingests a CSV upload of listings.
func HandleImportProperties(c *fiber.Ctx) error {
	tenant, err := requestcache.GetTenant(c, repository.GetGlobalFactory().GetTenantRepository())
	if err != nil {
		return respondError(c, err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return respondError(c, apperr.Validation("no file uploaded"))
	}
	if err := csvimport.ValidateUpload(fileHeader.Filename, fileHeader.Size); err != nil {
		return respondError(c, err)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return respondError(c, fmt.Errorf("open upload: %w", err))
	}
	defer file.Close()

	importer := csvimport.NewImporter(repository.GetGlobalFactory().GetPropertyRepository())
	result, err := importer.Import(tenant.ID, file)
	if err != nil {
		return respondError(c, apperr.Wrap(apperr.KindValidation, "could not parse CSV file", err))
	}

	if archiveClient != nil {
		if _, err := file.Seek(0, 0); err == nil {
			if data, err := io.ReadAll(file); err == nil {
				name := filepath.Base(fileHeader.Filename)
				if _, err := archiveClient.ArchiveImport(c.Context(), tenant.ID, name, data); err != nil {
					log.Warnf("[API] import archival failed: %v", err)
				}
			}
		}
	}

	return c.JSON(result)
}

// HandleImportTemplate serves the CSV template download.
func HandleImportTemplate(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="property_import_template.csv"`)
	return c.SendString(csvimport.Template())
}

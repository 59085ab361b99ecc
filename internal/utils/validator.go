// internal/utils/validator.go
package utils

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/greenproof/greenproof-backend/internal/models"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report fields by their JSON names so clients see "expiresAt", not "ExpiresAt".
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	validate.RegisterValidation("credential_type", func(fl validator.FieldLevel) bool {
		return models.CredentialType(fl.Field().String()).IsValid()
	})
	validate.RegisterValidation("product_category", func(fl validator.FieldLevel) bool {
		return models.ProductCategory(fl.Field().String()).IsValid()
	})
	validate.RegisterValidation("product_status", func(fl validator.FieldLevel) bool {
		return models.ProductStatus(fl.Field().String()).IsValid()
	})
	validate.RegisterValidation("evidence_type", func(fl validator.FieldLevel) bool {
		return models.EvidenceType(fl.Field().String()).IsValid()
	})
	validate.RegisterValidation("verification_method", func(fl validator.FieldLevel) bool {
		return models.VerificationMethod(fl.Field().String()).IsValid()
	})
	validate.RegisterValidation("registerable_role", validateRegisterableRole)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// Admins are seeded, never self-registered.
func validateRegisterableRole(fl validator.FieldLevel) bool {
	switch models.UserRole(fl.Field().String()) {
	case models.RoleProducer, models.RoleConsumer, models.RoleVerifier:
		return true
	}
	return false
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   e.Field(),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "url":
		return e.Field() + " must be a valid URL"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "gte":
		return e.Field() + " must be greater than or equal to " + e.Param()
	case "lte":
		return e.Field() + " must be less than or equal to " + e.Param()
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	case "credential_type":
		return "Unknown credential type"
	case "product_category":
		return "Unknown product category"
	case "product_status":
		return "Unknown product status"
	case "evidence_type":
		return "Unknown evidence type"
	case "verification_method":
		return "Unknown verification method"
	case "registerable_role":
		return "Role must be one of: producer, consumer, verifier"
	default:
		return e.Field() + " is invalid"
	}
}

// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess     = "success"
	KeyError       = "error"
	KeyServerError = "server_error"
	KeyHealthy     = "healthy"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAuthTokenRefreshed     = "auth.token_refreshed"
	KeyAuthRoleDenied         = "auth.role_denied"

	// User Management
	KeyUserProfileUpdated  = "user.profile_updated"
	KeyUserNotFound        = "user.not_found"
	KeyUserVerified        = "user.verified"
	KeyUserDocumentAdded   = "user.document_added"
	KeyUserAlreadyVerified = "user.already_verified"

	// Products
	KeyProductCreated    = "product.created"
	KeyProductUpdated    = "product.updated"
	KeyProductDeleted    = "product.deleted"
	KeyProductNotFound   = "product.not_found"
	KeyProductStageAdded = "product.stage_added"

	// Credentials
	KeyCredentialCreated           = "credential.created"
	KeyCredentialUpdated           = "credential.updated"
	KeyCredentialSubmitted         = "credential.submitted"
	KeyCredentialVerified          = "credential.verified"
	KeyCredentialRejected          = "credential.rejected"
	KeyCredentialRevoked           = "credential.revoked"
	KeyCredentialNotFound          = "credential.not_found"
	KeyCredentialRequirementMarked = "credential.requirement_marked"
	KeyCredentialEvidenceVerified  = "credential.evidence_verified"
	KeyCredentialViewDenied        = "credential.view_denied"

	// Carbon
	KeyCarbonCalculated = "carbon.calculated"

	// Admin
	KeyAdminAccessDenied = "admin.access_denied"

	// Validation
	KeyValidationInvalid   = "validation.invalid"
	KeyValidationInvalidID = "validation.invalid_id"

	// File Upload
	KeyFileUploadSuccess = "file.upload_success"
	KeyFileUploadFailed  = "file.upload_failed"
	KeyFileInvalidType   = "file.invalid_type"
	KeyFileTooLarge      = "file.too_large"
	KeyFileRequired      = "file.required"

	// Notifications
	KeyNotificationNotFound = "notification.not_found"
	KeyNotificationRead     = "notification.read"

	// Rate limiting
	KeyRateLimited = "rate_limit.exceeded"
)

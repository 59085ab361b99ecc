package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenproof/greenproof-backend/internal/apperrors"
	"github.com/greenproof/greenproof-backend/internal/models"
	"github.com/greenproof/greenproof-backend/internal/utils"
)

func TestVerifyUser(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, "admin", models.RoleAdmin)
	producer := env.user(t, "producer", models.RoleProducer)

	verified, err := env.admin.VerifyUser(env.ctx, producer.ID, admin.ID)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)

	_, err = env.admin.VerifyUser(env.ctx, producer.ID, admin.ID)
	assert.ErrorIs(t, err, apperrors.ErrPrecondition)

	logs, total, err := env.admin.GetActivityLogs(env.ctx, &admin.ID, utils.PaginationParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, logs, 1)
	assert.Equal(t, "admin.verify_user", logs[0].Action)
	assert.Equal(t, producer.ID, *logs[0].ResourceID)

	notices, _, err := env.notifications.List(env.ctx, producer.ID, true, PageRequest{})
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, models.NotificationAccountVerified, notices[0].Type)
	require.Len(t, env.mail, 1)
	assert.Equal(t, "producer@greenproof.test", env.mail[0].to)
}

func TestGetUsersFilters(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "p1", models.RoleProducer)
	env.user(t, "p2", models.RoleProducer)
	env.user(t, "c1", models.RoleConsumer)

	users, total, err := env.admin.GetUsers(env.ctx, AdminUserFilter{Role: models.RoleProducer})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, users, 2)

	unverified := false
	_, total, err = env.admin.GetUsers(env.ctx, AdminUserFilter{IsVerified: &unverified})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	_, _, err = env.admin.GetUsers(env.ctx, AdminUserFilter{Role: "overlord"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestUserProfile(t *testing.T) {
	env := newTestEnv(t)
	user := env.user(t, "grower", models.RoleProducer)

	updated, err := env.users.UpdateProfile(env.ctx, user.ID, &UpdateUserProfileRequest{
		Organization: ptr("Green <i>Farms</i>"),
		Profile: &models.UserProfile{
			Phone:       "+49 30 1234",
			Address:     models.Address{Street: "Feldweg 1", City: "Berlin", ZipCode: "10115"},
			Description: "<p>Family farm</p>",
		},
		Preferences: &models.UserPreferences{},
	})
	require.NoError(t, err)
	assert.Equal(t, "Green Farms", updated.Organization)
	assert.Equal(t, "Family farm", updated.Profile.Description)
	assert.Equal(t, "en", updated.Preferences.Language)
	assert.Equal(t, "UTC", updated.Preferences.Timezone)

	public, err := env.users.GetPublicProfile(env.ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Berlin", public.Profile.Address.City)
	assert.Empty(t, public.Profile.Phone)
	assert.Empty(t, public.Profile.Address.Street)
	assert.Empty(t, public.Profile.Address.ZipCode)

	withDoc, err := env.users.AddVerificationDocument(env.ctx, user.ID, &AddVerificationDocumentRequest{
		Type: "business_license",
		URL:  "https://files.greenproof.test/license.pdf",
	})
	require.NoError(t, err)
	require.Len(t, withDoc.VerificationDocuments, 1)
	assert.Equal(t, env.clock.now, withDoc.VerificationDocuments[0].UploadedAt)
}

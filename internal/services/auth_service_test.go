package services

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/greenproof/greenproof-backend/internal/apperrors"
	"github.com/greenproof/greenproof-backend/internal/models"
	"github.com/greenproof/greenproof-backend/internal/utils"
)

type AuthServiceTestSuite struct {
	suite.Suite
	env *testEnv
}

func (s *AuthServiceTestSuite) SetupTest() {
	s.env = newTestEnv(s.T())
}

func (s *AuthServiceTestSuite) register(email string, role models.UserRole) *AuthResponse {
	resp, err := s.env.auth.Register(s.env.ctx, &RegisterRequest{
		Email:        email,
		Password:     "password123",
		Name:         "Test User",
		Role:         role,
		Organization: "Green Farms",
	})
	s.Require().NoError(err)
	return resp
}

func (s *AuthServiceTestSuite) TestRegister() {
	resp := s.register(" Grower@Example.com ", models.RoleProducer)

	s.Equal("grower@example.com", resp.User.Email)
	s.Equal(models.RoleProducer, resp.User.Role)
	s.False(resp.User.IsVerified)
	s.Equal("Bearer", resp.TokenType)
	s.Equal(3600, resp.ExpiresIn)
	s.NotEmpty(resp.AccessToken)
	s.NotEmpty(resp.RefreshToken)

	claims, err := utils.ValidateJWT(resp.AccessToken)
	s.Require().NoError(err)
	s.Equal(resp.User.ID.String(), claims.UserID)
	s.Equal("producer", claims.Role)
}

func (s *AuthServiceTestSuite) TestRegisterDefaultsToConsumer() {
	resp := s.register("shopper@example.com", "")
	s.Equal(models.RoleConsumer, resp.User.Role)
	s.True(resp.User.Preferences.Notifications.Email)
}

func (s *AuthServiceTestSuite) TestRegisterDuplicateEmail() {
	s.register("dup@example.com", models.RoleConsumer)

	_, err := s.env.auth.Register(s.env.ctx, &RegisterRequest{
		Email:    "DUP@example.com",
		Password: "password123",
		Name:     "Someone Else",
	})
	s.ErrorIs(err, apperrors.ErrConflict)
}

func (s *AuthServiceTestSuite) TestLogin() {
	s.register("login@example.com", models.RoleVerifier)

	resp, err := s.env.auth.Login(s.env.ctx, &LoginRequest{Email: "login@example.com", Password: "password123"})
	s.Require().NoError(err)
	s.Require().NotNil(resp.User.LastLoginAt)
	s.Equal(s.env.clock.now, *resp.User.LastLoginAt)

	_, err = s.env.auth.Login(s.env.ctx, &LoginRequest{Email: "login@example.com", Password: "wrong"})
	s.ErrorIs(err, apperrors.ErrUnauthorized)

	_, err = s.env.auth.Login(s.env.ctx, &LoginRequest{Email: "nobody@example.com", Password: "password123"})
	s.ErrorIs(err, apperrors.ErrUnauthorized)
}

func (s *AuthServiceTestSuite) TestRefreshToken() {
	registered := s.register("refresh@example.com", models.RoleConsumer)

	resp, err := s.env.auth.RefreshToken(s.env.ctx, registered.RefreshToken)
	s.Require().NoError(err)
	s.Equal(registered.User.ID, resp.User.ID)

	// An access token is not a refresh token.
	_, err = s.env.auth.RefreshToken(s.env.ctx, registered.AccessToken)
	s.ErrorIs(err, apperrors.ErrUnauthorized)

	_, err = s.env.auth.RefreshToken(s.env.ctx, "garbage")
	s.ErrorIs(err, apperrors.ErrUnauthorized)
}

func (s *AuthServiceTestSuite) TestMe() {
	registered := s.register("me@example.com", models.RoleConsumer)

	user, err := s.env.auth.Me(s.env.ctx, registered.User.ID)
	s.Require().NoError(err)
	s.Equal("me@example.com", user.Email)
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

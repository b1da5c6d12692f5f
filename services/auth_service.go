package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/techagentng/ireporter/config"
	"github.com/techagentng/ireporter/db"
	apiError "github.com/techagentng/ireporter/errors"
	"github.com/techagentng/ireporter/models"
	"github.com/techagentng/ireporter/services/jwt"
	"golang.org/x/crypto/bcrypt"
)

// AuthService interface
type AuthService interface {
	SignupUser(request *models.SignupRequest) (*models.LoginResponse, error)
	LoginUser(request *models.LoginRequest) (*models.LoginResponse, error)
	LogoutUser(ctx context.Context, token string) error
	AuthenticateToken(ctx context.Context, token string) (*models.User, error)
	GetUserProfile(userID uint) (*models.User, error)
	EditUserProfile(userID uint, details *models.EditProfileRequest) (*models.User, error)
	UpdateProfilePicture(userID uint, key string) (*models.User, error)
	GetAllUsers() ([]models.User, error)
	PromoteAdmin(email string) error
	RequestPasswordReset(email string) (*models.User, string, error)
	ResetPassword(ctx context.Context, token, password string) error
}

// authService struct
type authService struct {
	Config    *config.Config
	authRepo  db.AuthRepository
	blacklist db.TokenBlacklist
}

// NewAuthService instantiate an authService
func NewAuthService(authRepo db.AuthRepository, blacklist db.TokenBlacklist, conf *config.Config) AuthService {
	return &authService{
		Config:    conf,
		authRepo:  authRepo,
		blacklist: blacklist,
	}
}

func GenerateHashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hashedPassword), err
}

func (a *authService) SignupUser(request *models.SignupRequest) (*models.LoginResponse, error) {
	if err := models.ValidatePassword(request.Password); err != nil {
		return nil, apiError.New(err.Error(), http.StatusBadRequest)
	}
	if err := a.authRepo.IsEmailExist(request.Email); err != nil {
		return nil, apiError.GetUniqueContraintError(err)
	}

	hashedPassword, err := GenerateHashPassword(request.Password)
	if err != nil {
		logrus.WithError(err).Error("hashing password")
		return nil, apiError.ErrInternalServerError
	}

	user, err := a.authRepo.CreateUser(&models.User{
		FirstName:      request.FirstName,
		LastName:       request.LastName,
		Email:          request.Email,
		Phone:          request.Phone,
		HashedPassword: hashedPassword,
	})
	if err != nil {
		logrus.WithError(err).Error("creating user")
		return nil, apiError.GetUniqueContraintError(err)
	}
	return a.issueToken(user)
}

func (a *authService) LoginUser(request *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := a.authRepo.FindUserByEmail(request.Email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apiError.ErrInvalidPassword
		}
		logrus.WithError(err).Error("finding user by email")
		return nil, apiError.ErrInternalServerError
	}
	if user.IsBlocked {
		return nil, apiError.New(apiError.InActiveUserError.Error(), http.StatusForbidden)
	}
	if err := user.VerifyPassword(request.Password); err != nil {
		return nil, apiError.ErrInvalidPassword
	}
	return a.issueToken(user)
}

func (a *authService) issueToken(user *models.User) (*models.LoginResponse, error) {
	token, err := jwt.GenerateToken(user.ID, user.Email, user.IsAdmin, a.Config.JWTSecret, a.Config.TokenTTL)
	if err != nil {
		logrus.WithError(err).Error("generating access token")
		return nil, apiError.ErrInternalServerError
	}
	return &models.LoginResponse{Token: token, User: user.Response()}, nil
}

// LogoutUser revokes token for the rest of its lifetime.
func (a *authService) LogoutUser(ctx context.Context, token string) error {
	claims, err := jwt.ValidateAndGetClaims(token, a.Config.JWTSecret)
	if err != nil {
		return apiError.ErrUnauthorized
	}
	ttl := time.Until(jwt.ExpiresAt(claims))
	if err := a.blacklist.AddToBlackList(ctx, token, ttl); err != nil {
		logrus.WithError(err).Error("blacklisting token")
		return apiError.ErrInternalServerError
	}
	return nil
}

// AuthenticateToken resolves a bearer token to an active user.
func (a *authService) AuthenticateToken(ctx context.Context, token string) (*models.User, error) {
	revoked, err := a.blacklist.IsTokenInBlacklist(ctx, token)
	if err != nil {
		logrus.WithError(err).Error("checking token blacklist")
		return nil, apiError.ErrInternalServerError
	}
	if revoked {
		return nil, apiError.New("token has been revoked", http.StatusUnauthorized)
	}

	claims, err := jwt.ValidateAndGetClaims(token, a.Config.JWTSecret)
	if err != nil {
		return nil, apiError.ErrUnauthorized
	}
	userID, err := jwt.UserID(claims)
	if err != nil {
		return nil, apiError.ErrUnauthorized
	}

	user, err := a.authRepo.FindUserByID(userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apiError.New("user not found", http.StatusUnauthorized)
		}
		logrus.WithError(err).Error("loading authenticated user")
		return nil, apiError.ErrInternalServerError
	}
	if user.IsBlocked {
		return nil, apiError.New(apiError.InActiveUserError.Error(), http.StatusForbidden)
	}
	return user, nil
}

func (a *authService) GetUserProfile(userID uint) (*models.User, error) {
	user, err := a.authRepo.FindUserByID(userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apiError.ErrNotFound
		}
		return nil, apiError.ErrInternalServerError
	}
	return user, nil
}

func (a *authService) EditUserProfile(userID uint, details *models.EditProfileRequest) (*models.User, error) {
	user, err := a.authRepo.EditUserProfile(userID, details)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apiError.ErrNotFound
		}
		logrus.WithError(err).Error("editing profile")
		return nil, apiError.ErrInternalServerError
	}
	return user, nil
}

func (a *authService) UpdateProfilePicture(userID uint, key string) (*models.User, error) {
	if err := a.authRepo.UpsertUserImage(userID, key); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apiError.ErrNotFound
		}
		logrus.WithError(err).Error("updating profile picture")
		return nil, apiError.ErrInternalServerError
	}
	return a.GetUserProfile(userID)
}

func (a *authService) GetAllUsers() ([]models.User, error) {
	users, err := a.authRepo.GetAllUsers()
	if err != nil {
		logrus.WithError(err).Error("listing users")
		return nil, apiError.ErrInternalServerError
	}
	return users, nil
}

// PromoteAdmin grants the admin flag to the user with email.
func (a *authService) PromoteAdmin(email string) error {
	if err := a.authRepo.SetAdmin(email, true); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apiError.ErrNotFound
		}
		return err
	}
	return nil
}

// RequestPasswordReset issues a reset token for email. An unknown email
// yields a nil user and no error so callers can answer the same either way.
func (a *authService) RequestPasswordReset(email string) (*models.User, string, error) {
	user, err := a.authRepo.FindUserByEmail(email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, "", nil
		}
		logrus.WithError(err).Error("finding user for password reset")
		return nil, "", apiError.ErrInternalServerError
	}
	token, err := jwt.GeneratePasswordResetToken(user.Email, a.Config.JWTSecret, a.Config.ResetTokenTTL)
	if err != nil {
		logrus.WithError(err).Error("generating reset token")
		return nil, "", apiError.ErrInternalServerError
	}
	return user, token, nil
}

// ResetPassword sets a new password for the owner of a reset token. Each
// token works once.
func (a *authService) ResetPassword(ctx context.Context, token, password string) error {
	invalid := apiError.New("reset link is invalid or has expired", http.StatusBadRequest)
	used, err := a.blacklist.IsTokenInBlacklist(ctx, token)
	if err != nil {
		logrus.WithError(err).Error("checking token blacklist")
		return apiError.ErrInternalServerError
	}
	if used {
		return invalid
	}
	email, claims, err := jwt.ValidatePasswordResetToken(token, a.Config.JWTSecret)
	if err != nil {
		return invalid
	}
	if err := models.ValidatePassword(password); err != nil {
		return apiError.New(err.Error(), http.StatusBadRequest)
	}

	hashed, err := GenerateHashPassword(password)
	if err != nil {
		return apiError.ErrInternalServerError
	}
	if err := a.authRepo.UpdatePassword(email, hashed); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return invalid
		}
		logrus.WithError(err).Error("updating password")
		return apiError.ErrInternalServerError
	}
	if err := a.blacklist.AddToBlackList(ctx, token, time.Until(jwt.ExpiresAt(claims))); err != nil {
		logrus.WithError(err).Warn("retiring reset token")
	}
	return nil
}

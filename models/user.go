package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	goval "github.com/go-passwd/validator"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/leebenson/conform"
	"golang.org/x/crypto/bcrypt"
)

// Model is the base for every persisted entity.
type Model struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User represents an authenticated principal.
type User struct {
	Model
	FirstName      string `json:"first_name" gorm:"not null"`
	LastName       string `json:"last_name" gorm:"not null"`
	Email          string `json:"email" gorm:"uniqueIndex;not null"`
	Phone          string `json:"phone,omitempty" gorm:"default:null"`
	HashedPassword string `json:"-"`
	IsAdmin        bool   `json:"is_admin" gorm:"default:false"`
	IsBlocked      bool   `json:"-" gorm:"default:false"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

// FullName is the display name derived from first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Role is derived from IsAdmin and is used for UI gating only.
func (u *User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// VerifyPassword compares password with the stored hash.
func (u *User) VerifyPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password))
}

// UserResponse is the public projection of a User.
type UserResponse struct {
	ID             uint      `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	IsAdmin        bool      `json:"is_admin"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	Name           string    `json:"name"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (u *User) Response() UserResponse {
	return UserResponse{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		Phone:          u.Phone,
		IsAdmin:        u.IsAdmin,
		ProfilePicture: u.ProfilePicture,
		Name:           u.FullName(),
		Role:           u.Role(),
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

type SignupRequest struct {
	FirstName string `json:"first_name" binding:"required,min=1" conform:"trim"`
	LastName  string `json:"last_name" binding:"required,min=1" conform:"trim"`
	Email     string `json:"email" binding:"required,email" conform:"trim,lower"`
	Phone     string `json:"phone" conform:"trim,num"`
	Password  string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" conform:"trim,lower"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// EditProfileRequest carries optional profile fields; nil means unchanged.
type EditProfileRequest struct {
	FirstName *string `json:"first_name" conform:"trim"`
	LastName  *string `json:"last_name" conform:"trim"`
	Phone     *string `json:"phone" conform:"trim"`
}

func ValidatePassword(password string) error {
	passwordValidator := goval.New(goval.MinLength(6, errors.New("password cant be less than 6 characters")),
		goval.MaxLength(64, errors.New("password cant be more than 64 characters")))
	return passwordValidator.Validate(password)
}

// TrimStrings applies the conform tags of a request struct in place.
func TrimStrings(data interface{}) error {
	return conform.Strings(data)
}

// TranslateError turns validator errors into readable messages.
func TranslateError(err error, trans ut.Translator) (errs []error) {
	if err == nil {
		return nil
	}
	var validatorErrs validator.ValidationErrors
	if !errors.As(err, &validatorErrs) {
		return []error{err}
	}
	for _, e := range validatorErrs {
		errs = append(errs, fmt.Errorf("%s", e.Translate(trans)))
	}
	return errs
}

package db

import (
	"github.com/pkg/errors"
	"github.com/techagentng/ireporter/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned (wrapped) by every repository lookup that matches no row.
var ErrNotFound = errors.New("record not found")

type AuthRepository interface {
	CreateUser(user *models.User) (*models.User, error)
	IsEmailExist(email string) error
	FindUserByEmail(email string) (*models.User, error)
	FindUserByID(id uint) (*models.User, error)
	EditUserProfile(userID uint, details *models.EditProfileRequest) (*models.User, error)
	UpsertUserImage(userID uint, key string) error
	SetAdmin(email string, isAdmin bool) error
	UpdatePassword(email, hashedPassword string) error
	GetAllUsers() ([]models.User, error)
}

type authRepo struct {
	DB *gorm.DB
}

func NewAuthRepo(db *GormDB) AuthRepository {
	return &authRepo{db.DB}
}

func (a *authRepo) CreateUser(user *models.User) (*models.User, error) {
	if user == nil {
		return nil, errors.New("user is nil")
	}
	if err := a.DB.Create(user).Error; err != nil {
		return nil, errors.Wrap(err, "create user")
	}
	return user, nil
}

func (a *authRepo) IsEmailExist(email string) error {
	var count int64
	err := a.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	if err != nil {
		return errors.Wrap(err, "gorm count error")
	}
	if count > 0 {
		return errors.New("email already in use")
	}
	return nil
}

func (a *authRepo) FindUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := a.DB.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrap(ErrNotFound, "user")
		}
		return nil, errors.Wrap(err, "find user by email")
	}
	return &user, nil
}

func (a *authRepo) FindUserByID(id uint) (*models.User, error) {
	var user models.User
	err := a.DB.Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrap(ErrNotFound, "user")
		}
		return nil, errors.Wrap(err, "find user by id")
	}
	return &user, nil
}

func (a *authRepo) EditUserProfile(userID uint, details *models.EditProfileRequest) (*models.User, error) {
	user, err := a.FindUserByID(userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if details.FirstName != nil && *details.FirstName != "" {
		updates["first_name"] = *details.FirstName
	}
	if details.LastName != nil && *details.LastName != "" {
		updates["last_name"] = *details.LastName
	}
	if details.Phone != nil {
		updates["phone"] = *details.Phone
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := a.DB.Model(user).Updates(updates).Error; err != nil {
		return nil, errors.Wrap(err, "edit user profile")
	}
	return a.FindUserByID(userID)
}

func (a *authRepo) UpsertUserImage(userID uint, key string) error {
	result := a.DB.Model(&models.User{}).Where("id = ?", userID).Update("profile_picture", key)
	if result.Error != nil {
		return errors.Wrap(result.Error, "update profile picture")
	}
	if result.RowsAffected == 0 {
		return errors.Wrap(ErrNotFound, "user")
	}
	return nil
}

func (a *authRepo) SetAdmin(email string, isAdmin bool) error {
	result := a.DB.Model(&models.User{}).Where("email = ?", email).Update("is_admin", isAdmin)
	if result.Error != nil {
		return errors.Wrap(result.Error, "set admin")
	}
	if result.RowsAffected == 0 {
		return errors.Wrap(ErrNotFound, "user")
	}
	return nil
}

func (a *authRepo) UpdatePassword(email, hashedPassword string) error {
	result := a.DB.Model(&models.User{}).Where("email = ?", email).Update("hashed_password", hashedPassword)
	if result.Error != nil {
		return errors.Wrap(result.Error, "update password")
	}
	if result.RowsAffected == 0 {
		return errors.Wrap(ErrNotFound, "user")
	}
	return nil
}

func (a *authRepo) GetAllUsers() ([]models.User, error) {
	var users []models.User
	if err := a.DB.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	return users, nil
}

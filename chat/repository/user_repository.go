package repository

import (
	"github.com/anargu/StockChatRoomWeb/chat/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uuid.UUID) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	GetOrCreateBot(username, email string) (*models.User, error)
}

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *GormUserRepository) GetByID(id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "username = ?", username).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetOrCreateBot returns the bot user, creating it on first use. A
// unique-constraint race with a concurrent creator resolves by
// re-reading the winner's row.
func (r *GormUserRepository) GetOrCreateBot(username, email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("username = ?", username).
		Attrs(models.User{Email: email, PasswordHash: "-", IsBot: true}).
		FirstOrCreate(&user).Error
	if err != nil {
		// A concurrent creator may have won the unique-index race.
		if existing, lookupErr := r.GetByUsername(username); lookupErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return &user, nil
}

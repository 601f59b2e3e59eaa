package repository

import (
	"github.com/anargu/StockChatRoomWeb/chat/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatRoomRepository interface {
	Create(room *models.ChatRoom) error
	GetByID(id uuid.UUID) (*models.ChatRoom, error)
	GetByName(name string) (*models.ChatRoom, error)
	List() ([]models.ChatRoom, error)
}

type GormChatRoomRepository struct {
	db *gorm.DB
}

func NewGormChatRoomRepository(db *gorm.DB) *GormChatRoomRepository {
	return &GormChatRoomRepository{db: db}
}

func (r *GormChatRoomRepository) Create(room *models.ChatRoom) error {
	return r.db.Create(room).Error
}

func (r *GormChatRoomRepository) GetByID(id uuid.UUID) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := r.db.First(&room, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *GormChatRoomRepository) GetByName(name string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := r.db.First(&room, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *GormChatRoomRepository) List() ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := r.db.Order("created_at ASC").Find(&rooms).Error
	return rooms, err
}

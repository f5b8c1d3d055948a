package session

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"diamond_shop/internal/model"
)

// ErrNotFound 会话不存在（token 无效或已登出）。
var ErrNotFound = errors.New("session not found")

// Store 本地会话存储。登录时写入一行，登出时删除，请求期间按
// token 解析——显式的会话生命周期，替代隐式的全局当前用户。
type Store struct {
	db *gorm.DB
}

// NewStore 创建会话存储并建表。
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&model.Session{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Create 为一次成功登录签发会话。is_admin 来自后端用户记录，
// 此后在本地只读。
func (s *Store) Create(user model.User) (model.Session, error) {
	sess := model.Session{
		Token:    uuid.New().String(),
		UserID:   user.ID.Int64(),
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
	}
	if err := s.db.Create(&sess).Error; err != nil {
		return model.Session{}, err
	}
	return sess, nil
}

// Get 按 token 解析会话。
func (s *Store) Get(token string) (model.Session, error) {
	var sess model.Session
	err := s.db.Where("token = ?", token).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Session{}, ErrNotFound
	}
	if err != nil {
		return model.Session{}, err
	}
	return sess, nil
}

// Delete 登出：删除会话行。token 不存在也算成功（幂等）。
func (s *Store) Delete(token string) error {
	return s.db.Where("token = ?", token).Delete(&model.Session{}).Error
}

package model

import "time"

// User 后端用户的临时副本，只用于会话展示与鉴权判断。
// is_admin 在注册后不可变，网关绝不在本地修改它。
type User struct {
	ID       FlexInt `json:"id"`
	Username string  `json:"username"`
	IsAdmin  bool    `json:"is_admin"`
}

// Session 网关本地持久化的登录会话。
// 取代原来散落在页面状态里的"当前用户"：登录时创建，登出时删除，
// 每个请求通过 token 显式解析出身份。
type Session struct {
	Token     string    `gorm:"primaryKey;size:64" json:"token"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	Username  string    `gorm:"size:128;not null" json:"username"`
	IsAdmin   bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func (Session) TableName() string { return "sessions" }

// User 还原会话对应的用户副本。
func (s Session) User() User {
	return User{ID: FlexInt(s.UserID), Username: s.Username, IsAdmin: s.IsAdmin}
}

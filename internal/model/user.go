package model

import "time"

// User 表示系统用户。
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`                          // 用户 ID
	Username       string    `gorm:"type:varchar(191);uniqueIndex" json:"username"` // 用户名（邮箱，唯一）
	Password       string    `gorm:"not null" json:"-"`                             // bcrypt 哈希，不参与 JSON 序列化
	Firstname      string    `gorm:"type:varchar(64)" json:"firstname"`             // 名
	Lastname       string    `gorm:"type:varchar(64)" json:"lastname"`              // 姓
	HoursCompleted float64   `gorm:"default:0" json:"hourscompleted"`               // 累计已完成时长
	HoursTarget    float64   `gorm:"default:0" json:"hourstarget"`                  // 目标时长
	CreatedAt      time.Time `json:"created_at"`                                    // 创建时间

	Goals []Goal `gorm:"foreignKey:UserID" json:"-"`
}

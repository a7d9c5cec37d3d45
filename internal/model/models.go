package model

import (
	"time"
)

// Goal 表示用户设定的一个长期目标。
//
// 每个目标都归属于某个用户（UserID），并且可以拆分为若干任务。
// UserID 在创建后不可变更，所有权校验以它为准。
type Goal struct {
	ID        uint      `gorm:"primaryKey" json:"id"` // 目标唯一标识
	CreatedAt time.Time `json:"created_at"`           // 创建时间
	UpdatedAt time.Time `json:"updated_at"`           // 更新时间

	UserID uint `gorm:"not null;index" json:"userid"` // 所属用户 ID
	User   User `gorm:"foreignKey:UserID" json:"-"`   // 所属用户

	Goalname       string  `gorm:"not null" json:"goalname"`              // 目标名称
	Goalbrief      string  `json:"goalbrief"`                             // 目标简述
	IsCompleted    bool    `gorm:"default:false" json:"iscompleted"`      // 是否已完成（由调用方设置，不根据时长推导）
	PriorityOrder  string  `gorm:"type:varchar(32)" json:"priorityorder"` // 优先级（字符串，沿用前端约定）
	HoursTarget    float64 `gorm:"default:0" json:"hourstarget"`          // 目标时长
	HoursCompleted float64 `gorm:"default:0" json:"hourscompleted"`       // 已完成时长

	Tasks []Task `gorm:"foreignKey:GoalID" json:"-"` // 目标下的任务列表
}

// Task 表示目标下的一个具体任务。
//
// 任务只通过其父目标间接归属于用户，GoalID 创建后不可变更。
// 对任务的任何操作都必须先完成父目标的所有权校验。
type Task struct {
	ID        uint      `gorm:"primaryKey" json:"id"` // 任务唯一标识
	CreatedAt time.Time `json:"created_at"`           // 创建时间
	UpdatedAt time.Time `json:"updated_at"`           // 更新时间

	GoalID uint `gorm:"not null;index" json:"goalid"` // 所属目标 ID

	Taskname    string  `gorm:"not null" json:"taskname"`         // 任务名称
	Taskbrief   string  `json:"taskbrief"`                        // 任务简述
	HoursTarget float64 `gorm:"default:0" json:"hourstarget"`     // 目标时长
	IsCompleted bool    `gorm:"default:false" json:"iscompleted"` // 是否已完成
}

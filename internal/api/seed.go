package api

import (
	"context"
	"errors"

	"goaltrail/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedDemoData 初始化演示账号及示例数据。
func (s *Server) SeedDemoData(ctx context.Context) error {
	const demoUsername = "demo@goaltrail.app"

	var user model.User
	err := s.db.WithContext(ctx).Where("username = ?", demoUsername).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hash, hashErr := bcrypt.GenerateFromPassword([]byte("demo-password"), bcrypt.DefaultCost)
		if hashErr != nil {
			return hashErr
		}
		user = model.User{
			Username:  demoUsername,
			Password:  string(hash),
			Firstname: "Demo",
			Lastname:  "User",
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return err
		}
	}

	var goal model.Goal
	goalErr := s.db.WithContext(ctx).
		Where("user_id = ? AND goalname = ?", user.ID, "Learn Go").
		First(&goal).Error
	if goalErr != nil && !errors.Is(goalErr, gorm.ErrRecordNotFound) {
		return goalErr
	}
	if errors.Is(goalErr, gorm.ErrRecordNotFound) {
		goal = model.Goal{
			UserID:        user.ID,
			Goalname:      "Learn Go",
			Goalbrief:     "Work through the language, then build something real",
			PriorityOrder: "1",
			HoursTarget:   40,
		}
		if err := s.db.WithContext(ctx).Create(&goal).Error; err != nil {
			return err
		}
		task := model.Task{
			GoalID:      goal.ID,
			Taskname:    "Finish the Tour of Go",
			Taskbrief:   "All exercises included",
			HoursTarget: 6,
		}
		if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
			return err
		}
	}

	return nil
}

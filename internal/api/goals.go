package api

import (
	"errors"
	"log/slog"
	"net/http"

	"goaltrail/internal/api/middleware"
	"goaltrail/internal/api/ownership"
	"goaltrail/internal/model"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// createGoalRequest 创建目标的请求参数。
type createGoalRequest struct {
	Goalname      string `json:"goalname" binding:"required"`
	Goalbrief     string `json:"goalbrief" binding:"required"`
	PriorityOrder string `json:"priorityorder" binding:"required"`
}

// updateGoalRequest 局部更新：出现在请求体中的字段才会被写入，
// 显式传 false / 空串也会生效。
type updateGoalRequest struct {
	Goalname       *string  `json:"goalname"`
	Goalbrief      *string  `json:"goalbrief"`
	PriorityOrder  *string  `json:"priorityorder"`
	IsCompleted    *bool    `json:"iscompleted"`
	HoursTarget    *float64 `json:"hourstarget"`
	HoursCompleted *float64 `json:"hourscompleted"`
}

// handleCreateGoal 为当前用户创建目标。
//
// POST /goals/
func (s *Server) handleCreateGoal(c *gin.Context) {
	var req createGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusLengthRequired, gin.H{"message": "Incorrect Inputs"})
		return
	}
	userID := middleware.UserID(c)

	goal := model.Goal{
		UserID:        userID,
		Goalname:      req.Goalname,
		Goalbrief:     req.Goalbrief,
		PriorityOrder: req.PriorityOrder,
		IsCompleted:   false,
	}
	if err := s.db.WithContext(c.Request.Context()).Create(&goal).Error; err != nil {
		s.logger.Error("create goal failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal Server Error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Db entry made!"})
}

// handleListGoals 返回当前用户的所有目标。
//
// GET /goals/
func (s *Server) handleListGoals(c *gin.Context) {
	userID := middleware.UserID(c)

	goals := []model.Goal{} // 保证序列化为 [] 而不是 null
	if err := s.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("id").
		Find(&goals).Error; err != nil {
		s.logger.Error("list goals failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, goals)
}

// handleGetGoal 返回指定目标。
//
// GET /goals/:goalid
func (s *Server) handleGetGoal(c *gin.Context) {
	userID := middleware.UserID(c)

	goal, err := s.resolver.ResolveGoal(c.Request.Context(), userID, c.Param("goalid"))
	if err != nil {
		s.respondResolveError(c, err, "Goal not found")
		return
	}

	c.JSON(http.StatusOK, goal)
}

// handleUpdateGoal 局部更新目标字段。所属用户不可变更。
//
// PUT /goals/:goalid
func (s *Server) handleUpdateGoal(c *gin.Context) {
	userID := middleware.UserID(c)

	goal, err := s.resolver.ResolveGoal(c.Request.Context(), userID, c.Param("goalid"))
	if err != nil {
		s.respondResolveError(c, err, "Goal not found or unauthorized")
		return
	}

	var req updateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusLengthRequired, gin.H{"message": "Incorrect Inputs"})
		return
	}

	updates := map[string]interface{}{}
	if req.Goalname != nil {
		updates["goalname"] = *req.Goalname
	}
	if req.Goalbrief != nil {
		updates["goalbrief"] = *req.Goalbrief
	}
	if req.PriorityOrder != nil {
		updates["priority_order"] = *req.PriorityOrder
	}
	if req.IsCompleted != nil {
		updates["is_completed"] = *req.IsCompleted
	}
	if req.HoursTarget != nil {
		updates["hours_target"] = *req.HoursTarget
	}
	if req.HoursCompleted != nil {
		updates["hours_completed"] = *req.HoursCompleted
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(c.Request.Context()).
			Model(&model.Goal{}).
			Where("id = ? AND user_id = ?", goal.ID, userID).
			Updates(updates).Error; err != nil {
			s.logger.Error("update goal failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
			return
		}
		if err := s.db.WithContext(c.Request.Context()).First(goal, goal.ID).Error; err != nil {
			s.logger.Error("reload goal failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Goal updated successfully", "goal": goal})
}

// handleDeleteGoal 删除目标及其所有任务。
//
// DELETE /goals/:goalid
//
// 先删任务再删目标，放在同一事务里，不会留下孤儿任务。
func (s *Server) handleDeleteGoal(c *gin.Context) {
	userID := middleware.UserID(c)

	goal, err := s.resolver.ResolveGoal(c.Request.Context(), userID, c.Param("goalid"))
	if err != nil {
		s.respondResolveError(c, err, "Goal not found or unauthorized")
		return
	}

	err = s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("goal_id = ?", goal.ID).Delete(&model.Task{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND user_id = ?", goal.ID, userID).Delete(&model.Goal{}).Error
	})
	if err != nil {
		s.logger.Error("delete goal failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Goal and associated tasks deleted successfully"})
}

// respondResolveError 把解析器错误映射为 HTTP 响应。
func (s *Server) respondResolveError(c *gin.Context, err error, notFoundMsg string) {
	if errors.Is(err, ownership.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": notFoundMsg})
		return
	}
	s.logger.Error("ownership resolve failed", slog.String("error", err.Error()))
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
}

package api

import (
	"log/slog"
	"net/http"

	"goaltrail/internal/api/middleware"
	"goaltrail/internal/model"

	"github.com/gin-gonic/gin"
)

// createTaskRequest 创建任务的请求参数。
type createTaskRequest struct {
	Taskname    string  `json:"taskname" binding:"required"`
	Taskbrief   string  `json:"taskbrief"`
	HoursTarget float64 `json:"hourstarget"`
	IsCompleted bool    `json:"iscompleted"`
}

// updateTaskRequest 局部更新，语义同 updateGoalRequest。
type updateTaskRequest struct {
	Taskname    *string  `json:"taskname"`
	Taskbrief   *string  `json:"taskbrief"`
	HoursTarget *float64 `json:"hourstarget"`
	IsCompleted *bool    `json:"iscompleted"`
}

// handleCreateTask 在目标下创建任务。
//
// POST /tasks/:goalid
//
// 与其余任务操作一样，先走 ResolveGoal 的所有权校验。
func (s *Server) handleCreateTask(c *gin.Context) {
	userID := middleware.UserID(c)

	goal, err := s.resolver.ResolveGoal(c.Request.Context(), userID, c.Param("goalid"))
	if err != nil {
		s.respondResolveError(c, err, "Goal not found or unauthorized")
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusLengthRequired, gin.H{"message": "Incorrect Inputs"})
		return
	}

	task := model.Task{
		GoalID:      goal.ID,
		Taskname:    req.Taskname,
		Taskbrief:   req.Taskbrief,
		HoursTarget: req.HoursTarget,
		IsCompleted: req.IsCompleted,
	}
	if err := s.db.WithContext(c.Request.Context()).Create(&task).Error; err != nil {
		s.logger.Error("create task failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Task created successfully", "task": task})
}

// handleListTasks 返回目标下的所有任务。
//
// GET /tasks/:goalid
func (s *Server) handleListTasks(c *gin.Context) {
	userID := middleware.UserID(c)

	goal, err := s.resolver.ResolveGoal(c.Request.Context(), userID, c.Param("goalid"))
	if err != nil {
		s.respondResolveError(c, err, "Goal not found or unauthorized")
		return
	}

	tasks := []model.Task{} // 保证序列化为 [] 而不是 null
	if err := s.db.WithContext(c.Request.Context()).
		Where("goal_id = ?", goal.ID).
		Order("id").
		Find(&tasks).Error; err != nil {
		s.logger.Error("list tasks failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, tasks)
}

// handleGetTask 返回目标下的指定任务。
//
// GET /tasks/:goalid/:taskid
func (s *Server) handleGetTask(c *gin.Context) {
	userID := middleware.UserID(c)

	_, task, err := s.resolver.ResolveTask(c.Request.Context(), userID, c.Param("goalid"), c.Param("taskid"))
	if err != nil {
		s.respondResolveError(c, err, "Task not found")
		return
	}

	c.JSON(http.StatusOK, task)
}

// handleUpdateTask 局部更新任务，返回更新后的记录。所属目标不可变更。
//
// PUT /tasks/:goalid/:taskid
func (s *Server) handleUpdateTask(c *gin.Context) {
	userID := middleware.UserID(c)

	_, task, err := s.resolver.ResolveTask(c.Request.Context(), userID, c.Param("goalid"), c.Param("taskid"))
	if err != nil {
		s.respondResolveError(c, err, "Task not found")
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusLengthRequired, gin.H{"message": "Incorrect Inputs"})
		return
	}

	updates := map[string]interface{}{}
	if req.Taskname != nil {
		updates["taskname"] = *req.Taskname
	}
	if req.Taskbrief != nil {
		updates["taskbrief"] = *req.Taskbrief
	}
	if req.HoursTarget != nil {
		updates["hours_target"] = *req.HoursTarget
	}
	if req.IsCompleted != nil {
		updates["is_completed"] = *req.IsCompleted
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(c.Request.Context()).
			Model(&model.Task{}).
			Where("id = ? AND goal_id = ?", task.ID, task.GoalID).
			Updates(updates).Error; err != nil {
			s.logger.Error("update task failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
			return
		}
		if err := s.db.WithContext(c.Request.Context()).First(task, task.ID).Error; err != nil {
			s.logger.Error("reload task failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task updated successfully", "task": task})
}

// handleDeleteTask 删除目标下的指定任务。
//
// DELETE /tasks/:goalid/:taskid
func (s *Server) handleDeleteTask(c *gin.Context) {
	userID := middleware.UserID(c)

	_, task, err := s.resolver.ResolveTask(c.Request.Context(), userID, c.Param("goalid"), c.Param("taskid"))
	if err != nil {
		s.respondResolveError(c, err, "Task not found")
		return
	}

	if err := s.db.WithContext(c.Request.Context()).
		Where("id = ? AND goal_id = ?", task.ID, task.GoalID).
		Delete(&model.Task{}).Error; err != nil {
		s.logger.Error("delete task failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

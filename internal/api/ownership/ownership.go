package ownership

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"goaltrail/internal/model"
	"goaltrail/internal/pkg/metrics"

	"gorm.io/gorm"
)

// ErrNotFound 资源不存在、ID 非法或归属他人。
//
// 三种情况刻意不做区分，调用方无法从响应推断资源是否存在。
var ErrNotFound = errors.New("resource not found")

// Resolver 校验 用户→目标→任务 的所有权链。
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// ResolveGoal 查找属于 userID 的目标。
//
// goalID 非法、目标不存在、目标属于其他用户，统一返回 ErrNotFound；
// 数据库故障原样返回（上层以 500 响应）。
func (r *Resolver) ResolveGoal(ctx context.Context, userID uint, goalID string) (*model.Goal, error) {
	id, ok := parseID(goalID)
	if !ok {
		miss("goal")
		return nil, ErrNotFound
	}

	var goal model.Goal
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&goal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			miss("goal")
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("resolve goal: %w", err)
	}
	return &goal, nil
}

// ResolveTask 查找目标下的任务。
//
// 必须先通过 ResolveGoal 的所有权校验，之后再按 (taskID, goalID) 查找任务；
// 任何任务操作都不允许跳过第一步，即使这意味着每次请求多一次查询。
func (r *Resolver) ResolveTask(ctx context.Context, userID uint, goalID, taskID string) (*model.Goal, *model.Task, error) {
	goal, err := r.ResolveGoal(ctx, userID, goalID)
	if err != nil {
		return nil, nil, err
	}

	id, ok := parseID(taskID)
	if !ok {
		miss("task")
		return nil, nil, ErrNotFound
	}

	var task model.Task
	err = r.db.WithContext(ctx).
		Where("id = ? AND goal_id = ?", id, goal.ID).
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			miss("task")
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("resolve task: %w", err)
	}
	return goal, &task, nil
}

func parseID(s string) (uint, bool) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func miss(resource string) {
	if metrics.OwnershipMissTotal != nil {
		metrics.OwnershipMissTotal.WithLabelValues(resource).Inc()
	}
}

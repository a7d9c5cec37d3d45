package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"goaltrail/internal/model"

	"github.com/gin-gonic/gin"
)

// createGoal 通过 API 创建目标并返回其 ID。
func createGoal(t *testing.T, s *Server, bearer, name string) uint {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/api/v1/goals/", bearer, gin.H{
		"goalname":      name,
		"goalbrief":     "...",
		"priorityorder": "1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create goal: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodGet, "/api/v1/goals/", bearer, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list goals: expected 200, got %d", w.Code)
	}
	var goals []model.Goal
	if err := json.Unmarshal(w.Body.Bytes(), &goals); err != nil {
		t.Fatalf("decode goals: %v", err)
	}
	for _, g := range goals {
		if g.Goalname == name {
			return g.ID
		}
	}
	t.Fatalf("created goal %q not in list: %+v", name, goals)
	return 0
}

func TestCreateGoal_RoundTrip(t *testing.T) {
	s := newTestServer(t)
	tok := signupUser(t, s, "a@b.com")

	goalID := createGoal(t, s, tok, "Learn Go")

	w := doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/v1/goals/%d", goalID), tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get goal: expected 200, got %d", w.Code)
	}
	var goal model.Goal
	if err := json.Unmarshal(w.Body.Bytes(), &goal); err != nil {
		t.Fatalf("decode goal: %v", err)
	}
	if goal.Goalname != "Learn Go" || goal.Goalbrief != "..." || goal.PriorityOrder != "1" {
		t.Fatalf("caller fields lost: %+v", goal)
	}
	// 服务端默认值
	if goal.IsCompleted || goal.HoursTarget != 0 || goal.HoursCompleted != 0 {
		t.Fatalf("unexpected defaults: %+v", goal)
	}
}

func TestCreateGoal_InvalidInputs(t *testing.T) {
	s := newTestServer(t)
	tok := signupUser(t, s, "a@b.com")

	w := doJSON(t, s, http.MethodPost, "/api/v1/goals/", tok, gin.H{"goalname": "no brief"})
	if w.Code != http.StatusLengthRequired {
		t.Fatalf("expected 411, got %d", w.Code)
	}
}

func TestListGoals_EmptyIsArray(t *testing.T) {
	s := newTestServer(t)
	tok := signupUser(t, s, "a@b.com")

	w := doJSON(t, s, http.MethodGet, "/api/v1/goals/", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "[]" {
		t.Fatalf("expected empty array, got %s", w.Body.String())
	}
}

// 别人的目标与不存在的目标必须不可区分。
func TestGetGoal_ForeignUserSeesNotFound(t *testing.T) {
	s := newTestServer(t)
	owner := signupUser(t, s, "owner@b.com")
	other := signupUser(t, s, "other@b.com")

	goalID := createGoal(t, s, owner, "Learn Go")

	foreign := doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/v1/goals/%d", goalID), other, nil)
	missing := doJSON(t, s, http.MethodGet, "/api/v1/goals/999999", other, nil)

	if foreign.Code != http.StatusNotFound || missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404/404, got %d/%d", foreign.Code, missing.Code)
	}
	if foreign.Body.String() != missing.Body.String() {
		t.Fatalf("foreign and missing must be indistinguishable: %q vs %q",
			foreign.Body.String(), missing.Body.String())
	}
}

func TestGetGoal_MalformedID(t *testing.T) {
	s := newTestServer(t)
	tok := signupUser(t, s, "a@b.com")

	w := doJSON(t, s, http.MethodGet, "/api/v1/goals/not-a-number", tok, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for malformed id, got %d", w.Code)
	}
}

func TestUpdateGoal_PartialAndFalsyFields(t *testing.T) {
	s := newTestServer(t)
	tok := signupUser(t, s, "a@b.com")
	goalID := createGoal(t, s, tok, "Learn Go")

	// 先置为完成
	w := doJSON(t, s, http.MethodPut, fmt.Sprintf("/api/v1/goals/%d", goalID), tok, gin.H{
		"iscompleted": true,
		"hourstarget": 40,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	// 显式传 false 也必须生效，未提及的字段保持不变
	w = doJSON(t, s, http.MethodPut, fmt.Sprintf("/api/v1/goals/%d", goalID), tok, gin.H{
		"iscompleted": false,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("second update: expected 200, got %d", w.Code)
	}

	var resp struct {
		Goal model.Goal `json:"goal"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode update response: %v", err)
	}
	if resp.Goal.IsCompleted {
		t.Fatalf("iscompleted=false was not applied")
	}
	if resp.Goal.HoursTarget != 40 {
		t.Fatalf("untouched field changed: %+v", resp.Goal)
	}
	if resp.Goal.Goalname != "Learn Go" {
		t.Fatalf("untouched field changed: %+v", resp.Goal)
	}
}

func TestUpdateGoal_ForeignUserSeesNotFound(t *testing.T) {
	s := newTestServer(t)
	owner := signupUser(t, s, "owner@b.com")
	other := signupUser(t, s, "other@b.com")
	goalID := createGoal(t, s, owner, "Learn Go")

	w := doJSON(t, s, http.MethodPut, fmt.Sprintf("/api/v1/goals/%d", goalID), other, gin.H{
		"goalname": "hijacked",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	// 原记录未被改动
	w = doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/v1/goals/%d", goalID), owner, nil)
	var goal model.Goal
	if err := json.Unmarshal(w.Body.Bytes(), &goal); err != nil {
		t.Fatalf("decode goal: %v", err)
	}
	if goal.Goalname != "Learn Go" {
		t.Fatalf("goal was modified by non-owner: %+v", goal)
	}
}

func TestDeleteGoal(t *testing.T) {
	s := newTestServer(t)
	tok := signupUser(t, s, "a@b.com")
	goalID := createGoal(t, s, tok, "Learn Go")

	w := doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/v1/goals/%d", goalID), tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", w.Code)
	}

	w = doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/v1/goals/%d", goalID), tok, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"goaltrail/internal/api/auth"
	"goaltrail/internal/api/ownership"
	"goaltrail/internal/api/token"
	"goaltrail/internal/config"
	"goaltrail/internal/model"
	"goaltrail/internal/pkg/metrics"
	"goaltrail/internal/pkg/revoke"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Goal{}, &model.Task{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	tokens := token.NewService("test-secret", time.Hour)
	denylist := revoke.NewDenylist(rdb)

	s := &Server{
		cfg:      &config.Config{App: config.AppConfig{TokenTTL: time.Hour}},
		logger:   logger,
		db:       db,
		rdb:      rdb,
		router:   gin.New(),
		tokens:   tokens,
		denylist: denylist,
		resolver: ownership.NewResolver(db),
		auth:     auth.NewHandler(db, tokens, denylist, nil, logger),
	}
	s.registerRoutes()
	return s
}

// doJSON 发送一个 JSON 请求，token 为空表示匿名。
func doJSON(t *testing.T, s *Server, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// signupUser 注册用户并返回其身份令牌。
func signupUser(t *testing.T, s *Server, username string) string {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/api/v1/users/signup", "", gin.H{
		"username":  username,
		"firstname": "A",
		"lastname":  "B",
		"password":  "x",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("signup %s: expected 200, got %d (%s)", username, w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("signup returned no token")
	}
	return resp.Token
}

func TestSignup_RepeatIsConflict(t *testing.T) {
	s := newTestServer(t)

	signupUser(t, s, "a@b.com")

	w := doJSON(t, s, http.MethodPost, "/api/v1/users/signup", "", gin.H{
		"username":  "a@b.com",
		"firstname": "A",
		"lastname":  "B",
		"password":  "x",
	})
	if w.Code != http.StatusLengthRequired {
		t.Fatalf("expected 411 on duplicate signup, got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("User already present")) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestSignup_InvalidInputs(t *testing.T) {
	s := newTestServer(t)

	cases := []gin.H{
		{"username": "not-an-email", "firstname": "A", "lastname": "B", "password": "x"},
		{"username": "a@b.com", "firstname": "A", "lastname": "B"}, // 缺 password
		{},
	}
	for i, body := range cases {
		w := doJSON(t, s, http.MethodPost, "/api/v1/users/signup", "", body)
		if w.Code != http.StatusLengthRequired {
			t.Fatalf("case %d: expected 411, got %d", i, w.Code)
		}
		if !bytes.Contains(w.Body.Bytes(), []byte("Incorrect Inputs")) {
			t.Fatalf("case %d: unexpected body: %s", i, w.Body.String())
		}
	}
}

func TestSignin_NeverLeaksWhichCredentialFailed(t *testing.T) {
	s := newTestServer(t)
	signupUser(t, s, "a@b.com")

	wrongPass := doJSON(t, s, http.MethodPost, "/api/v1/users/signin", "", gin.H{
		"username": "a@b.com", "password": "wrong",
	})
	unknownUser := doJSON(t, s, http.MethodPost, "/api/v1/users/signin", "", gin.H{
		"username": "nobody@b.com", "password": "x",
	})

	if wrongPass.Code != http.StatusLengthRequired || unknownUser.Code != http.StatusLengthRequired {
		t.Fatalf("expected 411/411, got %d/%d", wrongPass.Code, unknownUser.Code)
	}
	if wrongPass.Body.String() != unknownUser.Body.String() {
		t.Fatalf("responses must be indistinguishable: %q vs %q", wrongPass.Body.String(), unknownUser.Body.String())
	}
}

func TestSignin_Success(t *testing.T) {
	s := newTestServer(t)
	signupUser(t, s, "a@b.com")

	w := doJSON(t, s, http.MethodPost, "/api/v1/users/signin", "", gin.H{
		"username": "a@b.com", "password": "x",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("expected a fresh token, got %s", w.Body.String())
	}
}

func TestGetProfile(t *testing.T) {
	s := newTestServer(t)
	tok := signupUser(t, s, "a@b.com")

	w := doJSON(t, s, http.MethodGet, "/api/v1/users/", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var users []model.User
	if err := json.Unmarshal(w.Body.Bytes(), &users); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if len(users) != 1 || users[0].Username != "a@b.com" {
		t.Fatalf("unexpected profile: %+v", users)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("password")) {
		t.Fatalf("password must not appear in profile JSON: %s", w.Body.String())
	}
}

func TestAuthenticatedRoutesRejectAnonymous(t *testing.T) {
	s := newTestServer(t)

	paths := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/v1/users/"},
		{http.MethodGet, "/api/v1/goals/"},
		{http.MethodPost, "/api/v1/goals/"},
		{http.MethodGet, "/api/v1/tasks/1"},
	}
	for _, p := range paths {
		w := doJSON(t, s, p.method, p.path, "", nil)
		if w.Code != http.StatusForbidden {
			t.Fatalf("%s %s: expected 403 for anonymous request, got %d", p.method, p.path, w.Code)
		}
	}
}

func TestSignout_RevokesToken(t *testing.T) {
	s := newTestServer(t)
	tok := signupUser(t, s, "a@b.com")

	w := doJSON(t, s, http.MethodPost, "/api/v1/users/signout", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("signout: expected 200, got %d", w.Code)
	}

	// 同一令牌随后被守卫拒绝
	w = doJSON(t, s, http.MethodGet, "/api/v1/users/", tok, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 after signout, got %d", w.Code)
	}
}

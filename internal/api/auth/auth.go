package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"goaltrail/internal/api/middleware"
	"goaltrail/internal/api/token"
	"goaltrail/internal/model"
	"goaltrail/internal/pkg/metrics"
	"goaltrail/internal/pkg/notify"
	"goaltrail/internal/pkg/revoke"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Handler 提供注册、登录与注销接口。
type Handler struct {
	db       *gorm.DB
	tokens   *token.Service
	denylist *revoke.Denylist
	mailer   *notify.EmailNotifier
	logger   *slog.Logger
}

// NewHandler 创建 Auth Handler。
func NewHandler(db *gorm.DB, tokens *token.Service, denylist *revoke.Denylist, mailer *notify.EmailNotifier, logger *slog.Logger) *Handler {
	return &Handler{
		db:       db,
		tokens:   tokens,
		denylist: denylist,
		mailer:   mailer,
		logger:   logger,
	}
}

type signupRequest struct {
	Username  string `json:"username" binding:"required,email"`
	Firstname string `json:"firstname" binding:"required"`
	Lastname  string `json:"lastname" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

type signinRequest struct {
	Username string `json:"username" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// Signup 创建新用户并签发身份令牌。
//
// POST /users/signup
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		signupOutcome("invalid_input")
		c.JSON(http.StatusLengthRequired, gin.H{"message": "Incorrect Inputs"})
		return
	}
	username := strings.TrimSpace(strings.ToLower(req.Username))

	var existing model.User
	err := h.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&existing).Error
	if err == nil {
		signupOutcome("conflict")
		c.JSON(http.StatusLengthRequired, gin.H{"message": "User already present"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	user := model.User{
		Username:  username,
		Password:  string(hash),
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		if h.logger != nil {
			h.logger.Error("create user failed", slog.String("username", username), slog.String("error", err.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	tok, err := h.tokens.Issue(user.ID)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("sign token failed", slog.String("username", username), slog.String("error", err.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	// 欢迎邮件尽力而为，失败只记日志
	if h.mailer != nil {
		if err := h.mailer.SendWelcome(username, user.Firstname); err != nil && h.logger != nil {
			h.logger.Warn("send welcome email failed", slog.String("username", username), slog.String("error", err.Error()))
		}
	}

	if h.logger != nil {
		h.logger.Info("user registered", slog.String("username", username))
	}
	signupOutcome("ok")
	c.JSON(http.StatusOK, tokenResponse{Message: "Sign up successful", Token: tok})
}

// Signin 校验用户名密码并签发新令牌。
//
// POST /users/signin
//
// 用户不存在与密码错误返回同一响应，不泄露二者区别。
func (h *Handler) Signin(c *gin.Context) {
	var req signinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusLengthRequired, gin.H{"message": "Incorrect Inputs"})
		return
	}
	username := strings.TrimSpace(strings.ToLower(req.Username))

	var user model.User
	if err := h.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&user).Error; err != nil {
		c.JSON(http.StatusLengthRequired, gin.H{"message": "Error while logging in"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusLengthRequired, gin.H{"message": "Error while logging in"})
		return
	}

	tok, err := h.tokens.Issue(user.ID)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("sign token failed", slog.String("username", username), slog.String("error", err.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	if h.logger != nil {
		h.logger.Info("user logged in", slog.String("username", username))
	}
	c.JSON(http.StatusOK, tokenResponse{Message: "Login Successful", Token: tok})
}

// Signout 将当前令牌加入吊销名单，有效期到令牌自然过期为止。
//
// POST /users/signout（需要认证）
func (h *Handler) Signout(c *gin.Context) {
	ident := middleware.Identity(c)
	if ident == nil || ident.TokenID == "" {
		// 旧令牌没有 jti，无法单独吊销
		c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
		return
	}

	ttl := time.Until(ident.ExpiresAt)
	if err := h.denylist.Revoke(c.Request.Context(), ident.TokenID, ttl); err != nil {
		if h.logger != nil {
			h.logger.Error("revoke token failed", slog.String("error", err.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

func signupOutcome(outcome string) {
	if metrics.SignupTotal != nil {
		metrics.SignupTotal.WithLabelValues(outcome).Inc()
	}
}

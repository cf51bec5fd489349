package service

import (
	"sync"

	"marketplace-backend/internal/errors"
	"marketplace-backend/internal/model"
	"marketplace-backend/internal/repository/interfaces"
	"marketplace-backend/internal/util"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	userRepo interfaces.UserRepository

	mu               sync.RWMutex
	blacklistedToken map[string]bool
}

func NewUserService(userRepo interfaces.UserRepository) *UserService {
	return &UserService{
		userRepo:         userRepo,
		blacklistedToken: make(map[string]bool),
	}
}

// Register 用户注册
func (s *UserService) Register(user *model.User, password string) error {
	existing, err := s.userRepo.FindByUsername(user.Username)
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, "查询用户失败", err)
	}
	if existing != nil {
		return errors.New(errors.ErrUserExists, "用户名已存在")
	}

	existing, err = s.userRepo.FindByEmail(user.Email)
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, "查询用户失败", err)
	}
	if existing != nil {
		return errors.New(errors.ErrUserExists, "邮箱已被注册")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(errors.ErrInternal, "密码哈希失败", err)
	}
	user.PasswordHash = string(hash)

	if err := s.userRepo.Create(user); err != nil {
		return errors.Wrap(errors.ErrDatabase, "创建用户失败", err)
	}

	util.Logger.Info("用户注册成功",
		zap.Int("user_id", user.ID),
		zap.String("username", user.Username))
	return nil
}

// Login 用户登录，成功返回 JWT
func (s *UserService) Login(username, password string) (string, *model.User, error) {
	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		return "", nil, errors.Wrap(errors.ErrDatabase, "查询用户失败", err)
	}
	if user == nil {
		return "", nil, errors.New(errors.ErrInvalidCredentials, "用户名或密码错误")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		util.Logger.Warn("登录密码错误", zap.String("username", username))
		return "", nil, errors.New(errors.ErrInvalidCredentials, "用户名或密码错误")
	}

	token, err := util.GenerateToken(user.ID)
	if err != nil {
		return "", nil, errors.Wrap(errors.ErrInternal, "生成令牌失败", err)
	}

	return token, user, nil
}

func (s *UserService) GetUserByID(id int) (*model.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "查询用户失败", err)
	}
	if user == nil {
		return nil, errors.New(errors.ErrUserNotFound, "用户不存在")
	}
	return user, nil
}

// BlacklistToken 登出时将令牌加入黑名单
func (s *UserService) BlacklistToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklistedToken[token] = true
}

func (s *UserService) IsTokenBlacklisted(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blacklistedToken[token]
}

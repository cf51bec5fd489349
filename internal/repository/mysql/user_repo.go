package mysql

import (
	"database/sql"
	"time"

	"marketplace-backend/internal/model"
	"marketplace-backend/internal/util"

	"go.uber.org/zap"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db}
}

func (r *UserRepository) Create(user *model.User) error {
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	if user.Role == "" {
		user.Role = "user"
	}

	query := `INSERT INTO users (username, email, password_hash, role, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?)`
	result, err := r.db.Exec(query,
		user.Username, user.Email, user.PasswordHash, user.Role,
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		util.Logger.Error("创建用户失败", zap.Error(err), zap.String("username", user.Username))
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = int(id)

	util.Logger.Info("用户创建成功", zap.Int("user_id", user.ID), zap.String("username", user.Username))
	return nil
}

const userColumns = `id, username, email, password_hash, role, created_at, updated_at, deleted_at`

func (r *UserRepository) scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.Role, &user.CreatedAt, &user.UpdatedAt, &user.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) FindByID(id int) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ? AND deleted_at IS NULL`
	return r.scanUser(r.db.QueryRow(query, id))
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ? AND deleted_at IS NULL`
	return r.scanUser(r.db.QueryRow(query, email))
}

func (r *UserRepository) FindByUsername(username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ? AND deleted_at IS NULL`
	return r.scanUser(r.db.QueryRow(query, username))
}

func (r *UserRepository) Update(user *model.User) error {
	query := `UPDATE users SET username = ?, email = ?, role = ?, updated_at = NOW() WHERE id = ?`
	_, err := r.db.Exec(query, user.Username, user.Email, user.Role, user.ID)
	if err != nil {
		util.Logger.Error("更新用户失败", zap.Error(err), zap.Int("user_id", user.ID))
	}
	return err
}

func (r *UserRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`).Scan(&count)
	return count, err
}

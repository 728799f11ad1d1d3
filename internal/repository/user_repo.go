package repository

import (
	"database/sql"
	"fmt"

	"github.com/Shady-Akhrass/rasras-plastic-sub001/internal/models"
	"go.uber.org/zap"
)

// UserRepository is the local user/role directory the engine resolves
// approvers against. Authentication and role management happen elsewhere;
// this repository only answers "who is user N and what role do they hold".
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// CreateRole creates a new role
func (r *UserRepository) CreateRole(tx *sql.Tx, role *models.Role) error {
	query := `INSERT INTO roles (name) VALUES (?)`

	var result sql.Result
	var err error

	if tx != nil {
		result, err = tx.Exec(query, role.Name)
	} else {
		result, err = r.db.Exec(query, role.Name)
	}

	if err != nil {
		r.logger.Error("Failed to create role", zap.String("name", role.Name), zap.Error(err))
		return fmt.Errorf("failed to create role: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	role.ID = id
	return nil
}

// CreateUser creates a new user
func (r *UserRepository) CreateUser(tx *sql.Tx, user *models.User) error {
	query := `INSERT INTO users (name, role_id) VALUES (?, ?)`

	var result sql.Result
	var err error

	if tx != nil {
		result, err = tx.Exec(query, user.Name, user.RoleID)
	} else {
		result, err = r.db.Exec(query, user.Name, user.RoleID)
	}

	if err != nil {
		r.logger.Error("Failed to create user", zap.String("name", user.Name), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	user.ID = id
	return nil
}

// GetByID retrieves a user by ID. Returns nil when not found.
func (r *UserRepository) GetByID(id int64) (*models.User, error) {
	query := `SELECT id, name, role_id FROM users WHERE id = ?`

	var user models.User
	err := r.db.QueryRow(query, id).Scan(&user.ID, &user.Name, &user.RoleID)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// GetRole retrieves a role by ID. Returns nil when not found.
func (r *UserRepository) GetRole(id int64) (*models.Role, error) {
	query := `SELECT id, name FROM roles WHERE id = ?`

	var role models.Role
	err := r.db.QueryRow(query, id).Scan(&role.ID, &role.Name)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get role by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	return &role, nil
}

// file: internal/repositories/user_repository.go
package repositories

import (
	"context"
	"fmt"
	"platewise/internal/database"
	"platewise/internal/models"

	"go.uber.org/zap"
)

// userRepository implements UserRepository
type userRepository struct {
	*BaseRepository
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Manager, logger *zap.Logger) UserRepository {
	return &userRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const userColumns = `
	id, email, username, password_hash, is_active,
	display_name, avatar_url, avatar_public_id, household_size, dietary_tags,
	role, created_at, updated_at, last_seen`

// Create inserts a new user account
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (
			email, username, password_hash, display_name,
			household_size, dietary_tags, role
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_active, created_at, updated_at, last_seen`

	err := r.QueryRowContext(
		ctx, query,
		user.Email, user.Username, user.PasswordHash, user.DisplayName,
		user.HouseholdSize, user.DietaryTags, user.Role,
	).Scan(&user.ID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt, &user.LastSeen)

	if err != nil {
		r.GetLogger().Error("Failed to create user",
			zap.Error(err),
			zap.String("username", user.Username),
		)
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by primary key
func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return r.getOne(ctx, query, id)
}

// GetByUsername retrieves a user by username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE username = $1`, userColumns)
	return r.getOne(ctx, query, username)
}

// GetByEmail retrieves a user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE LOWER(email) = LOWER($1)`, userColumns)
	return r.getOne(ctx, query, email)
}

// Update persists the editable profile fields
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET
			display_name = $1, avatar_url = $2, avatar_public_id = $3,
			household_size = $4, dietary_tags = $5, is_active = $6,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $7
		RETURNING updated_at`

	err := r.QueryRowContext(
		ctx, query,
		user.DisplayName, user.AvatarURL, user.AvatarPublicID,
		user.HouseholdSize, user.DietaryTags, user.IsActive,
		user.ID,
	).Scan(&user.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// UpdateLastSeen refreshes the activity timestamp
func (r *userRepository) UpdateLastSeen(ctx context.Context, userID int64) error {
	query := `UPDATE users SET last_seen = CURRENT_TIMESTAMP WHERE id = $1`
	_, err := r.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to update last seen: %w", err)
	}
	return nil
}

// Delete deactivates a user account
func (r *userRepository) Delete(ctx context.Context, id int64) error {
	query := `UPDATE users SET is_active = false, updated_at = CURRENT_TIMESTAMP WHERE id = $1`

	result, err := r.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

func (r *userRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	err := r.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.IsActive,
		&user.DisplayName, &user.AvatarURL, &user.AvatarPublicID,
		&user.HouseholdSize, &user.DietaryTags,
		&user.Role, &user.CreatedAt, &user.UpdatedAt, &user.LastSeen,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

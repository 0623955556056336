// file: internal/repositories/recipe_repository.go
package repositories

import (
	"context"
	"fmt"
	"platewise/internal/database"
	"platewise/internal/models"

	"go.uber.org/zap"
)

// recipeRepository implements RecipeRepository
type recipeRepository struct {
	*BaseRepository
}

// NewRecipeRepository creates a new recipe repository
func NewRecipeRepository(db *database.Manager, logger *zap.Logger) RecipeRepository {
	return &recipeRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const recipeSelect = `
	SELECT
		r.id, r.user_id, r.title, r.description, r.category, r.status,
		r.servings, r.cost_per_serving, r.time_minutes, r.tags,
		r.image_url, r.image_public_id, r.times_cooked,
		r.created_at, r.updated_at,
		u.username, u.display_name
	FROM recipes r
	INNER JOIN users u ON r.user_id = u.id`

// Create inserts a new recipe
func (r *recipeRepository) Create(ctx context.Context, recipe *models.Recipe) error {
	query := `
		INSERT INTO recipes (
			user_id, title, description, category, status,
			servings, cost_per_serving, time_minutes, tags,
			image_url, image_public_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	err := r.QueryRowContext(
		ctx, query,
		recipe.UserID, recipe.Title, recipe.Description, recipe.Category, recipe.Status,
		recipe.Servings, recipe.CostPerServing, recipe.TimeMinutes, recipe.Tags,
		recipe.ImageURL, recipe.ImagePublicID,
	).Scan(&recipe.ID, &recipe.CreatedAt, &recipe.UpdatedAt)

	if err != nil {
		r.GetLogger().Error("Failed to create recipe",
			zap.Error(err),
			zap.Int64("user_id", recipe.UserID),
			zap.String("title", recipe.Title),
		)
		return fmt.Errorf("failed to create recipe: %w", err)
	}
	return nil
}

// GetByID retrieves a recipe with author information. The optional userID
// resolves the IsOwner flag.
func (r *recipeRepository) GetByID(ctx context.Context, id int64, userID *int64) (*models.Recipe, error) {
	query := recipeSelect + ` WHERE r.id = $1 AND r.status != 'deleted'`

	recipe, err := r.scanRecipe(r.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	if userID != nil {
		recipe.IsOwner = recipe.UserID == *userID
	}
	return recipe, nil
}

// Update persists the editable recipe fields
func (r *recipeRepository) Update(ctx context.Context, recipe *models.Recipe) error {
	query := `
		UPDATE recipes SET
			title = $1, description = $2, category = $3, status = $4,
			servings = $5, cost_per_serving = $6, time_minutes = $7, tags = $8,
			image_url = $9, image_public_id = $10,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $11
		RETURNING updated_at`

	err := r.QueryRowContext(
		ctx, query,
		recipe.Title, recipe.Description, recipe.Category, recipe.Status,
		recipe.Servings, recipe.CostPerServing, recipe.TimeMinutes, recipe.Tags,
		recipe.ImageURL, recipe.ImagePublicID,
		recipe.ID,
	).Scan(&recipe.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to update recipe: %w", err)
	}
	return nil
}

// Delete soft-deletes a recipe. Completed cooking sessions keep their
// denormalized copy of the recipe metadata.
func (r *recipeRepository) Delete(ctx context.Context, id int64) error {
	query := `UPDATE recipes SET status = 'deleted', updated_at = CURRENT_TIMESTAMP WHERE id = $1`

	result, err := r.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("recipe not found")
	}
	return nil
}

// List returns published recipes with pagination
func (r *recipeRepository) List(ctx context.Context, params models.PaginationParams, userID *int64) (*models.PaginatedResponse[*models.Recipe], error) {
	whereClause := `r.status = 'published'`

	countQuery := `SELECT COUNT(*) FROM recipes r WHERE ` + whereClause
	total, err := r.GetTotalCount(ctx, countQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to count recipes: %w", err)
	}

	query, args := r.BuildPaginatedQuery(recipeSelect, whereClause, "r", params, 0)
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	recipes, err := r.collectRecipes(rows, userID)
	if err != nil {
		return nil, err
	}

	return &models.PaginatedResponse[*models.Recipe]{
		Data:       recipes,
		Pagination: r.BuildPaginationMeta(params, total),
	}, nil
}

// GetByUserID returns a user's own recipes, drafts included
func (r *recipeRepository) GetByUserID(ctx context.Context, userID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Recipe], error) {
	whereClause := `r.user_id = $1 AND r.status != 'deleted'`

	countQuery := `SELECT COUNT(*) FROM recipes r WHERE ` + whereClause
	total, err := r.GetTotalCount(ctx, countQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count user recipes: %w", err)
	}

	query, args := r.BuildPaginatedQuery(recipeSelect, whereClause, "r", params, 1)
	args = append([]interface{}{userID}, args...)

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list user recipes: %w", err)
	}
	defer rows.Close()

	recipes, err := r.collectRecipes(rows, &userID)
	if err != nil {
		return nil, err
	}

	return &models.PaginatedResponse[*models.Recipe]{
		Data:       recipes,
		Pagination: r.BuildPaginationMeta(params, total),
	}, nil
}

// IncrementTimesCooked bumps the engagement counter after a completed
// cooking session
func (r *recipeRepository) IncrementTimesCooked(ctx context.Context, recipeID int64) error {
	query := `UPDATE recipes SET times_cooked = times_cooked + 1 WHERE id = $1`
	_, err := r.ExecContext(ctx, query, recipeID)
	if err != nil {
		return fmt.Errorf("failed to increment times cooked: %w", err)
	}
	return nil
}

func (r *recipeRepository) scanRecipe(row rowScanner) (*models.Recipe, error) {
	var recipe models.Recipe
	err := row.Scan(
		&recipe.ID, &recipe.UserID, &recipe.Title, &recipe.Description,
		&recipe.Category, &recipe.Status,
		&recipe.Servings, &recipe.CostPerServing, &recipe.TimeMinutes, &recipe.Tags,
		&recipe.ImageURL, &recipe.ImagePublicID, &recipe.TimesCooked,
		&recipe.CreatedAt, &recipe.UpdatedAt,
		&recipe.Username, &recipe.DisplayName,
	)
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (r *recipeRepository) collectRecipes(rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}, userID *int64) ([]*models.Recipe, error) {
	recipes := make([]*models.Recipe, 0)
	for rows.Next() {
		recipe, err := r.scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		if userID != nil {
			recipe.IsOwner = recipe.UserID == *userID
		}
		recipes = append(recipes, recipe)
	}
	return recipes, rows.Err()
}

package repositories_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"productapi/internal/database"
	"productapi/internal/models"
	"productapi/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard, TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func productRepositories() map[string]func(t *testing.T) repositories.ProductRepository {
	return map[string]func(t *testing.T) repositories.ProductRepository{
		"memory": func(t *testing.T) repositories.ProductRepository {
			return repositories.NewMemoryProductRepository()
		},
		"gorm": func(t *testing.T) repositories.ProductRepository {
			return repositories.NewGORMProductRepository(openSQLite(t))
		},
	}
}

func TestProductRepository(t *testing.T) {
	for name, newRepo := range productRepositories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := newRepo(t)

			products, err := repo.GetAll(ctx)
			require.NoError(t, err)
			assert.NotNil(t, products)
			assert.Empty(t, products)

			desc := "Mechanical keyboard"
			first := &models.Product{Name: "Keyboard", Description: &desc, Price: "75.00"}
			second := &models.Product{Name: "Mouse", Price: "25.00"}
			require.NoError(t, repo.Create(ctx, first))
			require.NoError(t, repo.Create(ctx, second))
			assert.NotZero(t, first.ID)
			assert.NotEqual(t, first.ID, second.ID)

			got, err := repo.GetByID(ctx, first.ID)
			require.NoError(t, err)
			assert.Equal(t, "Keyboard", got.Name)
			require.NotNil(t, got.Description)
			assert.Equal(t, desc, *got.Description)
			assert.Equal(t, "75.00", got.Price)

			got.Name = "Keyboard Pro"
			got.Description = nil
			require.NoError(t, repo.Update(ctx, got))
			reloaded, err := repo.GetByID(ctx, first.ID)
			require.NoError(t, err)
			assert.Equal(t, "Keyboard Pro", reloaded.Name)
			assert.Nil(t, reloaded.Description)
			assert.Equal(t, "75.00", reloaded.Price)

			products, err = repo.GetAll(ctx)
			require.NoError(t, err)
			require.Len(t, products, 2)
			assert.Equal(t, first.ID, products[0].ID)
			assert.Equal(t, second.ID, products[1].ID)

			require.NoError(t, repo.Delete(ctx, second))
			_, err = repo.GetByID(ctx, second.ID)
			assert.ErrorIs(t, err, repositories.ErrProductNotFound)

			// A deleted product can be neither updated nor deleted again.
			assert.ErrorIs(t, repo.Update(ctx, second), repositories.ErrProductNotFound)
			assert.ErrorIs(t, repo.Delete(ctx, second), repositories.ErrProductNotFound)

			_, err = repo.GetByID(ctx, 9999)
			assert.ErrorIs(t, err, repositories.ErrProductNotFound)
		})
	}
}

func TestMemoryProductRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryProductRepository()

	desc := "original"
	product := &models.Product{Name: "A", Description: &desc}
	require.NoError(t, repo.Create(ctx, product))

	// Mutating the caller's value must not reach the stored record.
	desc = "mutated"
	got, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", *got.Description)

	*got.Description = "mutated again"
	again, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", *again.Description)
}

func TestUserRepository(t *testing.T) {
	userRepos := map[string]func(t *testing.T) repositories.UserRepository{
		"memory": func(t *testing.T) repositories.UserRepository {
			return repositories.NewMemoryUserRepository()
		},
		"gorm": func(t *testing.T) repositories.UserRepository {
			return repositories.NewGORMUserRepository(openSQLite(t))
		},
	}
	for name, newRepo := range userRepos {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := newRepo(t)

			user := &models.User{Email: "user@example.com", Password: "hash"}
			require.NoError(t, repo.Create(ctx, user))
			assert.NotEmpty(t, user.ID)

			byEmail, err := repo.GetByEmail(ctx, "user@example.com")
			require.NoError(t, err)
			assert.Equal(t, user.ID, byEmail.ID)

			byID, err := repo.GetByID(ctx, user.ID)
			require.NoError(t, err)
			assert.Equal(t, "user@example.com", byID.Email)

			err = repo.Create(ctx, &models.User{Email: "user@example.com", Password: "x"})
			assert.ErrorIs(t, err, repositories.ErrUserExists)

			_, err = repo.GetByEmail(ctx, "nobody@example.com")
			assert.ErrorIs(t, err, repositories.ErrUserNotFound)
		})
	}
}

// Package seed loads the demo catalog, an administrator and an approved test
// client with a populated cart and one completed order. Running it twice is a
// no-op for rows that already exist.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/arepera-backend/pkg/config"
	"github.com/angelmondragon/arepera-backend/pkg/db/models"
	"github.com/angelmondragon/arepera-backend/pkg/enums"
	"github.com/angelmondragon/arepera-backend/pkg/logger"
	"github.com/angelmondragon/arepera-backend/pkg/security"
)

const (
	TestClientEmail    = "cliente@arepas.com"
	TestClientName     = "Cliente de Prueba"
	TestClientPassword = "Cliente$2025"

	tempPasswordLength = 16
	testCartProduct    = "Arepa Reina Pepiada"
	testCartQuantity   = 2
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type Params struct {
	DB       txRunner
	Logger   *logger.Logger
	Seed     config.SeedConfig
	Password config.PasswordConfig
}

// Result reports what the run created. AdminPassword is only set when a
// temporary password had to be generated.
type Result struct {
	ProductsCreated   int
	AdminCreated      bool
	AdminPassword     string
	TestClientCreated bool
}

// Run seeds inside a single transaction.
func Run(ctx context.Context, params Params) (Result, error) {
	var result Result
	if params.DB == nil {
		return result, errors.New("db required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}

	err := params.DB.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := seedProducts(ctx, tx)
		if err != nil {
			return err
		}
		result.ProductsCreated = created

		adminCreated, tempPassword, err := seedAdmin(ctx, tx, params.Seed, params.Password)
		if err != nil {
			return err
		}
		result.AdminCreated = adminCreated
		result.AdminPassword = tempPassword

		clientCreated, err := seedTestClient(ctx, tx, params.Password)
		if err != nil {
			return err
		}
		result.TestClientCreated = clientCreated
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"products_created":    result.ProductsCreated,
		"admin_created":       result.AdminCreated,
		"test_client_created": result.TestClientCreated,
	}), "seed complete")
	return result, nil
}

func seedProducts(ctx context.Context, tx *gorm.DB) (int, error) {
	created := 0
	for _, entry := range catalog {
		var count int64
		if err := tx.WithContext(ctx).Model(&models.Product{}).Where("name = ?", entry.Name).Count(&count).Error; err != nil {
			return created, fmt.Errorf("count product %q: %w", entry.Name, err)
		}
		if count > 0 {
			continue
		}
		image := entry.ImagePath
		category := entry.Category
		product := models.Product{
			Name:        entry.Name,
			Description: entry.Description,
			Price:       entry.Price,
			ImageURL:    &image,
			Category:    &category,
			Available:   true,
		}
		if err := tx.WithContext(ctx).Create(&product).Error; err != nil {
			return created, fmt.Errorf("create product %q: %w", entry.Name, err)
		}
		created++
	}
	return created, nil
}

func seedAdmin(ctx context.Context, tx *gorm.DB, cfg config.SeedConfig, pwCfg config.PasswordConfig) (bool, string, error) {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" {
		return false, "", errors.New("seed admin email required")
	}

	existing, err := findProfile(ctx, tx, email)
	if err != nil {
		return false, "", err
	}
	if existing != nil {
		return false, "", tx.WithContext(ctx).Model(&models.Profile{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{"role": enums.UserRoleAdmin, "status": enums.UserStatusApproved}).Error
	}

	password := cfg.AdminPassword
	generated := ""
	if password == "" {
		password, err = security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return false, "", fmt.Errorf("generate admin password: %w", err)
		}
		generated = password
	}

	name := strings.TrimSpace(cfg.AdminName)
	if name == "" {
		name = "Administrador"
	}
	if _, err := createProfile(ctx, tx, email, name, password, enums.UserRoleAdmin, pwCfg); err != nil {
		return false, "", err
	}
	return true, generated, nil
}

func seedTestClient(ctx context.Context, tx *gorm.DB, pwCfg config.PasswordConfig) (bool, error) {
	existing, err := findProfile(ctx, tx, TestClientEmail)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	client, err := createProfile(ctx, tx, TestClientEmail, TestClientName, TestClientPassword, enums.UserRoleUser, pwCfg)
	if err != nil {
		return false, err
	}

	var product models.Product
	if err := tx.WithContext(ctx).Where("name = ?", testCartProduct).First(&product).Error; err != nil {
		return false, fmt.Errorf("load %q: %w", testCartProduct, err)
	}

	cart := models.Cart{UserID: client.ID}
	if err := tx.WithContext(ctx).Create(&cart).Error; err != nil {
		return false, fmt.Errorf("create test cart: %w", err)
	}
	item := models.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: testCartQuantity}
	if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
		return false, fmt.Errorf("create test cart item: %w", err)
	}

	productID := product.ID
	order := models.Order{
		UserID: client.ID,
		Total:  product.Price * testCartQuantity,
		Status: enums.OrderStatusCompleted,
	}
	if err := tx.WithContext(ctx).Omit("Items").Create(&order).Error; err != nil {
		return false, fmt.Errorf("create test order: %w", err)
	}
	orderItem := models.OrderItem{
		OrderID:     order.ID,
		ProductID:   &productID,
		ProductName: product.Name,
		Price:       product.Price,
		Quantity:    testCartQuantity,
	}
	if err := tx.WithContext(ctx).Create(&orderItem).Error; err != nil {
		return false, fmt.Errorf("create test order item: %w", err)
	}
	return true, nil
}

func findProfile(ctx context.Context, tx *gorm.DB, email string) (*models.Profile, error) {
	var profile models.Profile
	err := tx.WithContext(ctx).Where("email = ?", email).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find profile %s: %w", email, err)
	}
	return &profile, nil
}

func createProfile(ctx context.Context, tx *gorm.DB, email, name, password string, role enums.UserRole, pwCfg config.PasswordConfig) (*models.Profile, error) {
	hash, err := security.HashPassword(password, pwCfg)
	if err != nil {
		return nil, err
	}
	profile := models.Profile{
		Email:        email,
		FullName:     name,
		PasswordHash: &hash,
		Role:         role,
		Status:       enums.UserStatusApproved,
	}
	if err := tx.WithContext(ctx).Create(&profile).Error; err != nil {
		return nil, fmt.Errorf("create profile %s: %w", email, err)
	}
	return &profile, nil
}

package database

import (
	"testing"

	"atoforge/internal/models"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	DB = db
	t.Cleanup(func() { DB = nil })
}

func TestSeedUsersCreatedOncePerRole(t *testing.T) {
	setupDB(t)

	createDefaultAdmin("admin@ato.local", "Admin123!")
	seedDefaultUsers()

	var users []models.User
	if err := DB.Find(&users).Error; err != nil {
		t.Fatalf("load users: %v", err)
	}
	byRole := map[models.UserRole]models.User{}
	for _, u := range users {
		byRole[u.Role] = u
	}
	for _, role := range []models.UserRole{models.RoleAdmin, models.RoleAssessor, models.RoleApprover, models.RoleViewer} {
		if _, ok := byRole[role]; !ok {
			t.Fatalf("no seeded user for role %s", role)
		}
	}

	admin := byRole[models.RoleAdmin]
	if admin.Username != "admin@ato.local" {
		t.Fatalf("admin username = %q", admin.Username)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("Admin123!")); err != nil {
		t.Fatalf("admin password hash does not match: %v", err)
	}

	// seeding again must not duplicate anyone
	createDefaultAdmin("admin@ato.local", "Admin123!")
	seedDefaultUsers()

	var count int64
	if err := DB.Model(&models.User{}).Count(&count).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != int64(len(users)) {
		t.Fatalf("re-seed grew users from %d to %d", len(users), count)
	}
}

func TestCreateDefaultAdminUsesGivenCredentials(t *testing.T) {
	setupDB(t)

	createDefaultAdmin("ciso@agency.gov", "s3cret-Pass!")

	var admin models.User
	if err := DB.Where("role = ?", models.RoleAdmin).First(&admin).Error; err != nil {
		t.Fatalf("load admin: %v", err)
	}
	if admin.Username != "ciso@agency.gov" {
		t.Fatalf("admin username = %q", admin.Username)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("s3cret-Pass!")); err != nil {
		t.Fatalf("configured password not used: %v", err)
	}
}

package testutil

import (
	"database/sql"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/conradkoh/jcep-sub000/internal/models"
	"github.com/conradkoh/jcep-sub000/internal/repository"
)

// Fixtures holds test data
type Fixtures struct {
	DB        *sql.DB
	AdminUser *models.User
	BuddyUser *models.User
	JCUser    *models.User
}

// SetupFixtures creates the standard set of test users. Roles are seeded by
// the migrations; users are created through the repository layer.
func SetupFixtures(t *testing.T, db *sql.DB) *Fixtures {
	t.Helper()

	return &Fixtures{
		DB:        db,
		AdminUser: CreateTestUser(t, db, "admin@test.org", "Alice", "Admin", "admin"),
		BuddyUser: CreateTestUser(t, db, "buddy@test.org", "Bob", "Buddy", "buddy"),
		JCUser:    CreateTestUser(t, db, "jc@test.org", "Jess", "Commander", "user"),
	}
}

// CreateTestUser creates an active user with the given roles assigned
func CreateTestUser(t *testing.T, db *sql.DB, email, firstName, lastName string, roles ...string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     lastName,
		IsActive:     true,
	}
	if err := userRepo.Create(user); err != nil {
		t.Fatalf("Failed to create user %s: %v", email, err)
	}

	roleRepo := repository.NewRoleRepository(db)
	for _, name := range roles {
		role, err := roleRepo.GetByName(name)
		if err != nil {
			t.Fatalf("Failed to look up role %s: %v", name, err)
		}
		if err := userRepo.AssignRole(user.ID, role.ID); err != nil {
			t.Fatalf("Failed to assign role %s to %s: %v", name, email, err)
		}
	}

	return user
}

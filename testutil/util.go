package testutil

import (
	"database/sql"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/aprende/academia/core"
	"github.com/aprende/academia/core/course"
	"github.com/aprende/academia/core/reward"
	"github.com/aprende/academia/core/user"
	"github.com/aprende/academia/services/logger"
	"github.com/aprende/academia/storage/database"
)

// NewConfig returns the TEST configuration. Database settings still come from the environment.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Env = "TEST"
	conf.TestMode = true
	conf.Debug = true
	conf.RollbarToken = ""
	conf.Enrollment = core.EnrollmentConfig{PointsPerCurrencyUnit: 10, AllowPointsDiscount: true}
	return conf
}

// NewLogger returns a logger with Rollbar disabled and no output.
func NewLogger(conf *core.Config) *logsvc.RollbarLogger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", log.LstdFlags), conf)
}

// PrepareDB opens the test database, migrates it and empties every table.
// The test is skipped when no database is reachable.
func PrepareDB(t *testing.T) *sql.DB {
	t.Helper()

	conf := NewConfig()
	db, err := database.Open(conf, 1)
	if err != nil {
		t.Skipf("database unavailable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, "up"); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	q := `TRUNCATE payments, enrollments, reward_redemptions, rewards, courses, users, audit_log RESTART IDENTITY CASCADE`
	if _, err = db.Exec(q); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	return db
}

func NewStudent(name string, points int) user.User {
	now := time.Now().UTC()
	return user.User{
		Name:          name,
		Email:         CleanEmail(name),
		IsActive:      true,
		Roles:         []string{user.RoleStudent},
		PointsBalance: points,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func NewCourse(title string, price string) course.Course {
	return course.Course{Title: title, Price: decimal.RequireFromString(price), Status: course.StatusActive}
}

func NewDiscountReward(name string, percent string, points, quantity int) reward.Reward {
	return reward.Reward{
		Name:              name,
		Type:              reward.TypeDiscount,
		DiscountPercent:   decimal.RequireFromString(percent),
		PointsRequired:    points,
		QuantityAvailable: quantity,
		Status:            reward.StatusActive,
		CreatedAt:         time.Now().UTC(),
	}
}

// CleanEmail derives an email address from a name, eg. "Ana Perez" -> "ana.perez@example.com".
func CleanEmail(name string) string {
	return strings.ReplaceAll(core.CleanString(name, true /* lower */), " ", ".") + "@example.com"
}

// Database seeding

func InsertUser(t *testing.T, db *sql.DB, usr user.User) user.User {
	t.Helper()
	q := `
		INSERT INTO users (name, email, is_active, roles, points_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := db.QueryRow(q, usr.Name, usr.Email, usr.IsActive, pq.StringArray(usr.Roles), usr.PointsBalance,
		usr.CreatedAt, usr.UpdatedAt).Scan(&usr.ID)
	if err != nil {
		t.Fatalf("InsertUser() failed: %v", err)
	}
	return usr
}

func InsertCourse(t *testing.T, db *sql.DB, crs course.Course) course.Course {
	t.Helper()
	q := `INSERT INTO courses (title, price, status) VALUES ($1, $2, $3) RETURNING id`
	if err := db.QueryRow(q, crs.Title, crs.Price, crs.Status).Scan(&crs.ID); err != nil {
		t.Fatalf("InsertCourse() failed: %v", err)
	}
	return crs
}

func InsertReward(t *testing.T, db *sql.DB, rwd reward.Reward) reward.Reward {
	t.Helper()
	q := `
		INSERT INTO rewards (name, description, type, discount_percent, points_required, quantity_available, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := db.QueryRow(q, rwd.Name, rwd.Description, rwd.Type, rwd.DiscountPercent, rwd.PointsRequired,
		rwd.QuantityAvailable, rwd.Status, rwd.CreatedAt).Scan(&rwd.ID)
	if err != nil {
		t.Fatalf("InsertReward() failed: %v", err)
	}
	return rwd
}

func InsertRedemption(t *testing.T, db *sql.DB, red reward.Redemption) reward.Redemption {
	t.Helper()
	if red.RedeemedAt.IsZero() {
		red.RedeemedAt = time.Now().UTC()
	}
	q := `
		INSERT INTO reward_redemptions (student_id, reward_id, status, points_spent, redeemed_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := db.QueryRow(q, red.StudentID, red.RewardID, red.Status, red.PointsSpent, red.RedeemedAt).Scan(&red.ID)
	if err != nil {
		t.Fatalf("InsertRedemption() failed: %v", err)
	}
	return red
}

package enrollment

import (
	"context"

	"github.com/aprende/academia/core"
	"github.com/aprende/academia/core/course"
	"github.com/aprende/academia/core/reward"
	"github.com/aprende/academia/core/user"
)

type (
	// TxRepository is bound to a single transaction. Every read and write of an enrollment goes through it.
	TxRepository interface {
		user.PointsLedger
		reward.RedemptionLedger

		// GetCourse returns course.ErrNotFound when the course does not exist.
		GetCourse(ctx context.Context, id int) (course.Course, error)
		EnrollmentExists(ctx context.Context, courseID, studentID int) (bool, error)
		// CreateEnrollment returns ErrAlreadyEnrolled when the (course, student) pair is already taken.
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		CreatePayment(ctx context.Context, pmt Payment) (Payment, error)
	}

	Repository interface {
		// RunInTx commits when fn returns nil and rolls back otherwise.
		RunInTx(ctx context.Context, fn func(tx TxRepository) error) error
		// GetEnrollment returns ErrNotFound when the enrollment does not exist.
		GetEnrollment(ctx context.Context, id int) (Receipt, error)
		QueryStudentEnrollments(ctx context.Context, studentID int, ordering ...core.DBOrdering) ([]Receipt, error)
	}
)

package inmemdb

import (
	"context"
	"sort"

	"github.com/aprende/academia/core"
	"github.com/aprende/academia/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) RunInTx(ctx context.Context, fn func(tx enrollment.TxRepository) error) error {
	return repo.db.runInTx(ctx, func(tx *txRepository) error { return fn(tx) })
}

func (repo *enrollmentRepository) receipt(enr enrollment.Enrollment) enrollment.Receipt {
	if crs, ok := repo.db.t.courses[enr.CourseID]; ok {
		enr.CourseTitle = crs.Title
	}
	return enrollment.Receipt{Enrollment: enr, Payment: repo.db.t.payments[enr.ID]}
}

func (repo *enrollmentRepository) GetEnrollment(_ context.Context, id int) (enrollment.Receipt, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enr, ok := repo.db.t.enrollments[id]
	if !ok {
		return enrollment.Receipt{}, enrollment.ErrNotFound
	}
	return repo.receipt(enr), nil
}

func (repo *enrollmentRepository) QueryStudentEnrollments(
	_ context.Context,
	studentID int,
	ordering ...core.DBOrdering,
) ([]enrollment.Receipt, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rcpts := make([]enrollment.Receipt, 0)
	for _, enr := range repo.db.t.enrollments {
		if enr.StudentID == studentID {
			rcpts = append(rcpts, repo.receipt(enr))
		}
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "enrolled_at"}, {Field: "id"}}
	}
	sort.SliceStable(rcpts, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareEnrollments(rcpts[i].Enrollment, rcpts[j].Enrollment, ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
	return rcpts, nil
}

func compareEnrollments(a, b enrollment.Enrollment, field string) int {
	switch field {
	case "enrolled_at":
		switch {
		case a.EnrolledAt.Before(b.EnrolledAt):
			return -1
		case a.EnrolledAt.After(b.EnrolledAt):
			return 1
		}
		return 0
	case "course_id":
		return a.CourseID - b.CourseID
	case "progress":
		return a.Progress - b.Progress
	default:
		return a.ID - b.ID
	}
}

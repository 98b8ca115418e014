package boiledrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/aprende/academia/core"
	"github.com/aprende/academia/core/course"
	"github.com/aprende/academia/core/enrollment"
	"github.com/aprende/academia/core/reward"
	"github.com/aprende/academia/core/user"
	"github.com/aprende/academia/storage/database"
)

const (
	enrollmentUniqueConstraint = "enrollments_course_student_key"

	receiptSelect = `
		SELECT e.id, e.course_id, c.title AS course_title, e.student_id, e.enrolled_at,
			e.progress_status, e.percent_completed,
			p.id AS payment_id, p.amount, p.discount_applied, p.points_used, p.payment_method,
			p.status AS payment_status, p.reward_redemption_id, p.created_at AS payment_created_at
		FROM enrollments e
		LEFT JOIN courses c ON c.id = e.course_id
		LEFT JOIN payments p ON p.enrollment_id = e.id`
)

// orderingColumns maps enrollment ordering fields to columns.
var orderingColumns = map[string]string{
	"id":          "e.id",
	"enrolled_at": "e.enrolled_at",
	"course_id":   "e.course_id",
	"progress":    "e.percent_completed",
}

type enrollmentRepository struct {
	db core.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db core.DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo *enrollmentRepository) RunInTx(ctx context.Context, fn func(tx enrollment.TxRepository) error) error {
	return core.RunInTx(ctx, repo.db, func(tx core.DBTransactor) error {
		return fn(&txRepository{exec: tx})
	})
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, id int) (enrollment.Receipt, error) {
	var row receiptRow
	err := queries.Raw(receiptSelect+" WHERE e.id = $1", id).Bind(ctx, repo.db, &row)
	if err != nil {
		return enrollment.Receipt{}, trapNoRowsErr(err, enrollment.ErrNotFound, "selecting enrollment")
	}
	return row.unboil(), nil
}

func (repo *enrollmentRepository) QueryStudentEnrollments(
	ctx context.Context,
	studentID int,
	ordering ...core.DBOrdering,
) ([]enrollment.Receipt, error) {
	orderBy := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		col, ok := orderingColumns[ord.Field]
		if !ok {
			return nil, errors.Errorf("unknown ordering field %q", ord.Field)
		}
		orderBy = append(orderBy, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(orderBy) == 0 {
		orderBy = append(orderBy, "e.enrolled_at DESC")
	}
	orderBy = append(orderBy, "e.id DESC")

	var rows []receiptRow
	q := receiptSelect + " WHERE e.student_id = $1 ORDER BY " + strings.Join(orderBy, ", ")
	if err := queries.Raw(q, studentID).Bind(ctx, repo.db, &rows); err != nil {
		return nil, errors.Wrap(err, "selecting student enrollments")
	}
	return unboilReceipts(rows), nil
}

// txRepository implements enrollment.TxRepository on a single transaction.
type txRepository struct {
	exec core.DBExecutor
}

var _ enrollment.TxRepository = (*txRepository)(nil)

func (tx *txRepository) GetUserForUpdate(ctx context.Context, id int) (user.User, error) {
	var row userRow
	q := `
		SELECT id, name, email, is_active, roles, points_balance, created_at, updated_at
		FROM users WHERE id = $1
		FOR UPDATE`
	if err := queries.Raw(q, id).Bind(ctx, tx.exec, &row); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "selecting user")
	}
	return row.unboil(), nil
}

func (tx *txRepository) DebitPoints(ctx context.Context, id int, points int) error {
	q := `
		UPDATE users SET points_balance = points_balance - $2, updated_at = now()
		WHERE id = $1 AND points_balance >= $2`
	res, err := queries.Raw(q, id, points).ExecContext(ctx, tx.exec)
	if err != nil {
		return errors.Wrap(err, "debiting points")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "debiting points")
	} else if n != 1 {
		return errors.Errorf("debiting points: user %d cannot spend %d points", id, points)
	}
	return nil
}

func (tx *txRepository) GetCourse(ctx context.Context, id int) (course.Course, error) {
	var row courseRow
	q := `SELECT id, title, price, status FROM courses WHERE id = $1`
	if err := queries.Raw(q, id).Bind(ctx, tx.exec, &row); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "selecting course")
	}
	return row.unboil(), nil
}

func (tx *txRepository) EnrollmentExists(ctx context.Context, courseID, studentID int) (bool, error) {
	var row struct {
		Exists bool `boil:"exists"`
	}
	q := `SELECT EXISTS (SELECT 1 FROM enrollments WHERE course_id = $1 AND student_id = $2) AS "exists"`
	if err := queries.Raw(q, courseID, studentID).Bind(ctx, tx.exec, &row); err != nil {
		return false, errors.Wrap(err, "checking enrollment existence")
	}
	return row.Exists, nil
}

func (tx *txRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	var row idRow
	q := `
		INSERT INTO enrollments (course_id, student_id, enrolled_at, progress_status, percent_completed)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := queries.Raw(q, enr.CourseID, enr.StudentID, enr.EnrolledAt.UTC(), string(enr.Status), enr.Progress).
		Bind(ctx, tx.exec, &row)
	if err != nil {
		if database.IsConstraintError(err, database.ErrUniqueViolation, enrollmentUniqueConstraint) {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
		return enrollment.Enrollment{}, errors.Wrap(database.ClassifyError(err), "inserting enrollment")
	}
	enr.ID = row.ID
	return enr, nil
}

func (tx *txRepository) CreatePayment(ctx context.Context, pmt enrollment.Payment) (enrollment.Payment, error) {
	var row idRow
	q := `
		INSERT INTO payments (enrollment_id, amount, discount_applied, points_used, payment_method, status,
			reward_redemption_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := queries.Raw(
		q,
		pmt.EnrollmentID,
		pmt.Amount,
		pmt.DiscountApplied,
		pmt.PointsUsed,
		pmt.Method,
		string(pmt.Status),
		null.IntFromPtr(pmt.RewardRedemptionID),
		pmt.CreatedAt.UTC(),
	).Bind(ctx, tx.exec, &row)
	if err != nil {
		return enrollment.Payment{}, errors.Wrap(database.ClassifyError(err), "inserting payment")
	}
	pmt.ID = row.ID
	return pmt, nil
}

func (tx *txRepository) GetAvailableDiscountForUpdate(ctx context.Context, id, studentID int) (reward.Redemption, error) {
	var row redemptionRow
	q := `
		SELECT rr.id, rr.student_id, rr.reward_id, r.name AS reward_name, r.discount_percent,
			rr.status, rr.points_spent, rr.redeemed_at, rr.used_at
		FROM reward_redemptions rr
		JOIN rewards r ON r.id = rr.reward_id
		WHERE rr.id = $1 AND rr.student_id = $2 AND rr.status = $3 AND r.discount_percent > 0
		FOR UPDATE OF rr`
	if err := queries.Raw(q, id, studentID, reward.RedemptionAvailable).Bind(ctx, tx.exec, &row); err != nil {
		return reward.Redemption{}, trapNoRowsErr(err, reward.ErrRedemptionNotFound, "selecting redemption")
	}
	return row.unboil(), nil
}

func (tx *txRepository) MarkRedemptionUsed(ctx context.Context, id int, usedAt time.Time) error {
	q := `UPDATE reward_redemptions SET status = $2, used_at = $3 WHERE id = $1 AND status = $4`
	res, err := queries.Raw(q, id, reward.RedemptionUsed, usedAt.UTC(), reward.RedemptionAvailable).
		ExecContext(ctx, tx.exec)
	if err != nil {
		return errors.Wrap(err, "updating redemption")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "updating redemption")
	} else if n != 1 {
		return errors.Errorf("updating redemption: redemption %d is not available", id)
	}
	return nil
}

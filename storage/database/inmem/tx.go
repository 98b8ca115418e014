package inmemdb

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/aprende/academia/core/course"
	"github.com/aprende/academia/core/enrollment"
	"github.com/aprende/academia/core/reward"
	"github.com/aprende/academia/core/user"
)

var (
	errUserNotFound   = errors.Wrap(user.ErrNotFound, "inmemdb")
	errRewardNotFound = errors.Wrap(reward.ErrNotFound, "inmemdb")
)

// txRepository implements both enrollment.TxRepository and reward.TxRepository
// on the working copy of a transaction.
type txRepository struct {
	t      *tables
	faults map[string]error
}

var (
	_ enrollment.TxRepository = (*txRepository)(nil)
	_ reward.TxRepository     = (*txRepository)(nil)
)

func (tx *txRepository) fault(op string) error {
	if err, ok := tx.faults[op]; ok {
		return errors.Wrap(err, op)
	}
	return nil
}

func (tx *txRepository) GetUserForUpdate(_ context.Context, id int) (user.User, error) {
	if err := tx.fault("GetUserForUpdate"); err != nil {
		return user.User{}, err
	}
	usr, ok := tx.t.users[id]
	if !ok {
		return user.User{}, errUserNotFound
	}
	return usr, nil
}

func (tx *txRepository) DebitPoints(_ context.Context, id int, points int) error {
	if err := tx.fault("DebitPoints"); err != nil {
		return err
	}
	usr, ok := tx.t.users[id]
	if !ok {
		return errUserNotFound
	}
	if usr.PointsBalance < points {
		return errors.Errorf("inmemdb: points balance of user %d would go negative", id)
	}
	usr.PointsBalance -= points
	tx.t.users[id] = usr
	return nil
}

func (tx *txRepository) GetCourse(_ context.Context, id int) (course.Course, error) {
	if err := tx.fault("GetCourse"); err != nil {
		return course.Course{}, err
	}
	crs, ok := tx.t.courses[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

func (tx *txRepository) EnrollmentExists(_ context.Context, courseID, studentID int) (bool, error) {
	if err := tx.fault("EnrollmentExists"); err != nil {
		return false, err
	}
	for _, enr := range tx.t.enrollments {
		if enr.CourseID == courseID && enr.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (tx *txRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	if err := tx.fault("CreateEnrollment"); err != nil {
		return enrollment.Enrollment{}, err
	}
	// unique (course_id, student_id)
	if exists, _ := tx.EnrollmentExists(ctx, enr.CourseID, enr.StudentID); exists {
		return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
	}
	enr.ID = tx.t.nextPK()
	enr.CourseTitle = ""
	tx.t.enrollments[enr.ID] = enr
	return enr, nil
}

func (tx *txRepository) CreatePayment(_ context.Context, pmt enrollment.Payment) (enrollment.Payment, error) {
	if err := tx.fault("CreatePayment"); err != nil {
		return enrollment.Payment{}, err
	}
	if _, ok := tx.t.enrollments[pmt.EnrollmentID]; !ok {
		return enrollment.Payment{}, errors.Errorf("inmemdb: enrollment %d does not exist", pmt.EnrollmentID)
	}
	// unique (enrollment_id)
	if _, ok := tx.t.payments[pmt.EnrollmentID]; ok {
		return enrollment.Payment{}, errors.Errorf("inmemdb: enrollment %d already has a payment", pmt.EnrollmentID)
	}
	pmt.ID = tx.t.nextPK()
	tx.t.payments[pmt.EnrollmentID] = pmt
	return pmt, nil
}

func (tx *txRepository) GetAvailableDiscountForUpdate(_ context.Context, id, studentID int) (reward.Redemption, error) {
	if err := tx.fault("GetAvailableDiscountForUpdate"); err != nil {
		return reward.Redemption{}, err
	}
	red, ok := tx.t.redemptions[id]
	if !ok || red.StudentID != studentID || !red.IsAvailable() {
		return reward.Redemption{}, reward.ErrRedemptionNotFound
	}
	rwd, ok := tx.t.rewards[red.RewardID]
	if !ok || !rwd.DiscountPercent.IsPositive() {
		return reward.Redemption{}, reward.ErrRedemptionNotFound
	}
	red.RewardName = rwd.Name
	red.DiscountPercent = rwd.DiscountPercent
	return red, nil
}

func (tx *txRepository) MarkRedemptionUsed(_ context.Context, id int, usedAt time.Time) error {
	if err := tx.fault("MarkRedemptionUsed"); err != nil {
		return err
	}
	red, ok := tx.t.redemptions[id]
	if !ok || !red.IsAvailable() {
		return errors.Errorf("inmemdb: redemption %d is not available", id)
	}
	red.Status = reward.RedemptionUsed
	red.UsedAt = &usedAt
	tx.t.redemptions[id] = red
	return nil
}

func (tx *txRepository) GetRewardForUpdate(_ context.Context, id int) (reward.Reward, error) {
	if err := tx.fault("GetRewardForUpdate"); err != nil {
		return reward.Reward{}, err
	}
	rwd, ok := tx.t.rewards[id]
	if !ok {
		return reward.Reward{}, errRewardNotFound
	}
	return rwd, nil
}

func (tx *txRepository) CreateRedemption(_ context.Context, red reward.Redemption) (reward.Redemption, error) {
	if err := tx.fault("CreateRedemption"); err != nil {
		return reward.Redemption{}, err
	}
	red.ID = tx.t.nextPK()
	tx.t.redemptions[red.ID] = red
	return red, nil
}

func (tx *txRepository) DecrementStock(_ context.Context, rewardID int) error {
	if err := tx.fault("DecrementStock"); err != nil {
		return err
	}
	rwd, ok := tx.t.rewards[rewardID]
	if !ok {
		return errRewardNotFound
	}
	if rwd.QuantityAvailable <= 0 {
		return errors.Errorf("inmemdb: reward %d is out of stock", rewardID)
	}
	rwd.QuantityAvailable--
	tx.t.rewards[rewardID] = rwd
	return nil
}

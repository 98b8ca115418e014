package enrollment

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/aprende/academia/core"
	"github.com/aprende/academia/core/course"
	"github.com/aprende/academia/core/reward"
	"github.com/aprende/academia/core/user"
)

const (
	auditActionCreate = "enrollment.create"
	receiptTemplate   = "enrollment_receipt"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("enrollment not found")
	ErrStudentNotFound = core.NewNotFoundError("student not found")
	ErrAlreadyEnrolled = core.NewConflictError("the student is already enrolled in this course")

	ErrFreeCourseDiscount = core.NewValidationError(errors.New("cannot discount a free course"))
	ErrBothDiscounts      = core.NewValidationError(errors.New("use either a reward redemption or points, not both"))
	ErrPointsDisabled     = core.NewValidationError(nil, core.FieldError{
		Field: "points_used",
		Error: "points discounts are disabled",
	})
	ErrPaymentMethodRequired = core.NewValidationError(nil, core.FieldError{
		Field: "payment_method",
		Error: "a payment method is required for paid courses",
	})
	ErrInvalidRedemption = core.NewValidationError(nil, core.FieldError{
		Field: "reward_redemption_id",
		Error: "this reward redemption cannot be applied",
	})
	ErrNegativePoints = core.NewValidationError(nil, core.FieldError{
		Field: "points_used",
		Error: "points_used must be 0 or greater",
	})
	ErrInsufficientPoints = core.NewValidationError(nil, core.FieldError{
		Field: "points_used",
		Error: "insufficient points balance",
	})

	nowFunc = func() time.Time { return time.Now().UTC() }
)

type (
	Service struct {
		repo    Repository
		conf    core.EnrollmentConfig
		auditor core.Auditor
		mailSvc core.EmailService
		logger  core.Logger
	}

	// enrolled holds what the side channels need once the transaction is over.
	enrolled struct {
		student user.User
		course  course.Course
		receipt Receipt
	}

	receiptData struct {
		StudentName   string
		CourseTitle   string
		PaymentID     int
		Price         string
		Discount      string
		Amount        string
		PaymentMethod string
		PointsUsed    int
	}
)

func NewService(
	repo Repository,
	conf *core.Config,
	auditor core.Auditor,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(auditor, "auditor"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()
	if conf.Enrollment.AllowPointsDiscount {
		vala.BeginValidation().Validate(
			vala.GreaterThan(conf.Enrollment.PointsPerCurrencyUnit, 0, "conf.Enrollment.PointsPerCurrencyUnit"),
		).CheckAndPanic()
	}

	return &Service{
		repo:    repo,
		conf:    conf.Enrollment,
		auditor: auditor,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

// Enroll registers a student in a course and records its payment, all in one transaction.
// At most one reward redemption or one points amount may discount a paid course.
// A negative points amount is rejected first. Then the course, the student and a previous enrollment
// are checked, in that order, before any rule about discounts or the payment method.
// The redemption is consumed and the points debited only when the whole enrollment succeeds.
func (svc *Service) Enroll(ctx context.Context, ne NewEnrollment) (Receipt, error) {
	res, err := svc.enroll(ctx, ne)
	svc.audit(ne, res.receipt, err)
	if err != nil {
		return Receipt{}, err
	}
	svc.sendReceipt(res)
	return res.receipt, nil
}

func (svc *Service) enroll(ctx context.Context, ne NewEnrollment) (res enrolled, err error) {
	if ne.PointsUsed < 0 {
		return res, ErrNegativePoints
	}
	method := core.CleanString(ne.PaymentMethod)

	err = svc.repo.RunInTx(ctx, func(tx TxRepository) error {
		crs, err := tx.GetCourse(ctx, ne.CourseID)
		if err != nil {
			if errors.Cause(err) == course.ErrNotFound {
				return course.ErrNotFound
			}
			return errors.Wrap(err, "getting course")
		}

		std, err := tx.GetUserForUpdate(ctx, ne.StudentID)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return ErrStudentNotFound
			}
			return errors.Wrap(err, "getting student")
		}
		if !std.IsStudent() {
			return ErrStudentNotFound
		}

		exists, err := tx.EnrollmentExists(ctx, crs.ID, std.ID)
		if err != nil {
			return errors.Wrap(err, "checking existing enrollment")
		}
		if exists {
			return ErrAlreadyEnrolled
		}

		if ne.RewardRedemptionID != nil && ne.PointsUsed > 0 {
			return ErrBothDiscounts
		}
		if ne.PointsUsed > 0 && !svc.conf.AllowPointsDiscount {
			return ErrPointsDisabled
		}

		discount := decimal.Zero
		var redemptionID *int

		if crs.IsFree() {
			if ne.RewardRedemptionID != nil || ne.PointsUsed > 0 {
				return ErrFreeCourseDiscount
			}
			method = MethodFree
		} else {
			if method == "" {
				return ErrPaymentMethodRequired
			}
			switch {
			case ne.RewardRedemptionID != nil:
				red, err := tx.GetAvailableDiscountForUpdate(ctx, *ne.RewardRedemptionID, std.ID)
				if err != nil {
					if errors.Cause(err) == reward.ErrRedemptionNotFound {
						return ErrInvalidRedemption
					}
					return errors.Wrap(err, "getting reward redemption")
				}
				discount = redemptionDiscount(crs.Price, red.DiscountPercent)
				redemptionID = &red.ID
			case ne.PointsUsed > 0:
				if !std.CanSpend(ne.PointsUsed) {
					return ErrInsufficientPoints
				}
				discount = pointsDiscount(crs.Price, ne.PointsUsed, svc.conf.PointsPerCurrencyUnit)
			}
		}

		now := nowFunc()
		enr, err := tx.CreateEnrollment(ctx, Enrollment{
			CourseID:   crs.ID,
			StudentID:  std.ID,
			EnrolledAt: now,
			Status:     ProgressEnrolled,
		})
		if err != nil {
			if errors.Cause(err) == ErrAlreadyEnrolled {
				return ErrAlreadyEnrolled
			}
			return errors.Wrap(err, "creating enrollment")
		}

		pmt, err := tx.CreatePayment(ctx, Payment{
			EnrollmentID:       enr.ID,
			Amount:             finalAmount(crs.Price, discount),
			DiscountApplied:    discount,
			Method:             method,
			Status:             PaymentCompleted,
			RewardRedemptionID: redemptionID,
			PointsUsed:         ne.PointsUsed,
			CreatedAt:          now,
		})
		if err != nil {
			return errors.Wrap(err, "creating payment")
		}

		if redemptionID != nil {
			if err = tx.MarkRedemptionUsed(ctx, *redemptionID, now); err != nil {
				return errors.Wrap(err, "marking redemption as used")
			}
		}
		if ne.PointsUsed > 0 {
			if err = tx.DebitPoints(ctx, std.ID, ne.PointsUsed); err != nil {
				return errors.Wrap(err, "debiting points")
			}
		}

		enr.CourseTitle = crs.Title
		res = enrolled{
			student: std,
			course:  crs,
			receipt: Receipt{Enrollment: enr, Payment: pmt},
		}
		return nil
	})
	if err != nil {
		return enrolled{}, err
	}
	return res, nil
}

func (svc *Service) GetByID(ctx context.Context, id int) (Receipt, error) {
	rcpt, err := svc.repo.GetEnrollment(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Receipt{}, ErrNotFound
		}
		return Receipt{}, errors.Wrap(err, "getting enrollment")
	}
	return rcpt, nil
}

// QueryByStudent lists a student's enrollments. Orderings on unknown fields are rejected.
func (svc *Service) QueryByStudent(ctx context.Context, studentID int, ordering ...core.DBOrdering) ([]Receipt, error) {
	for _, ord := range ordering {
		if !IsValidOrderingField(ord.Field) {
			return nil, core.NewValidationError(nil, core.FieldError{
				Field: "ordering",
				Error: fmt.Sprintf("cannot order by %q", ord.Field),
			})
		}
	}
	rcpts, err := svc.repo.QueryStudentEnrollments(ctx, studentID, ordering...)
	if err != nil {
		return nil, errors.Wrap(err, "querying student enrollments")
	}
	return rcpts, nil
}

// audit hands the outcome to the auditor. The auditor cannot alter the outcome, not even by panicking.
func (svc *Service) audit(ne NewEnrollment, rcpt Receipt, err error) {
	defer func() {
		if p := recover(); p != nil {
			svc.logger.Error(fmt.Sprintf("enrollment.audit: recovered from panic: %v", p))
		}
	}()

	entry := core.AuditEntry{
		Action:  auditActionCreate,
		ActorID: ne.StudentID,
		Subject: fmt.Sprintf("course:%d", ne.CourseID),
		Outcome: core.AuditSucceeded,
		At:      nowFunc(),
		Details: map[string]interface{}{
			"payment_method": ne.PaymentMethod,
			"points_used":    ne.PointsUsed,
		},
	}
	if ne.RewardRedemptionID != nil {
		entry.Details["reward_redemption_id"] = *ne.RewardRedemptionID
	}
	if err != nil {
		entry.Outcome = core.AuditFailed
		entry.ErrorKind = core.KindOf(err).String()
		entry.Message = err.Error()
	} else {
		entry.Details["enrollment_id"] = rcpt.ID
		entry.Details["payment_id"] = rcpt.Payment.ID
		entry.Details["amount"] = rcpt.Payment.Amount.StringFixed(2)
		entry.Details["discount_applied"] = rcpt.Payment.DiscountApplied.StringFixed(2)
	}
	svc.auditor.Record(entry)
}

func (svc *Service) sendReceipt(res enrolled) {
	if res.student.Email == "" {
		return
	}
	pmt := res.receipt.Payment
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: res.student.Name, Address: res.student.Email}},
		Subject:      fmt.Sprintf("You are enrolled in %s", res.course.Title),
		TemplateName: receiptTemplate,
		TemplateData: receiptData{
			StudentName:   res.student.Name,
			CourseTitle:   res.course.Title,
			PaymentID:     pmt.ID,
			Price:         res.course.Price.StringFixed(2),
			Discount:      pmt.DiscountApplied.StringFixed(2),
			Amount:        pmt.Amount.StringFixed(2),
			PaymentMethod: pmt.Method,
			PointsUsed:    pmt.PointsUsed,
		},
	})
}

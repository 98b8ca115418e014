package enrollment_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aprende/academia/assets"
	"github.com/aprende/academia/core"
	"github.com/aprende/academia/core/course"
	"github.com/aprende/academia/core/enrollment"
	"github.com/aprende/academia/core/reward"
	"github.com/aprende/academia/core/user"
	"github.com/aprende/academia/services/audit"
	"github.com/aprende/academia/services/email"
	"github.com/aprende/academia/storage/database/inmem"
	"github.com/aprende/academia/testutil"
)

var ctx = context.Background()

type fixture struct {
	db      *inmemdb.DB
	svc     *enrollment.Service
	auditor *auditsvc.Mock
	mailSvc *emailsvc.ConsoleServiceMock

	student   user.User
	paid      course.Course // 100.00
	cheap     course.Course // 50.00
	free      course.Course
	discount  reward.Reward // 20%
	bigReward reward.Reward // 90%
	item      reward.Reward // not a discount
}

func setup(t *testing.T) *fixture {
	t.Helper()

	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, logger)

	db := inmemdb.Open()
	f := &fixture{
		db:      db,
		auditor: auditsvc.NewMock(),
		mailSvc: emailsvc.NewConsoleServiceMock(conf, logger),
	}
	f.svc = enrollment.NewService(inmemdb.NewEnrollmentRepository(db), conf, f.auditor, f.mailSvc, logger)

	f.student = db.AddUser(testutil.NewStudent("Ana Perez", 500))
	f.paid = db.AddCourse(testutil.NewCourse("Go 101", "100.00"))
	f.cheap = db.AddCourse(testutil.NewCourse("SQL basics", "50.00"))
	f.free = db.AddCourse(testutil.NewCourse("Intro", "0"))
	f.discount = db.AddReward(testutil.NewDiscountReward("20% off", "20", 100, 10))
	f.bigReward = db.AddReward(testutil.NewDiscountReward("90% off", "90", 400, 10))
	f.item = db.AddReward(reward.Reward{Name: "T-shirt", Type: reward.TypeOther, Status: reward.StatusActive, QuantityAvailable: 5})
	return f
}

func (f *fixture) redeem(studentID int, rwd reward.Reward, status ...string) reward.Redemption {
	red := reward.Redemption{StudentID: studentID, RewardID: rwd.ID, Status: reward.RedemptionAvailable}
	if len(status) > 0 {
		red.Status = status[0]
	}
	return f.db.AddRedemption(red)
}

func intPtr(i int) *int {
	return &i
}

func TestService_Enroll(t *testing.T) {
	tests := []struct {
		name         string
		prepare      func(f *fixture) enrollment.NewEnrollment
		wantAmount   string
		wantDiscount string
		wantMethod   string
		wantPoints   int // balance afterwards
	}{
		{
			name: "free course",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				return enrollment.NewEnrollment{CourseID: f.free.ID, StudentID: f.student.ID}
			},
			wantAmount:   "0.00",
			wantDiscount: "0.00",
			wantMethod:   enrollment.MethodFree,
			wantPoints:   500,
		},
		{
			name: "free course ignores payment method",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				return enrollment.NewEnrollment{CourseID: f.free.ID, StudentID: f.student.ID, PaymentMethod: "card"}
			},
			wantAmount:   "0.00",
			wantDiscount: "0.00",
			wantMethod:   enrollment.MethodFree,
			wantPoints:   500,
		},
		{
			name: "paid course without discount",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				return enrollment.NewEnrollment{CourseID: f.paid.ID, StudentID: f.student.ID, PaymentMethod: " card "}
			},
			wantAmount:   "100.00",
			wantDiscount: "0.00",
			wantMethod:   "card",
			wantPoints:   500,
		},
		{
			name: "20% redemption on 100.00",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				red := f.redeem(f.student.ID, f.discount)
				return enrollment.NewEnrollment{
					CourseID:           f.paid.ID,
					StudentID:          f.student.ID,
					PaymentMethod:      "card",
					RewardRedemptionID: intPtr(red.ID),
				}
			},
			wantAmount:   "80.00",
			wantDiscount: "20.00",
			wantMethod:   "card",
			wantPoints:   500,
		},
		{
			name: "90% redemption on 50.00",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				red := f.redeem(f.student.ID, f.bigReward)
				return enrollment.NewEnrollment{
					CourseID:           f.cheap.ID,
					StudentID:          f.student.ID,
					PaymentMethod:      "card",
					RewardRedemptionID: intPtr(red.ID),
				}
			},
			wantAmount:   "5.00",
			wantDiscount: "45.00",
			wantMethod:   "card",
			wantPoints:   500,
		},
		{
			name: "discount over 100% is clamped to the price",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				rwd := f.db.AddReward(testutil.NewDiscountReward("150% off", "150", 0, 1))
				red := f.redeem(f.student.ID, rwd)
				return enrollment.NewEnrollment{
					CourseID:           f.cheap.ID,
					StudentID:          f.student.ID,
					PaymentMethod:      "card",
					RewardRedemptionID: intPtr(red.ID),
				}
			},
			wantAmount:   "0.00",
			wantDiscount: "50.00",
			wantMethod:   "card",
			wantPoints:   500,
		},
		{
			name: "points",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				return enrollment.NewEnrollment{
					CourseID:      f.paid.ID,
					StudentID:     f.student.ID,
					PaymentMethod: "card",
					PointsUsed:    150,
				}
			},
			wantAmount:   "85.00",
			wantDiscount: "15.00",
			wantMethod:   "card",
			wantPoints:   350,
		},
		{
			name: "more points than the price",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				return enrollment.NewEnrollment{
					CourseID:      f.cheap.ID,
					StudentID:     f.student.ID,
					PaymentMethod: "card",
					PointsUsed:    500,
				}
			},
			wantAmount:   "0.00",
			wantDiscount: "50.00",
			wantMethod:   "card",
			wantPoints:   0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			ne := tt.prepare(f)

			rcpt, err := f.svc.Enroll(ctx, ne)
			require.NoError(t, err)

			assert.NotZero(t, rcpt.ID)
			assert.Equal(t, ne.CourseID, rcpt.CourseID)
			assert.Equal(t, ne.StudentID, rcpt.StudentID)
			assert.Equal(t, enrollment.ProgressEnrolled, rcpt.Status)
			assert.Zero(t, rcpt.Progress)
			assert.False(t, rcpt.EnrolledAt.IsZero())

			pmt := rcpt.Payment
			assert.NotZero(t, pmt.ID)
			assert.Equal(t, rcpt.ID, pmt.EnrollmentID)
			assert.Equal(t, tt.wantAmount, pmt.Amount.StringFixed(2))
			assert.Equal(t, tt.wantDiscount, pmt.DiscountApplied.StringFixed(2))
			assert.Equal(t, tt.wantMethod, pmt.Method)
			assert.Equal(t, enrollment.PaymentCompleted, pmt.Status)
			assert.Equal(t, ne.PointsUsed, pmt.PointsUsed)

			enrs, pmts := f.db.CountEnrollments(ne.CourseID, ne.StudentID)
			assert.Equal(t, 1, enrs)
			assert.Equal(t, 1, pmts)

			std, _ := f.db.GetUser(f.student.ID)
			assert.Equal(t, tt.wantPoints, std.PointsBalance)

			if ne.RewardRedemptionID != nil {
				require.NotNil(t, pmt.RewardRedemptionID)
				assert.Equal(t, *ne.RewardRedemptionID, *pmt.RewardRedemptionID)
				red, _ := f.db.GetRedemption(*ne.RewardRedemptionID)
				assert.Equal(t, reward.RedemptionUsed, red.Status)
				assert.NotNil(t, red.UsedAt)
			} else {
				assert.Nil(t, pmt.RewardRedemptionID)
			}
		})
	}
}

func TestService_Enroll_errors(t *testing.T) {
	tests := []struct {
		name     string
		prepare  func(f *fixture) enrollment.NewEnrollment
		wantErr  error
		wantKind core.ErrorKind
	}{
		{
			name: "course not found",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				return enrollment.NewEnrollment{CourseID: 9999, StudentID: f.student.ID, PaymentMethod: "card"}
			},
			wantErr:  course.ErrNotFound,
			wantKind: core.KindNotFound,
		},
		{
			name: "course not found takes precedence over discount rules",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				red := f.redeem(f.student.ID, f.discount)
				return enrollment.NewEnrollment{
					CourseID: 9999, StudentID: f.student.ID, RewardRedemptionID: intPtr(red.ID), PointsUsed: 10,
				}
			},
			wantErr:  course.ErrNotFound,
			wantKind: core.KindNotFound,
		},
		{
			name: "student not found takes precedence over discount rules",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				red := f.redeem(f.student.ID, f.discount)
				return enrollment.NewEnrollment{
					CourseID: f.paid.ID, StudentID: 9999, PaymentMethod: "card", RewardRedemptionID: intPtr(red.ID), PointsUsed: 10,
				}
			},
			wantErr:  enrollment.ErrStudentNotFound,
			wantKind: core.KindNotFound,
		},
		{
			name: "negative points",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				return enrollment.NewEnrollment{CourseID: f.paid.ID, StudentID: f.student.ID, PaymentMethod: "card", PointsUsed: -50}
			},
			wantErr:  enrollment.ErrNegativePoints,
			wantKind: core.KindInvalidInput,
		},
		{
			name: "negative points on a free course",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				return enrollment.NewEnrollment{CourseID: f.free.ID, StudentID: f.student.ID, PointsUsed: -50}
			},
			wantErr:  enrollment.ErrNegativePoints,
			wantKind: core.KindInvalidInput,
		},
		{
			name: "student not found",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				return enrollment.NewEnrollment{CourseID: f.paid.ID, StudentID: 9999, PaymentMethod: "card"}
			},
			wantErr:  enrollment.ErrStudentNotFound,
			wantKind: core.KindNotFound,
		},
		{
			name: "user is not a student",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				teacher := testutil.NewStudent("Prof Rios", 0)
				teacher.Roles = []string{user.RoleTeacher}
				teacher = f.db.AddUser(teacher)
				return enrollment.NewEnrollment{CourseID: f.paid.ID, StudentID: teacher.ID, PaymentMethod: "card"}
			},
			wantErr:  enrollment.ErrStudentNotFound,
			wantKind: core.KindNotFound,
		},
		{
			name: "free course with a redemption",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				red := f.redeem(f.student.ID, f.discount)
				return enrollment.NewEnrollment{CourseID: f.free.ID, StudentID: f.student.ID, RewardRedemptionID: intPtr(red.ID)}
			},
			wantErr:  enrollment.ErrFreeCourseDiscount,
			wantKind: core.KindInvalidInput,
		},
		{
			name: "free course with points",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				return enrollment.NewEnrollment{CourseID: f.free.ID, StudentID: f.student.ID, PointsUsed: 10}
			},
			wantErr:  enrollment.ErrFreeCourseDiscount,
			wantKind: core.KindInvalidInput,
		},
		{
			name: "paid course without payment method",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				red := f.redeem(f.student.ID, f.discount)
				return enrollment.NewEnrollment{CourseID: f.paid.ID, StudentID: f.student.ID, RewardRedemptionID: intPtr(red.ID)}
			},
			wantErr:  enrollment.ErrPaymentMethodRequired,
			wantKind: core.KindInvalidInput,
		},
		{
			name: "blank payment method",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				return enrollment.NewEnrollment{CourseID: f.paid.ID, StudentID: f.student.ID, PaymentMethod: "   "}
			},
			wantErr:  enrollment.ErrPaymentMethodRequired,
			wantKind: core.KindInvalidInput,
		},
		{
			name: "used redemption",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				red := f.redeem(f.student.ID, f.discount, reward.RedemptionUsed)
				return enrollment.NewEnrollment{
					CourseID: f.paid.ID, StudentID: f.student.ID, PaymentMethod: "card", RewardRedemptionID: intPtr(red.ID),
				}
			},
			wantErr:  enrollment.ErrInvalidRedemption,
			wantKind: core.KindInvalidInput,
		},
		{
			name: "redemption of another student",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				other := f.db.AddUser(testutil.NewStudent("Luis Gomez", 0))
				red := f.redeem(other.ID, f.discount)
				return enrollment.NewEnrollment{
					CourseID: f.paid.ID, StudentID: f.student.ID, PaymentMethod: "card", RewardRedemptionID: intPtr(red.ID),
				}
			},
			wantErr:  enrollment.ErrInvalidRedemption,
			wantKind: core.KindInvalidInput,
		},
		{
			name: "redemption of a non-discount reward",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				red := f.redeem(f.student.ID, f.item)
				return enrollment.NewEnrollment{
					CourseID: f.paid.ID, StudentID: f.student.ID, PaymentMethod: "card", RewardRedemptionID: intPtr(red.ID),
				}
			},
			wantErr:  enrollment.ErrInvalidRedemption,
			wantKind: core.KindInvalidInput,
		},
		{
			name: "unknown redemption",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				return enrollment.NewEnrollment{
					CourseID: f.paid.ID, StudentID: f.student.ID, PaymentMethod: "card", RewardRedemptionID: intPtr(9999),
				}
			},
			wantErr:  enrollment.ErrInvalidRedemption,
			wantKind: core.KindInvalidInput,
		},
		{
			name: "insufficient points",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				return enrollment.NewEnrollment{CourseID: f.paid.ID, StudentID: f.student.ID, PaymentMethod: "card", PointsUsed: 501}
			},
			wantErr:  enrollment.ErrInsufficientPoints,
			wantKind: core.KindInvalidInput,
		},
		{
			name: "redemption and points",
			prepare: func(f *fixture) enrollment.NewEnrollment {
				red := f.redeem(f.student.ID, f.discount)
				return enrollment.NewEnrollment{
					CourseID:           f.paid.ID,
					StudentID:          f.student.ID,
					PaymentMethod:      "card",
					RewardRedemptionID: intPtr(red.ID),
					PointsUsed:         10,
				}
			},
			wantErr:  enrollment.ErrBothDiscounts,
			wantKind: core.KindInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			ne := tt.prepare(f)
			var before reward.Redemption
			if ne.RewardRedemptionID != nil {
				before, _ = f.db.GetRedemption(*ne.RewardRedemptionID)
			}

			_, err := f.svc.Enroll(ctx, ne)
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, errors.Cause(err))
			assert.Equal(t, tt.wantKind, core.KindOf(err))

			// nothing persisted
			enrs, pmts := f.db.CountEnrollments(ne.CourseID, ne.StudentID)
			assert.Zero(t, enrs)
			assert.Zero(t, pmts)
			std, _ := f.db.GetUser(f.student.ID)
			assert.Equal(t, 500, std.PointsBalance)
			if ne.RewardRedemptionID != nil {
				after, _ := f.db.GetRedemption(*ne.RewardRedemptionID)
				assert.Equal(t, before, after)
			}
		})
	}
}

func TestService_Enroll_pointsDisabled(t *testing.T) {
	conf := testutil.NewConfig()
	conf.Enrollment.AllowPointsDiscount = false
	logger := testutil.NewLogger(conf)
	db := inmemdb.Open()
	svc := enrollment.NewService(
		inmemdb.NewEnrollmentRepository(db), conf, auditsvc.NewMock(), emailsvc.NewConsoleServiceMock(conf, logger), logger,
	)
	std := db.AddUser(testutil.NewStudent("Ana Perez", 500))
	crs := db.AddCourse(testutil.NewCourse("Go 101", "100.00"))

	_, err := svc.Enroll(ctx, enrollment.NewEnrollment{CourseID: crs.ID, StudentID: std.ID, PaymentMethod: "card", PointsUsed: 10})
	assert.Equal(t, enrollment.ErrPointsDisabled, err)
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))

	_, err = svc.Enroll(ctx, enrollment.NewEnrollment{CourseID: 9999, StudentID: std.ID, PaymentMethod: "card", PointsUsed: 10})
	assert.Equal(t, course.ErrNotFound, err)
}

func TestService_Enroll_duplicate(t *testing.T) {
	f := setup(t)
	ne := enrollment.NewEnrollment{CourseID: f.paid.ID, StudentID: f.student.ID, PaymentMethod: "card"}

	_, err := f.svc.Enroll(ctx, ne)
	require.NoError(t, err)

	_, err = f.svc.Enroll(ctx, ne)
	assert.Equal(t, enrollment.ErrAlreadyEnrolled, err)
	assert.Equal(t, core.KindConflict, core.KindOf(err))

	enrs, pmts := f.db.CountEnrollments(ne.CourseID, ne.StudentID)
	assert.Equal(t, 1, enrs)
	assert.Equal(t, 1, pmts)
}

func TestService_Enroll_concurrentDoubleSubmit(t *testing.T) {
	f := setup(t)
	ne := enrollment.NewEnrollment{CourseID: f.paid.ID, StudentID: f.student.ID, PaymentMethod: "card"}

	const n = 10
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Enroll(ctx, ne)
		}(i)
	}
	wg.Wait()

	var succeeded, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case core.KindOf(err) == core.KindConflict:
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, n-1, conflicts)

	enrs, _ := f.db.CountEnrollments(ne.CourseID, ne.StudentID)
	assert.Equal(t, 1, enrs)
}

func TestService_Enroll_concurrentRedemption(t *testing.T) {
	f := setup(t)
	red := f.redeem(f.student.ID, f.discount)

	courses := []course.Course{f.paid, f.cheap}
	errs := make([]error, len(courses))
	var wg sync.WaitGroup
	for i, crs := range courses {
		wg.Add(1)
		go func(i int, crs course.Course) {
			defer wg.Done()
			_, errs[i] = f.svc.Enroll(ctx, enrollment.NewEnrollment{
				CourseID:           crs.ID,
				StudentID:          f.student.ID,
				PaymentMethod:      "card",
				RewardRedemptionID: intPtr(red.ID),
			})
		}(i, crs)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.Equal(t, enrollment.ErrInvalidRedemption, err)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestService_Enroll_rollback(t *testing.T) {
	errBoom := errors.New("boom")
	ops := []string{"CreateEnrollment", "CreatePayment", "MarkRedemptionUsed", "DebitPoints"}

	for _, op := range ops {
		t.Run(op, func(t *testing.T) {
			f := setup(t)
			f.db.InjectFault(op, errBoom)
			red := f.redeem(f.student.ID, f.discount)

			ne := enrollment.NewEnrollment{
				CourseID:           f.paid.ID,
				StudentID:          f.student.ID,
				PaymentMethod:      "card",
				RewardRedemptionID: intPtr(red.ID),
			}
			if op == "DebitPoints" {
				ne.RewardRedemptionID = nil
				ne.PointsUsed = 100
			}

			_, err := f.svc.Enroll(ctx, ne)
			require.Error(t, err)
			assert.Equal(t, errBoom, errors.Cause(err))
			assert.Equal(t, core.KindInternal, core.KindOf(err))

			enrs, pmts := f.db.CountEnrollments(ne.CourseID, ne.StudentID)
			assert.Zero(t, enrs)
			assert.Zero(t, pmts)
			after, _ := f.db.GetRedemption(red.ID)
			assert.Equal(t, reward.RedemptionAvailable, after.Status)
			std, _ := f.db.GetUser(f.student.ID)
			assert.Equal(t, 500, std.PointsBalance)

			// the store is usable again once the fault is gone
			f.db.InjectFault(op, nil)
			_, err = f.svc.Enroll(ctx, ne)
			assert.NoError(t, err)
		})
	}
}

func TestService_Enroll_audit(t *testing.T) {
	f := setup(t)

	rcpt, err := f.svc.Enroll(ctx, enrollment.NewEnrollment{CourseID: f.paid.ID, StudentID: f.student.ID, PaymentMethod: "card"})
	require.NoError(t, err)
	_, err = f.svc.Enroll(ctx, enrollment.NewEnrollment{CourseID: f.paid.ID, StudentID: f.student.ID, PaymentMethod: "card"})
	require.Error(t, err)

	entries := f.auditor.Entries()
	require.Len(t, entries, 2)

	ok := entries[0]
	assert.Equal(t, "enrollment.create", ok.Action)
	assert.Equal(t, f.student.ID, ok.ActorID)
	assert.Equal(t, core.AuditSucceeded, ok.Outcome)
	assert.Equal(t, rcpt.ID, ok.Details["enrollment_id"])
	assert.Equal(t, "100.00", ok.Details["amount"])

	failed := entries[1]
	assert.Equal(t, core.AuditFailed, failed.Outcome)
	assert.Equal(t, "conflict", failed.ErrorKind)
	assert.Equal(t, enrollment.ErrAlreadyEnrolled.Error(), failed.Message)
}

type panickyAuditor struct{}

func (panickyAuditor) Record(core.AuditEntry) { panic("audit sink down") }

func TestService_Enroll_auditFailureIsSwallowed(t *testing.T) {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	db := inmemdb.Open()
	svc := enrollment.NewService(
		inmemdb.NewEnrollmentRepository(db), conf, &panickyAuditor{}, emailsvc.NewConsoleServiceMock(conf, logger), logger,
	)
	std := db.AddUser(testutil.NewStudent("Ana Perez", 0))
	crs := db.AddCourse(testutil.NewCourse("Intro", "0"))

	rcpt, err := svc.Enroll(ctx, enrollment.NewEnrollment{CourseID: crs.ID, StudentID: std.ID})
	require.NoError(t, err)
	assert.NotZero(t, rcpt.ID)

	enrs, _ := db.CountEnrollments(crs.ID, std.ID)
	assert.Equal(t, 1, enrs)
}

func TestService_Enroll_receiptEmail(t *testing.T) {
	f := setup(t)
	red := f.redeem(f.student.ID, f.discount)

	_, err := f.svc.Enroll(ctx, enrollment.NewEnrollment{
		CourseID:           f.paid.ID,
		StudentID:          f.student.ID,
		PaymentMethod:      "card",
		RewardRedemptionID: intPtr(red.ID),
	})
	require.NoError(t, err)

	sent := f.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	msg := sent[0]
	require.Len(t, msg.To, 1)
	assert.Equal(t, f.student.Email, msg.To[0].Address)
	assert.Contains(t, msg.Subject, "Go 101")
	assert.True(t, strings.Contains(msg.TextContent, "80.00"), msg.TextContent)
	assert.Contains(t, msg.HTMLContent, "Go 101")

	// failures send nothing
	_, _ = f.svc.Enroll(ctx, enrollment.NewEnrollment{CourseID: f.paid.ID, StudentID: f.student.ID, PaymentMethod: "card"})
	assert.Len(t, f.mailSvc.SentMessages(), 1)
}

func TestService_GetByID(t *testing.T) {
	f := setup(t)
	rcpt, err := f.svc.Enroll(ctx, enrollment.NewEnrollment{CourseID: f.paid.ID, StudentID: f.student.ID, PaymentMethod: "card"})
	require.NoError(t, err)

	got, err := f.svc.GetByID(ctx, rcpt.ID)
	require.NoError(t, err)
	assert.Equal(t, rcpt.ID, got.ID)
	assert.Equal(t, "Go 101", got.CourseTitle)
	assert.Equal(t, rcpt.Payment.ID, got.Payment.ID)

	_, err = f.svc.GetByID(ctx, 9999)
	assert.Equal(t, enrollment.ErrNotFound, err)
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
}

func TestService_QueryByStudent(t *testing.T) {
	f := setup(t)
	for _, crs := range []course.Course{f.paid, f.cheap, f.free} {
		_, err := f.svc.Enroll(ctx, enrollment.NewEnrollment{CourseID: crs.ID, StudentID: f.student.ID, PaymentMethod: "card"})
		require.NoError(t, err)
	}
	other := f.db.AddUser(testutil.NewStudent("Luis Gomez", 0))
	_, err := f.svc.Enroll(ctx, enrollment.NewEnrollment{CourseID: f.free.ID, StudentID: other.ID})
	require.NoError(t, err)

	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     []int // course ids
	}{
		{name: "by course asc", ordering: []core.DBOrdering{{Field: "course_id", Ascending: true}}, want: []int{f.paid.ID, f.cheap.ID, f.free.ID}},
		{name: "by course desc", ordering: []core.DBOrdering{{Field: "course_id"}}, want: []int{f.free.ID, f.cheap.ID, f.paid.ID}},
		{name: "by id asc", ordering: []core.DBOrdering{{Field: "id", Ascending: true}}, want: []int{f.paid.ID, f.cheap.ID, f.free.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rcpts, err := f.svc.QueryByStudent(ctx, f.student.ID, tt.ordering...)
			require.NoError(t, err)
			got := make([]int, 0, len(rcpts))
			for _, r := range rcpts {
				got = append(got, r.CourseID)
				assert.Equal(t, f.student.ID, r.StudentID)
				assert.NotZero(t, r.Payment.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = f.svc.QueryByStudent(ctx, f.student.ID, core.DBOrdering{Field: "amount; DROP TABLE"})
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))
}

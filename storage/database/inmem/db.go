package inmemdb

import (
	"context"
	"sync"

	"github.com/aprende/academia/core/course"
	"github.com/aprende/academia/core/enrollment"
	"github.com/aprende/academia/core/reward"
	"github.com/aprende/academia/core/user"
)

type (
	// DB is an in-memory database.
	// Transactions hold the write lock for their whole duration and work on a copy of the tables,
	// which replaces the original only when the transaction succeeds.
	DB struct {
		mutex  sync.RWMutex
		t      *tables
		faults map[string]error
	}

	tables struct {
		pkCount     int
		users       map[int]user.User
		courses     map[int]course.Course
		rewards     map[int]reward.Reward
		redemptions map[int]reward.Redemption
		enrollments map[int]enrollment.Enrollment
		payments    map[int]enrollment.Payment // {enrollment_id: payment}
	}
)

func Open() *DB {
	return &DB{
		t: &tables{
			users:       make(map[int]user.User),
			courses:     make(map[int]course.Course),
			rewards:     make(map[int]reward.Reward),
			redemptions: make(map[int]reward.Redemption),
			enrollments: make(map[int]enrollment.Enrollment),
			payments:    make(map[int]enrollment.Payment),
		},
		faults: make(map[string]error),
	}
}

func (t *tables) nextPK() int {
	t.pkCount++
	return t.pkCount
}

func (t *tables) clone() *tables {
	c := &tables{
		pkCount:     t.pkCount,
		users:       make(map[int]user.User, len(t.users)),
		courses:     make(map[int]course.Course, len(t.courses)),
		rewards:     make(map[int]reward.Reward, len(t.rewards)),
		redemptions: make(map[int]reward.Redemption, len(t.redemptions)),
		enrollments: make(map[int]enrollment.Enrollment, len(t.enrollments)),
		payments:    make(map[int]enrollment.Payment, len(t.payments)),
	}
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.courses {
		c.courses[k] = v
	}
	for k, v := range t.rewards {
		c.rewards[k] = v
	}
	for k, v := range t.redemptions {
		c.redemptions[k] = v
	}
	for k, v := range t.enrollments {
		c.enrollments[k] = v
	}
	for k, v := range t.payments {
		c.payments[k] = v
	}
	return c
}

// runInTx runs fn on a copy of the tables and keeps the copy only if fn succeeds.
func (db *DB) runInTx(ctx context.Context, fn func(tx *txRepository) error) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &txRepository{t: db.t.clone(), faults: db.faults}
	if err := fn(tx); err != nil {
		return err
	}
	db.t = tx.t
	return nil
}

// InjectFault makes every call of the transactional operation `op` (eg. "CreatePayment") fail with err.
// A nil err removes the fault.
func (db *DB) InjectFault(op string, err error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if err == nil {
		delete(db.faults, op)
		return
	}
	db.faults[op] = err
}

// Seeding. The catalogs below are owned by other services in production.

func (db *DB) AddUser(usr user.User) user.User {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	usr.ID = db.t.nextPK()
	db.t.users[usr.ID] = usr
	return usr
}

func (db *DB) AddCourse(crs course.Course) course.Course {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	crs.ID = db.t.nextPK()
	db.t.courses[crs.ID] = crs
	return crs
}

func (db *DB) AddReward(rwd reward.Reward) reward.Reward {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	rwd.ID = db.t.nextPK()
	db.t.rewards[rwd.ID] = rwd
	return rwd
}

func (db *DB) AddRedemption(red reward.Redemption) reward.Redemption {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	red.ID = db.t.nextPK()
	if rwd, ok := db.t.rewards[red.RewardID]; ok {
		red.RewardName = rwd.Name
		red.DiscountPercent = rwd.DiscountPercent
	}
	db.t.redemptions[red.ID] = red
	return red
}

// Inspection helpers used by tests.

func (db *DB) GetUser(id int) (user.User, bool) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	usr, ok := db.t.users[id]
	return usr, ok
}

func (db *DB) GetRedemption(id int) (reward.Redemption, bool) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	red, ok := db.t.redemptions[id]
	return red, ok
}

func (db *DB) GetReward(id int) (reward.Reward, bool) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	rwd, ok := db.t.rewards[id]
	return rwd, ok
}

// CountEnrollments returns the number of enrollments and payments stored for the (course, student) pair.
func (db *DB) CountEnrollments(courseID, studentID int) (enrollments int, payments int) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	for _, enr := range db.t.enrollments {
		if enr.CourseID == courseID && enr.StudentID == studentID {
			enrollments++
			if _, ok := db.t.payments[enr.ID]; ok {
				payments++
			}
		}
	}
	return enrollments, payments
}

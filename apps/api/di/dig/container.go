package dig_container

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/aprende/academia/apps/api/echo"
	"github.com/aprende/academia/core"
	"github.com/aprende/academia/core/enrollment"
	"github.com/aprende/academia/core/reward"
	auditsvc "github.com/aprende/academia/services/audit"
	emailsvc "github.com/aprende/academia/services/email"
	logsvc "github.com/aprende/academia/services/logger"
	"github.com/aprende/academia/storage/database"
	inmemdb "github.com/aprende/academia/storage/database/inmem"
	boiledrepos "github.com/aprende/academia/storage/database/sqlboiler"
	sqlxrepos "github.com/aprende/academia/storage/database/sqlx"
)

const engineInMem = "inmem"

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Closer releases the storage. It waits for pending audit writes first.
	Closer func()

	storageResult struct {
		dig.Out
		EnrollmentRepo enrollment.Repository
		RewardRepo     reward.Repository
		Auditor        core.Auditor
		Close          Closer
	}
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db, "up"); err != nil {
		return nil, err
	}
	return db, nil
}

// newStorage wires the repositories and the audit sink for the configured database engine.
func newStorage(conf *core.Config, logger core.Logger, loggerParam DBLoggerParam) storageResult {
	dbLogger := loggerParam.Logger

	if conf.Database.Engine == engineInMem {
		dbLogger.Warn("using the in-memory database: data is lost on shutdown")
		db := inmemdb.Open()
		return storageResult{
			EnrollmentRepo: inmemdb.NewEnrollmentRepository(db),
			RewardRepo:     inmemdb.NewRewardRepository(db),
			Auditor:        auditsvc.NewLoggerAuditor(logger),
			Close:          func() {},
		}
	}

	db, err := setUpDB(conf)
	if err != nil {
		dbLogger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	xdb := sqlx.NewDb(db, "postgres")
	auditor := auditsvc.NewDBAuditor(xdb, dbLogger)

	return storageResult{
		EnrollmentRepo: boiledrepos.NewEnrollmentRepository(db),
		RewardRepo:     sqlxrepos.NewRewardRepository(xdb),
		Auditor:        auditor,
		Close: func() {
			auditor.Wait()
			if err := db.Close(); err != nil {
				dbLogger.Error("Failed to close", err)
			}
		},
	}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, log.New(os.Stdout, "", 0), logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	enrSvc *enrollment.Service,
	rwdSvc *reward.Service,
	validate *validator.Validate,
	translator ut.Translator,
) echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		EnrollmentSvc: enrSvc,
		RewardSvc:     rwdSvc,
		Validate:      validate,
		Translator:    translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewValidator))
	must(c.Provide(enrollment.NewService))
	must(c.Provide(reward.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}

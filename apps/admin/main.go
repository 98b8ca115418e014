package main

import (
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/aprende/academia/assets"
	"github.com/aprende/academia/core"
	"github.com/aprende/academia/core/enrollment"
	auditsvc "github.com/aprende/academia/services/audit"
	emailsvc "github.com/aprende/academia/services/email"
	logsvc "github.com/aprende/academia/services/logger"
	"github.com/aprende/academia/storage/database"
	boiledrepos "github.com/aprende/academia/storage/database/sqlboiler"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// set up services
	core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, logger)
	var mailSvc interface {
		core.EmailService
		Wait()
	}
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, log.New(os.Stdout, "", 0), logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	auditor := auditsvc.NewDBAuditor(sqlx.NewDb(db, "postgres"), logger)
	enrSvc := enrollment.NewService(boiledrepos.NewEnrollmentRepository(db), conf, auditor, mailSvc, logger)

	// start CLI
	cli := commandLine{
		out:    os.Stdout,
		db:     dbMigrator{db: db},
		enrSvc: enrSvc,
	}
	err = cli.run(os.Args)
	mailSvc.Wait()
	auditor.Wait()
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		os.Exit(1)
	}
}

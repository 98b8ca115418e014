package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/aprende/academia/core/enrollment"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	out    io.Writer
	db     migrator
	enrSvc *enrollment.Service
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix)")
	fmt.Fprintln(cli.out, "  enroll -course ID -student ID [-method METHOD] [-redemption ID] [-points N] - enroll a student in a course")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	enrollCmd := flag.NewFlagSet("enroll", flag.ContinueOnError)
	enrollCmd.SetOutput(cli.out)
	enrollCourse := enrollCmd.Int("course", 0, "The course ID.")
	enrollStudent := enrollCmd.Int("student", 0, "The student ID.")
	enrollMethod := enrollCmd.String("method", "", "The payment method. Required for paid courses.")
	enrollRedemption := enrollCmd.Int("redemption", 0, "An available discount redemption of the student.")
	enrollPoints := enrollCmd.Int("points", 0, "Points to spend as a discount.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "enroll":
		if err := enrollCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *enrollCourse <= 0 || *enrollStudent <= 0 {
			enrollCmd.Usage()
			return errHelp
		}
		data := enrollment.NewEnrollment{
			CourseID:      *enrollCourse,
			StudentID:     *enrollStudent,
			PaymentMethod: *enrollMethod,
			PointsUsed:    *enrollPoints,
		}
		if *enrollRedemption > 0 {
			data.RewardRedemptionID = enrollRedemption
		}
		return cli.enroll(context.Background(), data)
	default:
		cli.printUsage()
		return errHelp
	}
}

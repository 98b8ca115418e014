package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/aprende/academia/core"
	"github.com/aprende/academia/core/enrollment"
)

func (cli *commandLine) enroll(ctx context.Context, data enrollment.NewEnrollment) error {
	rcpt, err := cli.enrSvc.Enroll(ctx, data)
	if err != nil {
		if kind := core.KindOf(err); kind != core.KindInternal {
			return errors.WithMessage(err, kind.String())
		}
		return err
	}

	pmt := rcpt.Payment
	fmt.Fprintf(cli.out, "enrollment #%d: student %d in course %d\n", rcpt.ID, rcpt.StudentID, rcpt.CourseID)
	fmt.Fprintf(cli.out, "payment #%d: %s paid by %s (discount %s", pmt.ID,
		pmt.Amount.StringFixed(2), pmt.Method, pmt.DiscountApplied.StringFixed(2))
	if pmt.RewardRedemptionID != nil {
		fmt.Fprintf(cli.out, ", redemption #%d", *pmt.RewardRedemptionID)
	}
	if pmt.PointsUsed > 0 {
		fmt.Fprintf(cli.out, ", %d points", pmt.PointsUsed)
	}
	fmt.Fprintln(cli.out, ")")
	return nil
}

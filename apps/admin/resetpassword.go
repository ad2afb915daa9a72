package main

import (
	"context"

	"github.com/trezcool/shiksha/core/staff"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	stf, err := cli.staffRepo.GetStaff(ctx, staff.GetFilter{UsernameOrEmail: uname})
	if err != nil {
		return err
	}
	if err := stf.SetPassword(pwd); err != nil {
		return err
	}
	stf.UpdatedAt = staff.NowFunc().UTC()
	if _, err := cli.staffRepo.UpdateStaff(ctx, stf); err != nil {
		return err
	}
	return nil
}

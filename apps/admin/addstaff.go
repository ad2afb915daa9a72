package main

import (
	"context"

	"github.com/trezcool/shiksha/core"
	"github.com/trezcool/shiksha/core/staff"
)

// addStaff updates or creates a staff.Staff account.
func (cli *commandLine) addStaff(uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	stf, err := cli.staffRepo.GetStaff(ctx, staff.GetFilter{Username: uname})
	if err == staff.ErrNotFound {
		stf, err = cli.staffRepo.GetStaff(ctx, staff.GetFilter{Email: email})
	}
	create := err == staff.ErrNotFound
	if err != nil && !create {
		return err
	}
	if create {
		stf = staff.Staff{
			Name:      uname,
			CreatedAt: staff.NowFunc().UTC(),
		}
	}

	stf.Username = uname
	stf.Email = email
	if isAdmin {
		stf.Roles = staff.AllRoles
	}
	stf.SetActive(true)
	if err := stf.SetPassword(pwd); err != nil {
		return err
	}
	stf.UpdatedAt = staff.NowFunc().UTC()

	if create {
		_, err = cli.staffRepo.CreateStaff(ctx, stf)
	} else {
		_, err = cli.staffRepo.UpdateStaff(ctx, stf)
	}
	return err
}

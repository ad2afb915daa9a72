package main

import (
	"context"
	"fmt"
)

// assignIDs backfills student IDs for rows registered before ID allocation
// existed (or whose registration was interrupted mid-flight).
func (cli *commandLine) assignIDs() error {
	ctx := context.Background()

	students, err := cli.studentSvc.MissingHumanID(ctx)
	if err != nil {
		return err
	}
	if len(students) == 0 {
		fmt.Println("no students missing an ID")
		return nil
	}

	for _, stu := range students {
		assigned, err := cli.studentSvc.AssignHumanID(ctx, stu.ID)
		if err != nil {
			return fmt.Errorf("assigning ID to student %s: %w", stu.ID, err)
		}
		fmt.Printf("%s -> %s\n", assigned.Name, assigned.HumanID)
	}
	fmt.Printf("assigned %d student ID(s)\n", len(students))
	return nil
}

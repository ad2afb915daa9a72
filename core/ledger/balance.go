package ledger

import (
	"sort"

	"github.com/trezcool/shiksha/core/student"
)

// Epsilon is the money comparison tolerance: amounts within a paisa of each
// other are considered equal.
const Epsilon = 0.01

// Compute derives a student's Balance from their batch, installment schedule
// and full payment history. It is a pure function: balances are re-derived
// from the append-only history on every read, never cached.
//
// Generic PAID records form a floating credit pool applied to installments
// oldest-first when building the breakdown, so legacy flat payments settle
// the earliest outstanding obligations first.
func Compute(
	batch student.Batch,
	stu student.Student,
	installments []student.FeeInstallment,
	payments []FeePayment,
	records []FeeRecord,
) Balance {
	insts := make([]student.FeeInstallment, len(installments))
	copy(insts, installments)
	sort.SliceStable(insts, func(i, j int) bool { return insts[i].CreatedAt.Before(insts[j].CreatedAt) })

	var totalFee float64
	if len(insts) > 0 {
		for _, inst := range insts {
			totalFee += inst.Amount
		}
	} else {
		totalFee = batch.FeeAmount
	}

	paidByInst := make(map[string]float64, len(insts))
	var totalPaid float64
	for _, p := range payments {
		paidByInst[p.InstallmentID] += p.Amount
		totalPaid += p.Amount
	}

	var pool float64 // unallocated generic credit
	for _, r := range records {
		if r.Status == StatusPaid {
			pool += r.Amount
			totalPaid += r.Amount
		}
	}

	bal := Balance{
		TotalFee:  totalFee,
		TotalPaid: totalPaid,
		Balance:   totalFee - totalPaid,
	}

	for _, inst := range insts {
		due := inst.Amount - paidByInst[inst.ID]
		if due > 0 && pool > 0 {
			applied := due
			if pool < applied {
				applied = pool
			}
			due -= applied
			pool -= applied
		}
		if due > Epsilon {
			bal.Breakdown = append(bal.Breakdown, InstallmentDue{
				InstallmentID: inst.ID,
				Name:          inst.Name,
				Due:           due,
			})
			if bal.OldestDue == nil {
				dueDate := inst.CreatedAt
				bal.OldestDue = &dueDate
			}
		}
	}

	// flat-fee batch: the student's own registration date stands in for the
	// missing schedule
	if len(insts) == 0 && bal.Balance > Epsilon {
		dueDate := stu.CreatedAt
		bal.OldestDue = &dueDate
	}

	return bal
}

// remainingOn computes what is still owed on one installment from the
// cumulative sum of every payment recorded against it. Summing all rows (not
// just the latest) is load-bearing: partial payments accumulate over time.
func remainingOn(inst student.FeeInstallment, payments []FeePayment) float64 {
	var paid float64
	for _, p := range payments {
		if p.InstallmentID == inst.ID {
			paid += p.Amount
		}
	}
	return inst.Amount - paid
}

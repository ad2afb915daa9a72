package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/trezcool/shiksha/core/ledger"
	"github.com/trezcool/shiksha/core/staff"
	testutil "github.com/trezcool/shiksha/tests"
)

func TestLedgerAPI(t *testing.T) {
	_, deskToken := createStaff(t, []string{staff.RoleAccountant})

	now := time.Now().UTC()
	batch := createTestBatch(t, "Accountancy")
	inst1 := testutil.CreateInstallment(t, studentRepo, batch.ID, "Term 1", 100, now)
	inst2 := testutil.CreateInstallment(t, studentRepo, batch.ID, "Term 2", 200, now.Add(time.Hour))
	stu := testutil.CreateStudent(t, studentRepo, batch.ID, "ACC26001", "Asha Rao", "9876500020")

	balancePath := fmt.Sprintf("/v1/students/%s/balance", stu.ID)
	paymentsPath := fmt.Sprintf("/v1/students/%s/payments", stu.ID)
	instPaymentsPath := fmt.Sprintf("/v1/students/%s/installment-payments", stu.ID)
	statementPath := fmt.Sprintf("/v1/students/%s/statement", stu.ID)

	getBalance := func(t *testing.T) ledger.Balance {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, balancePath, deskToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("balance code = %v; body %s", rec.Code, rec.Body.String())
		}
		var bal ledger.Balance
		if err := json.Unmarshal(rec.Body.Bytes(), &bal); err != nil {
			t.Fatalf("unmarshalling balance: %v", err)
		}
		return bal
	}

	t.Run("requires auth", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, balancePath)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("fresh balance", func(t *testing.T) {
		bal := getBalance(t)
		if bal.TotalFee != 300 || bal.Balance != 300 {
			t.Errorf("unexpected balance: %+v", bal)
		}
		if len(bal.Breakdown) != 2 {
			t.Errorf("breakdown len = %d; want 2", len(bal.Breakdown))
		}
	})

	t.Run("installment payment", func(t *testing.T) {
		body := marchallObj(t, ledger.InstallmentPayment{InstallmentID: inst1.ID, Amount: 60})
		req, rec := newAuthRequest(http.MethodPost, instPaymentsPath, deskToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}

		bal := getBalance(t)
		if bal.Balance != 240 {
			t.Errorf("balance = %v; want 240", bal.Balance)
		}
	})

	t.Run("installment overpayment", func(t *testing.T) {
		// only 40 left on Term 1
		body := marchallObj(t, ledger.InstallmentPayment{InstallmentID: inst1.ID, Amount: 45})
		req, rec := newAuthRequest(http.MethodPost, instPaymentsPath, deskToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusConflict {
			t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusConflict, rec.Body.String())
		}
	})

	t.Run("generic payment allocates oldest first", func(t *testing.T) {
		body := marchallObj(t, ledger.Payment{Amount: 140})
		req, rec := newAuthRequest(http.MethodPost, paymentsPath, deskToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}

		var alloc ledger.Allocation
		if err := json.Unmarshal(rec.Body.Bytes(), &alloc); err != nil {
			t.Fatalf("unmarshalling allocation: %v", err)
		}
		// 40 settles Term 1, 100 lands on Term 2
		if len(alloc.Payments) != 2 {
			t.Fatalf("allocation payments = %d; want 2", len(alloc.Payments))
		}
		if alloc.Payments[0].InstallmentID != inst1.ID || alloc.Payments[0].Amount != 40 {
			t.Errorf("unexpected first allocation: %+v", alloc.Payments[0])
		}
		if alloc.Payments[1].InstallmentID != inst2.ID || alloc.Payments[1].Amount != 100 {
			t.Errorf("unexpected second allocation: %+v", alloc.Payments[1])
		}

		bal := getBalance(t)
		if bal.Balance != 100 {
			t.Errorf("balance = %v; want 100", bal.Balance)
		}
	})

	t.Run("overpayment beyond balance", func(t *testing.T) {
		body := marchallObj(t, ledger.Payment{Amount: 101})
		req, rec := newAuthRequest(http.MethodPost, paymentsPath, deskToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusConflict {
			t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusConflict, rec.Body.String())
		}
	})

	t.Run("statement lists the full history", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, statementPath, deskToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var statement struct {
			Payments []ledger.FeePayment `json:"payments"`
			Records  []ledger.FeeRecord  `json:"records"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &statement); err != nil {
			t.Fatalf("unmarshalling statement: %v", err)
		}
		if len(statement.Payments) != 3 {
			t.Errorf("payments = %d; want 3", len(statement.Payments))
		}
	})

	t.Run("unknown student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/nope/balance", deskToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})
}

// validation errors surface as field maps
func TestLedgerAPI_validation(t *testing.T) {
	_, deskToken := createStaff(t, []string{staff.RoleAccountant})
	batch := createTestBatch(t, "Hindi")
	stu := testutil.CreateStudent(t, studentRepo, batch.ID, "HIN26001", "Vikram Shah", "9876500021")

	body := marchallObj(t, ledger.Payment{Amount: -5})
	req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/students/%s/payments", stu.ID), deskToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
	}
}

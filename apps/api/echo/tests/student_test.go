package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/trezcool/shiksha/core/staff"
	"github.com/trezcool/shiksha/core/student"
	testutil "github.com/trezcool/shiksha/tests"
)

func createTestBatch(t *testing.T, subject string) student.Batch {
	t.Helper()
	return testutil.CreateBatch(
		t, studentRepo, subject+" "+testutil.RandomStr(6), subject, 1200,
		time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC),
	)
}

func TestBatchAPI(t *testing.T) {
	_, adminToken := createStaff(t, staff.AllRoles)
	_, deskToken := createStaff(t, []string{staff.RoleFrontdesk})

	t.Run("create requires admin", func(t *testing.T) {
		body := marchallObj(t, student.NewBatch{Name: "Maths Evening", Subject: "Mathematics", FeeAmount: 1500})

		req, rec := newRequest(http.MethodPost, "/v1/batches", body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)

		req, rec = newAuthRequest(http.MethodPost, "/v1/batches", deskToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}

		req, rec = newAuthRequest(http.MethodPost, "/v1/batches", adminToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		var batch student.Batch
		if err := json.Unmarshal(rec.Body.Bytes(), &batch); err != nil {
			t.Fatalf("unmarshalling batch: %v", err)
		}
		if batch.ID == "" {
			t.Error("expected a batch ID")
		}
	})

	t.Run("create validates payload", func(t *testing.T) {
		body := marchallObj(t, student.NewBatch{Subject: "Mathematics"}) // missing name
		req, rec := newAuthRequest(http.MethodPost, "/v1/batches", adminToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("retrieve unknown batch", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/batches/nope", deskToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("installments", func(t *testing.T) {
		batch := createTestBatch(t, "Physics")
		body := marchallObj(t, student.NewFeeInstallment{Name: "Term 1", Amount: 500})

		req, rec := newAuthRequest(http.MethodPost, "/v1/batches/"+batch.ID+"/installments", adminToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/batches/"+batch.ID+"/installments", deskToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
		}
		var insts []student.FeeInstallment
		if err := json.Unmarshal(rec.Body.Bytes(), &insts); err != nil {
			t.Fatalf("unmarshalling installments: %v", err)
		}
		if len(insts) != 1 || insts[0].Name != "Term 1" {
			t.Errorf("unexpected installments: %+v", insts)
		}
	})
}

func TestStudentAPI_register(t *testing.T) {
	_, deskToken := createStaff(t, []string{staff.RoleFrontdesk})
	batch := createTestBatch(t, "Chemistry")

	newStudent := func(name, contact string) []byte {
		return marchallObj(t, student.NewStudent{
			BatchID:       batch.ID,
			Name:          name,
			ParentName:    "Parent",
			ParentContact: contact,
		})
	}

	t.Run("register allocates an ID", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", deskToken, newStudent("Asha Rao", "9876500001"))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		var stu student.Student
		if err := json.Unmarshal(rec.Body.Bytes(), &stu); err != nil {
			t.Fatalf("unmarshalling student: %v", err)
		}
		if stu.HumanID != "CHM26001" {
			t.Errorf("HumanID = %q; want %q", stu.HumanID, "CHM26001")
		}
	})

	t.Run("duplicate returns 200 with existing row", func(t *testing.T) {
		body := newStudent("Vikram Shah", "9876500002")

		req, rec := newAuthRequest(http.MethodPost, "/v1/students", deskToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusCreated)
		}
		var first student.Student
		_ = json.Unmarshal(rec.Body.Bytes(), &first)

		req, rec = newAuthRequest(http.MethodPost, "/v1/students", deskToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
		}
		var again student.Student
		_ = json.Unmarshal(rec.Body.Bytes(), &again)
		if again.ID != first.ID || again.HumanID != first.HumanID {
			t.Errorf("duplicate registration returned a different row: %+v vs %+v", again, first)
		}
	})

	t.Run("validation failure", func(t *testing.T) {
		body := marchallObj(t, student.NewStudent{BatchID: batch.ID}) // missing name & contact
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", deskToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("unknown batch", func(t *testing.T) {
		body := marchallObj(t, student.NewStudent{
			BatchID:       "nope",
			Name:          "Asha Rao",
			ParentContact: "9876500009",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", deskToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})
}

func TestStudentAPI_assignID(t *testing.T) {
	_, adminToken := createStaff(t, staff.AllRoles)
	_, deskToken := createStaff(t, []string{staff.RoleFrontdesk})
	batch := createTestBatch(t, "Economics")

	stu := testutil.CreateStudent(t, studentRepo, batch.ID, "", "Ravi Iyer", "9876500010")

	t.Run("missing-ids lists the row", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/missing-ids", adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
		}
		var students []student.Student
		if err := json.Unmarshal(rec.Body.Bytes(), &students); err != nil {
			t.Fatalf("unmarshalling students: %v", err)
		}
		var found bool
		for _, s := range students {
			if s.ID == stu.ID {
				found = true
			}
		}
		if !found {
			t.Errorf("student %s not listed in %+v", stu.ID, students)
		}
	})

	t.Run("assign is admin only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/students/%s/assign-id", stu.ID), deskToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}

		req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/students/%s/assign-id", stu.ID), adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var assigned student.Student
		if err := json.Unmarshal(rec.Body.Bytes(), &assigned); err != nil {
			t.Fatalf("unmarshalling student: %v", err)
		}
		if assigned.HumanID == "" {
			t.Error("expected an assigned student ID")
		}

		// idempotent
		req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/students/%s/assign-id", stu.ID), adminToken)
		app.ServeHTTP(rec, req)
		var again student.Student
		_ = json.Unmarshal(rec.Body.Bytes(), &again)
		if again.HumanID != assigned.HumanID {
			t.Errorf("reassigned ID %q; want %q", again.HumanID, assigned.HumanID)
		}
	})
}

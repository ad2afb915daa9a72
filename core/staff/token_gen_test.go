package staff

import (
	"testing"
	"time"

	"github.com/trezcool/shiksha/core"
)

func TestMakeVerifyToken(t *testing.T) {
	conf := &core.Config{
		SecretKey:                 "secret",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
	}
	svc := &service{conf: conf}

	now := time.Now()
	stf := Staff{
		ID:        "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		Name:      "T",
		Username:  "t",
		Email:     "t@test.test",
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	stf.SetActive(true)
	_ = stf.SetPassword("pwd")

	validToken, err := svc.MakeToken(stf)
	if err != nil {
		t.Fatalf("MakeToken() failed: %v", err)
	}

	// generate an expired token
	dayLate := conf.PasswordResetTimeoutDelta + (24 * time.Hour)
	NowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, err := svc.MakeToken(stf)
	if err != nil {
		t.Fatalf("MakeToken() failed: %v", err)
	}
	NowFunc = time.Now // reset

	tests := []struct {
		name    string
		stf     Staff
		token   string
		wantErr error
	}{
		{name: "no token", stf: stf, wantErr: errInvalidToken},
		{name: "invalid parts len", stf: stf, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", stf: stf, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", stf: stf, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", stf: stf, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", stf: stf, token: expiredToken, wantErr: errTokenExpired},
		{name: "valid token", stf: stf, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.verifyToken(tt.stf, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	stf := Staff{ID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8"}
	uid := EncodeUID(stf)

	id, err := decodeUID(uid)
	if err != nil {
		t.Fatalf("decodeUID() failed: %v", err)
	}
	if id != stf.ID {
		t.Errorf("decodeUID() = %s, want %s", id, stf.ID)
	}

	if _, err = decodeUID("???not-base64???"); err == nil {
		t.Error("decodeUID() expected error for invalid input")
	}
}

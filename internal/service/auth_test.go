package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/eventsphere/internal/apperr"
	"github.com/dukerupert/eventsphere/internal/model"
)

func registerInput() RegisterInput {
	return RegisterInput{
		Name:     "Grace Hopper",
		Email:    "  Grace@Example.com ",
		Password: "Str0ng!pass",
	}
}

func TestRegister(t *testing.T) {
	f := setup(t)

	sess, err := f.authSvc.Register(registerInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if sess.Token == "" {
		t.Error("expected token")
	}
	if sess.User.Email != "grace@example.com" {
		t.Errorf("Email = %q, want lowercased", sess.User.Email)
	}
	if sess.User.Role != model.RoleUser {
		t.Errorf("Role = %q, want user", sess.User.Role)
	}

	in := registerInput()
	in.Name = "Someone Else"
	_, err = f.authSvc.Register(in)
	wantKind(t, err, apperr.KindConflict, "Email already in use")
}

func TestRegisterRules(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		msg    string
	}{
		{"missing", func(in *RegisterInput) { in.Name, in.Password = "", "" }, "Missing required fields: name, password"},
		{"digits in name", func(in *RegisterInput) { in.Name = "R2D2" }, "Name can only contain letters and spaces (no numbers or special characters)"},
		{"bad email", func(in *RegisterInput) { in.Email = "grace@" }, "Please enter a valid email address"},
		{"weak password", func(in *RegisterInput) { in.Password = "password1!" }, "Password must contain at least one uppercase letter"},
		{"admin role", func(in *RegisterInput) { in.Role = "admin" }, "role must be one of user organizer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := registerInput()
			tt.mutate(&in)
			_, err := f.authSvc.Register(in)
			wantKind(t, err, apperr.KindValidation, tt.msg)
		})
	}
}

func TestRegisterOrganizer(t *testing.T) {
	f := setup(t)

	in := registerInput()
	in.Role = "organizer"
	sess, err := f.authSvc.Register(in)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if sess.User.Role != model.RoleOrganizer {
		t.Errorf("Role = %q, want organizer", sess.User.Role)
	}
}

func TestLogin(t *testing.T) {
	f := setup(t)
	reg, err := f.authSvc.Register(registerInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	sess, err := f.authSvc.Login(LoginInput{Email: "GRACE@example.com", Password: "Str0ng!pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.User.ID != reg.User.ID {
		t.Errorf("logged in as %q, want %q", sess.User.ID, reg.User.ID)
	}

	_, err = f.authSvc.Login(LoginInput{Email: "grace@example.com", Password: "wrong"})
	wantKind(t, err, apperr.KindUnauthorized, "Invalid credentials")

	_, err = f.authSvc.Login(LoginInput{Email: "nobody@example.com", Password: "Str0ng!pass"})
	wantKind(t, err, apperr.KindUnauthorized, "Invalid credentials")

	f.users.SetBlocked(reg.User.ID, true)
	_, err = f.authSvc.Login(LoginInput{Email: "grace@example.com", Password: "Str0ng!pass"})
	wantKind(t, err, apperr.KindForbidden, "Account is blocked")
}

func TestPasswordResetFlow(t *testing.T) {
	f := setup(t)
	f.authSvc.now = func() time.Time { return fixedNow }
	if _, err := f.authSvc.Register(registerInput()); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := f.authSvc.ForgotPassword("nobody@example.com"); err != nil {
		t.Fatalf("forgot for unknown email: %v", err)
	}
	if err := f.authSvc.ForgotPassword("grace@example.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	token := f.mailer.resets["grace@example.com"]
	if token == "" {
		t.Fatal("expected reset email")
	}
	if len(f.mailer.resets) != 1 {
		t.Errorf("resets = %v, want one", f.mailer.resets)
	}

	err := f.authSvc.ResetPassword(ResetPasswordInput{Token: "bogus", Password: "N3w!password"})
	wantKind(t, err, apperr.KindValidation, "Invalid or expired reset token")

	if err := f.authSvc.ResetPassword(ResetPasswordInput{Token: token, Password: "N3w!password"}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := f.authSvc.Login(LoginInput{Email: "grace@example.com", Password: "N3w!password"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	// Tokens are single use.
	err = f.authSvc.ResetPassword(ResetPasswordInput{Token: token, Password: "An0ther!pass"})
	wantKind(t, err, apperr.KindValidation, "Invalid or expired reset token")
}

func TestPasswordResetExpired(t *testing.T) {
	f := setup(t)
	f.authSvc.now = func() time.Time { return fixedNow }
	f.authSvc.Register(registerInput())
	f.authSvc.ForgotPassword("grace@example.com")
	token := f.mailer.resets["grace@example.com"]

	f.authSvc.now = func() time.Time { return fixedNow.Add(2 * time.Hour) }
	err := f.authSvc.ResetPassword(ResetPasswordInput{Token: token, Password: "N3w!password"})
	wantKind(t, err, apperr.KindValidation, "Invalid or expired reset token")
}

func TestPasswordResetConcurrentUse(t *testing.T) {
	f := setup(t)
	f.authSvc.now = func() time.Time { return fixedNow }
	f.authSvc.Register(registerInput())
	f.authSvc.ForgotPassword("grace@example.com")
	token := f.mailer.resets["grace@example.com"]

	const n = 5
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- f.authSvc.ResetPassword(ResetPasswordInput{Token: token, Password: fmt.Sprintf("N3w!password%d", i)})
		}(i)
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		wantKind(t, err, apperr.KindValidation, "Invalid or expired reset token")
	}
	if ok != 1 {
		t.Errorf("successful resets = %d, want 1", ok)
	}
}

func TestMe(t *testing.T) {
	f := setup(t)

	u, err := f.authSvc.Me(f.attendee.ID)
	if err != nil || u.Email != "adam@example.com" {
		t.Fatalf("me = %+v, err = %v", u, err)
	}
	_, err = f.authSvc.Me("missing")
	wantKind(t, err, apperr.KindNotFound, "User not found")
}

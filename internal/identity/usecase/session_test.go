package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/phoneauth/internal/pkg/goerror"
	"github.com/shandysiswandi/phoneauth/internal/pkg/uid"
)

func TestRefreshToken_Rotates(t *testing.T) {
	// Arrange
	f := newFixture(t, "")
	login := f.login(t, phoneA)
	f.clock.Advance(time.Minute)

	// Act
	out, err := f.uc.RefreshToken(context.Background(), RefreshTokenInput{RefreshToken: login.Session.RefreshToken})

	// Assert
	if err != nil {
		t.Fatalf("RefreshToken() error = %v", err)
	}
	if out.Session.RefreshToken == login.Session.RefreshToken || !uid.IsToken(out.Session.RefreshToken) {
		t.Fatalf("refresh token not rotated: %q", out.Session.RefreshToken)
	}
	if out.Session.CSRFToken != "" {
		t.Fatalf("refresh must not rotate the csrf token")
	}
	if clm, err := f.jwt.Verify(out.Session.AccessToken); err != nil || clm.UserPhone != phoneA {
		t.Fatalf("access claims = %+v, err = %v", clm, err)
	}
}

func TestRefreshToken_ReuseRevokesEverySession(t *testing.T) {
	// Arrange
	f := newFixture(t, "")
	ctx := context.Background()
	login := f.login(t, phoneA)

	rotated, err := f.uc.RefreshToken(ctx, RefreshTokenInput{RefreshToken: login.Session.RefreshToken})
	if err != nil {
		t.Fatalf("RefreshToken() error = %v", err)
	}

	// Act
	_, reuseErr := f.uc.RefreshToken(ctx, RefreshTokenInput{RefreshToken: login.Session.RefreshToken})
	_, nextErr := f.uc.RefreshToken(ctx, RefreshTokenInput{RefreshToken: rotated.Session.RefreshToken})

	// Assert
	gerr := assertCode(t, reuseErr, goerror.CodeForbidden)
	if gerr.Msg() != msgTokenReused {
		t.Fatalf("message = %q", gerr.Msg())
	}
	assertCode(t, nextErr, goerror.CodeUnauthorized)
}

func TestRefreshToken_Rejections(t *testing.T) {
	f := newFixture(t, "")
	login := f.login(t, phoneA)

	tests := []struct {
		name    string
		token   string
		advance time.Duration
		want    goerror.Code
	}{
		{name: "missing cookie", token: "", want: goerror.CodeForbidden},
		{name: "malformed", token: "not-a-token", want: goerror.CodeUnauthorized},
		{name: "unknown", token: uid.NewToken().Generate(), want: goerror.CodeUnauthorized},
		{name: "expired", token: login.Session.RefreshToken, advance: 30 * 24 * time.Hour, want: goerror.CodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.clock.Advance(tt.advance)

			_, err := f.uc.RefreshToken(context.Background(), RefreshTokenInput{RefreshToken: tt.token})

			assertCode(t, err, tt.want)
		})
	}
}

func TestRefreshToken_ConcurrentSingleWinner(t *testing.T) {
	// Arrange
	f := newFixture(t, "")
	login := f.login(t, phoneA)

	const callers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
		errs []error
	)

	// Act
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.uc.RefreshToken(context.Background(), RefreshTokenInput{RefreshToken: login.Session.RefreshToken})

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			errs = append(errs, err)
		}()
	}
	wg.Wait()

	// Assert
	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}
	for _, err := range errs {
		gerr, ok := goerror.As(err)
		if !ok || (gerr.Code() != goerror.CodeUnauthorized && gerr.Code() != goerror.CodeForbidden) {
			t.Fatalf("loser error = %v, want 401 or 403", err)
		}
	}
}

func TestLogout(t *testing.T) {
	// Arrange
	f := newFixture(t, "")
	login := f.login(t, phoneA)
	ctx := f.authCtx(t, login.Session.AccessToken)
	in := LogoutInput{RefreshToken: login.Session.RefreshToken}

	// Act
	first := f.uc.Logout(ctx, in)
	second := f.uc.Logout(ctx, in)
	_, refreshErr := f.uc.RefreshToken(context.Background(), RefreshTokenInput{RefreshToken: login.Session.RefreshToken})

	// Assert
	if first != nil || second != nil {
		t.Fatalf("Logout() errors = %v, %v, want idempotent success", first, second)
	}
	assertCode(t, refreshErr, goerror.CodeUnauthorized)
}

func TestLogout_Rejections(t *testing.T) {
	f := newFixture(t, "")
	login := f.login(t, phoneA)
	authed := f.authCtx(t, login.Session.AccessToken)

	tests := []struct {
		name  string
		ctx   context.Context
		token string
		want  goerror.Code
	}{
		{name: "unauthenticated", ctx: context.Background(), token: login.Session.RefreshToken, want: goerror.CodeUnauthorized},
		{name: "missing cookie", ctx: authed, token: "", want: goerror.CodeForbidden},
		{name: "malformed cookie", ctx: authed, token: "abc", want: goerror.CodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.uc.Logout(tt.ctx, LogoutInput{RefreshToken: tt.token})
			assertCode(t, err, tt.want)
		})
	}
}

func TestLogout_ForeignTokenUntouched(t *testing.T) {
	f := newFixture(t, "")
	alice := f.login(t, phoneA)
	bob := f.login(t, phoneB)

	err := f.uc.Logout(f.authCtx(t, alice.Session.AccessToken), LogoutInput{RefreshToken: bob.Session.RefreshToken})
	if err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	if _, err := f.uc.RefreshToken(context.Background(), RefreshTokenInput{RefreshToken: bob.Session.RefreshToken}); err != nil {
		t.Fatalf("bob's token was revoked by alice: %v", err)
	}
}

package usecase

import (
	"context"
	"testing"

	"github.com/shandysiswandi/phoneauth/internal/identity/entity"
	"github.com/shandysiswandi/phoneauth/internal/pkg/goerror"
	"github.com/shandysiswandi/phoneauth/internal/pkg/jwt"
)

func TestProfile(t *testing.T) {
	// Arrange
	f := newFixture(t, "")
	f.db.PutUser(entity.User{ID: 9, Phone: phoneA, FirstName: "sara", LastName: "ahmadi", IsActive: true, CreatedAt: t0})
	ctx := jwt.SetAuth(context.Background(), jwt.Claims{UserID: 9, UserPhone: phoneA})

	// Act
	out, err := f.uc.Profile(ctx)

	// Assert
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if out.ID != 9 || out.Phone != phoneA || out.FullName != "Sara Ahmadi" || !out.CreatedAt.Equal(t0) {
		t.Fatalf("out = %+v", out)
	}
}

func TestProfile_Rejections(t *testing.T) {
	f := newFixture(t, "")
	f.db.PutUser(entity.User{ID: 3, Phone: phoneB, IsActive: false})

	tests := []struct {
		name string
		ctx  context.Context
		want goerror.Code
	}{
		{name: "unauthenticated", ctx: context.Background(), want: goerror.CodeUnauthorized},
		{name: "deleted user", ctx: jwt.SetAuth(context.Background(), jwt.Claims{UserID: 404}), want: goerror.CodeUnauthorized},
		{name: "disabled user", ctx: jwt.SetAuth(context.Background(), jwt.Claims{UserID: 3}), want: goerror.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.Profile(tt.ctx)
			assertCode(t, err, tt.want)
		})
	}
}

func TestCSRFToken(t *testing.T) {
	f := newFixture(t, "")

	kept, _ := f.uc.CSRFToken(context.Background(), CSRFTokenInput{Current: "abc"})
	issued, _ := f.uc.CSRFToken(context.Background(), CSRFTokenInput{})

	if kept.Token != "abc" || kept.Issued {
		t.Fatalf("kept = %+v", kept)
	}
	if issued.Token == "" || !issued.Issued {
		t.Fatalf("issued = %+v", issued)
	}
}

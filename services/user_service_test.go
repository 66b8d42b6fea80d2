package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Dosada05/contest-hub/models"
)

func TestUserStatsFor(t *testing.T) {
	tests := []struct {
		participated, won int
		want              models.UserStats
	}{
		{0, 0, models.UserStats{}},
		{3, 1, models.UserStats{Participated: 3, Won: 1, Active: 2, WinPercentage: 33}},
		{3, 2, models.UserStats{Participated: 3, Won: 2, Active: 1, WinPercentage: 67}},
		{2, 2, models.UserStats{Participated: 2, Won: 2, WinPercentage: 100}},
	}
	for _, tt := range tests {
		if got := UserStatsFor(tt.participated, tt.won); got != tt.want {
			t.Errorf("UserStatsFor(%d, %d) = %+v, want %+v", tt.participated, tt.won, got, tt.want)
		}
	}
}

func newUserFixture() (*userService, *fakeUserRepo, *fakeIdentity, *fakeUploader) {
	users := &fakeUserRepo{users: []models.User{{ID: "u1", Email: viewer.Email, DisplayName: "Ann", PhotoURL: "https://img/old.png"}}}
	won := openContest("w1")
	won.Winner = &models.Winner{Name: "Ann", Email: viewer.Email}
	contests := newFakeContestRepo(won, openContest("c2"))
	payments := &fakePaymentRepo{registrations: []models.Registration{
		{ID: "r1", ContestID: "w1", ParticipantEmail: viewer.Email, PaymentStatus: "Paid"},
		{ID: "r2", ContestID: "c2", ParticipantEmail: viewer.Email, PaymentStatus: "Paid"},
	}}
	identity := &fakeIdentity{}
	uploader := &fakeUploader{}
	svc := NewUserService(users, contests, payments, identity, newCache(), uploader, discardLogger()).(*userService)
	return svc, users, identity, uploader
}

func TestUserOverview(t *testing.T) {
	svc, _, _, _ := newUserFixture()
	stats, err := svc.Overview(context.Background(), viewer)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	want := models.UserStats{Participated: 2, Won: 1, Active: 1, WinPercentage: 50}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
	if _, err := svc.Overview(context.Background(), nil); !errors.Is(err, ErrAuthenticationRequired) {
		t.Errorf("anonymous: %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, users, identity, _ := newUserFixture()
	session := &Session{Principal: *viewer, IDToken: "tok"}
	ctx := context.Background()

	if _, err := svc.Profile(ctx, viewer); err != nil {
		t.Fatal(err)
	}
	updated, err := svc.UpdateProfile(ctx, session, models.ProfileInput{DisplayName: " Ann Lee ", Address: "Main St"}, nil)
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Principal.DisplayName != "Ann Lee" || updated.Principal.PhotoURL != "https://img/old.png" {
		t.Errorf("principal = %+v", updated.Principal)
	}
	if updated.IDToken != "tok-refreshed" || identity.updates != 1 {
		t.Errorf("identity sync: token %q, updates %d", updated.IDToken, identity.updates)
	}
	profile, _ := svc.Profile(ctx, viewer)
	if profile.DisplayName != "Ann Lee" {
		t.Errorf("profile not refreshed after update: %+v", profile)
	}
	if len(users.infoUpdates) != 1 || users.infoUpdates[0].Address != "Main St" {
		t.Errorf("info updates = %+v", users.infoUpdates)
	}
}

func TestUpdateProfileIdentityFailureIsNotFatal(t *testing.T) {
	svc, _, identity, _ := newUserFixture()
	identity.updateErr = errNetwork
	updated, err := svc.UpdateProfile(context.Background(), &Session{Principal: *viewer, IDToken: "tok"}, models.ProfileInput{DisplayName: "Ann"}, nil)
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.IDToken != "tok" {
		t.Errorf("token = %q, want the old one", updated.IDToken)
	}
}

func TestUpdateProfileWithPhoto(t *testing.T) {
	svc, _, _, uploader := newUserFixture()
	photo := &ImageUpload{ContentType: "image/jpeg", Size: 3, Reader: strings.NewReader("jpg")}
	updated, err := svc.UpdateProfile(context.Background(), &Session{Principal: *viewer}, models.ProfileInput{DisplayName: "Ann"}, photo)
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if len(uploader.keys) != 1 || !strings.HasPrefix(uploader.keys[0], "avatars/") {
		t.Errorf("uploaded keys = %v", uploader.keys)
	}
	if !strings.HasSuffix(updated.Principal.PhotoURL, ".jpg") {
		t.Errorf("photo = %q", updated.Principal.PhotoURL)
	}
}

func TestUpdateProfileValidation(t *testing.T) {
	svc, users, _, _ := newUserFixture()
	_, err := svc.UpdateProfile(context.Background(), &Session{Principal: *viewer}, models.ProfileInput{DisplayName: "  "}, nil)
	if !errors.Is(err, ErrValidationFailed) {
		t.Errorf("error = %v, want ErrValidationFailed", err)
	}
	if len(users.infoUpdates) != 0 {
		t.Error("invalid profile reached the API")
	}
}

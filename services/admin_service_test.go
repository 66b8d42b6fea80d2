package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Dosada05/contest-hub/countdown"
	"github.com/Dosada05/contest-hub/models"
)

var admin = &models.Principal{UID: "a1", Email: "admin@example.com", DisplayName: "Ada"}

func newTestAdminService(contests *fakeContestRepo, users *fakeUserRepo) *adminService {
	return NewAdminService(contests, users, newCache(), NewInFlight(), countdown.NewRegistry(), nil, discardLogger()).(*adminService)
}

func moderationUsers() *fakeUserRepo {
	return &fakeUserRepo{users: []models.User{
		{ID: "a1", Email: "admin@example.com", Role: models.RoleAdmin},
		{ID: "a2", Email: "other-admin@example.com", Role: models.RoleAdmin},
		{ID: "u1", Email: "ann@example.com", Role: models.RoleUser},
		{ID: "u2", Email: "cleo@example.com", Role: models.RoleCreator},
	}}
}

func TestAdminContestsPagination(t *testing.T) {
	var contests []models.Contest
	for i := 0; i < 23; i++ {
		contests = append(contests, models.Contest{
			ID:        fmt.Sprintf("c%02d", i),
			CreatedAt: fixedNow().Add(time.Duration(i) * time.Hour),
			Status:    models.ContestPending,
		})
	}
	svc := newTestAdminService(newFakeContestRepo(contests...), moderationUsers())

	first, err := svc.Contests(context.Background(), 1)
	if err != nil {
		t.Fatalf("Contests: %v", err)
	}
	if first.TotalPages != 3 || len(first.Items) != AdminPageSize {
		t.Errorf("page 1 = %d items of %d pages", len(first.Items), first.TotalPages)
	}
	if first.Items[0].ID != "c22" || first.Items[9].ID != "c13" {
		t.Errorf("page 1 order = %s..%s, want newest first", first.Items[0].ID, first.Items[9].ID)
	}
	last, _ := svc.Contests(context.Background(), 99)
	if last.Page != 3 || len(last.Items) != 3 || last.Items[2].ID != "c00" {
		t.Errorf("clamped last page = %+v", last)
	}
}

func TestChangeContestStatus(t *testing.T) {
	repo := newFakeContestRepo(models.Contest{ID: "c1", Status: models.ContestPending})
	svc := newTestAdminService(repo, moderationUsers())
	ctx := context.Background()

	if err := svc.ChangeContestStatus(ctx, "c1", "Archived"); !errors.Is(err, ErrInvalidContestStatus) {
		t.Errorf("invalid status: %v", err)
	}

	before, _ := svc.Contests(ctx, 1)
	if before.Items[0].Status != models.ContestPending {
		t.Fatalf("status = %s", before.Items[0].Status)
	}
	if err := svc.ChangeContestStatus(ctx, "c1", models.ContestConfirmed); err != nil {
		t.Fatalf("ChangeContestStatus: %v", err)
	}
	after, _ := svc.Contests(ctx, 1)
	if after.Items[0].Status != models.ContestConfirmed {
		t.Errorf("list after change shows %s, want Confirmed", after.Items[0].Status)
	}
}

func TestDeleteContestNeedsConfirmation(t *testing.T) {
	repo := newFakeContestRepo(models.Contest{ID: "c1"})
	svc := newTestAdminService(repo, moderationUsers())

	if err := svc.DeleteContest(context.Background(), "c1", false); !errors.Is(err, ErrConfirmationRequired) {
		t.Errorf("unconfirmed: %v", err)
	}
	if repo.callsTo("Delete") != 0 {
		t.Fatal("unconfirmed delete reached the API")
	}
	if err := svc.DeleteContest(context.Background(), "c1", true); err != nil {
		t.Errorf("confirmed: %v", err)
	}
}

func TestDeleteContestForgetsCountdown(t *testing.T) {
	deadline := fixedNow().Add(time.Hour)
	repo := newFakeContestRepo(models.Contest{ID: "c1"}, models.Contest{ID: "c2"})
	svc := newTestAdminService(repo, moderationUsers())
	before := svc.trackers.Tracker("c1", deadline)
	kept := svc.trackers.Tracker("c2", deadline)

	repo.failWith["Delete"] = errNetwork
	if err := svc.DeleteContest(context.Background(), "c1", true); err == nil {
		t.Fatal("failed delete reported success")
	}
	if svc.trackers.Tracker("c1", deadline) != before {
		t.Error("failed delete dropped the countdown tracker")
	}

	delete(repo.failWith, "Delete")
	if err := svc.DeleteContest(context.Background(), "c1", true); err != nil {
		t.Fatalf("DeleteContest() error = %v", err)
	}
	if svc.trackers.Tracker("c1", deadline) == before {
		t.Error("tracker of the deleted contest is still registered")
	}
	if svc.trackers.Tracker("c2", deadline) != kept {
		t.Error("tracker of another contest was dropped")
	}
}

func TestChangeUserRoleRules(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		role   string
		want   error
	}{
		{"self", "a1", "user", ErrSelfRoleChange},
		{"another admin", "a2", "creator", ErrAdminRoleLocked},
		{"unknown role", "u1", "owner", ErrInvalidRole},
		{"missing user", "zz", "creator", ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := moderationUsers()
			svc := newTestAdminService(newFakeContestRepo(), users)
			if err := svc.ChangeUserRole(context.Background(), admin, tt.userID, tt.role); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if users.roleUpdates != 0 {
				t.Error("rejected change reached the API")
			}
		})
	}
}

func TestChangeUserRoleIdempotent(t *testing.T) {
	users := moderationUsers()
	svc := newTestAdminService(newFakeContestRepo(), users)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := svc.ChangeUserRole(ctx, admin, "u1", "creator"); err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
	}
	if users.roleUpdates != 1 {
		t.Errorf("UpdateRole calls = %d, want 1", users.roleUpdates)
	}
	page, _ := svc.Users(ctx, admin, 1)
	for _, row := range page.Items {
		if row.User.ID == "u1" && row.User.Role != models.RoleCreator {
			t.Errorf("role = %s, want creator", row.User.Role)
		}
	}

	release, _ := svc.inflight.Begin("user-role:u1")
	defer release()
	if err := svc.ChangeUserRole(ctx, admin, "u1", "user"); !errors.Is(err, ErrRequestInFlight) {
		t.Errorf("concurrent duplicate: %v", err)
	}
}

func TestBuildUserRows(t *testing.T) {
	rows := BuildUserRows(moderationUsers().users, "ADMIN@example.com")
	for _, row := range rows {
		switch row.User.ID {
		case "a1":
			if !row.IsSelf || row.CanChangeRole() {
				t.Errorf("own row = %+v", row)
			}
		case "a2":
			if !row.RoleLocked || row.CanChangeRole() {
				t.Errorf("admin row = %+v", row)
			}
		default:
			if !row.CanChangeRole() {
				t.Errorf("row %s should be editable", row.User.ID)
			}
		}
	}
}

func TestAdminStats(t *testing.T) {
	svc := newTestAdminService(newFakeContestRepo(
		models.Contest{ID: "1", Status: models.ContestPending},
		models.Contest{ID: "2", Status: models.ContestConfirmed},
		models.Contest{ID: "3", Status: models.ContestConfirmed},
	), moderationUsers())

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := models.AdminStats{UsersTotal: 4, Creators: 1, Admins: 2, ContestsTotal: 3, Pending: 1, Confirmed: 2}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestAdminStatsPropagatesFailure(t *testing.T) {
	users := moderationUsers()
	users.listErr = errNetwork
	svc := newTestAdminService(newFakeContestRepo(), users)
	if _, err := svc.Stats(context.Background()); !errors.Is(err, ErrUpstream) {
		t.Errorf("error = %v, want ErrUpstream", err)
	}
}

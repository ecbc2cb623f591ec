package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/careerlift/backend/internal/domain"
	"github.com/careerlift/backend/internal/events"
	"github.com/careerlift/backend/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssign_CreatesAssignmentAndNotifiesBoth(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seeker, sub := h.seekerWithPlan("Jane Seeker", "jane@example.com", domain.PlanRecruiterStandard)
	recruiter := h.db.AddUser(domain.RoleRecruiter, "rita@example.com", "Rita Recruiter")

	res, err := h.assignments.Assign(ctx, &domain.CreateAssignmentRequest{
		SubscriptionID: sub.ID,
		RecruiterID:    recruiter.ID,
		Notes:          ptr("Focus on fintech roles"),
	})
	require.NoError(t, err)

	assert.False(t, res.Reassigned)
	assert.Equal(t, domain.AssignmentActive, res.Assignment.Status)
	assert.Equal(t, seeker.ID, res.Assignment.JobSeekerID)
	assert.Equal(t, recruiter.ID, res.Assignment.RecruiterID)
	assert.Equal(t, 12, res.Assignment.ApplicationsPerDay)
	assert.Equal(t, map[string]notify.Status{
		notify.KeyJobSeeker: notify.StatusSent,
		notify.KeyRecruiter: notify.StatusSent,
	}, res.EmailStatus)

	sent := h.notifier.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "jane@example.com", sent[0].To)
	assert.Equal(t, "rita@example.com", sent[1].To)

	require.Len(t, h.publisher.events, 1)
	assert.Equal(t, events.AssignmentChanged, h.publisher.events[0].event.Type)
	assert.ElementsMatch(t, []string{seeker.ID, recruiter.ID}, h.publisher.events[0].users)
}

func TestAssign_ReassignUpdatesSingleRow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, sub := h.seekerWithPlan("Jane", "jane@example.com", domain.PlanRecruiterBasic)
	r1 := h.db.AddUser(domain.RoleRecruiter, "r1@example.com", "R One")
	r2 := h.db.AddUser(domain.RoleRecruiter, "r2@example.com", "R Two")

	first := h.assign(t, sub.ID, r1.ID)

	// Plan changed since the first assignment; the quota is re-copied.
	upgraded := *sub
	upgraded.PlanType = domain.PlanRecruiterPro
	h.db.SetSubscription(upgraded)

	res, err := h.assignments.Assign(ctx, &domain.CreateAssignmentRequest{SubscriptionID: sub.ID, RecruiterID: r2.ID})
	require.NoError(t, err)

	assert.True(t, res.Reassigned)
	assert.Equal(t, first.ID, res.Assignment.ID)
	assert.Equal(t, r2.ID, res.Assignment.RecruiterID)
	assert.Equal(t, 25, res.Assignment.ApplicationsPerDay)
	assert.Nil(t, res.Assignment.Notes, "notes are replaced, not merged")

	rows := h.db.AssignmentRows(sub.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, r2.ID, rows[0].RecruiterID)
	assert.Equal(t, domain.AssignmentActive, rows[0].Status)
}

func TestAssign_ReactivatesDeactivatedAssignment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, sub := h.seekerWithPlan("Jane", "jane@example.com", domain.PlanRecruiterBasic)
	r := h.db.AddUser(domain.RoleRecruiter, "r@example.com", "R")

	a := h.assign(t, sub.ID, r.ID)
	_, err := h.assignments.Deactivate(ctx, a.ID)
	require.NoError(t, err)

	res, err := h.assignments.Assign(ctx, &domain.CreateAssignmentRequest{SubscriptionID: sub.ID, RecruiterID: r.ID})
	require.NoError(t, err)
	assert.True(t, res.Reassigned)
	assert.Equal(t, domain.AssignmentActive, res.Assignment.Status)
}

func TestAssign_Preconditions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	recruiter := h.db.AddUser(domain.RoleRecruiter, "rita@example.com", "Rita")
	notRecruiter := h.db.AddUser(domain.RoleJobSeeker, "joe@example.com", "Joe")
	_, active := h.seekerWithPlan("Jane", "jane@example.com", domain.PlanRecruiterBasic)
	canceledOwner := h.db.AddUser(domain.RoleJobSeeker, "c@example.com", "C")
	canceled := h.db.AddSubscription(canceledOwner.ID, domain.PlanRecruiterBasic, domain.SubscriptionCanceled)
	otherOwner := h.db.AddUser(domain.RoleJobSeeker, "o@example.com", "O")
	otherPlan := h.db.AddSubscription(otherOwner.ID, "resume_review", domain.SubscriptionActive)

	cases := []struct {
		name string
		req  domain.CreateAssignmentRequest
		code int
	}{
		{"missing fields", domain.CreateAssignmentRequest{}, http.StatusBadRequest},
		{"unknown subscription", domain.CreateAssignmentRequest{SubscriptionID: "nope", RecruiterID: recruiter.ID}, http.StatusNotFound},
		{"inactive subscription", domain.CreateAssignmentRequest{SubscriptionID: canceled.ID, RecruiterID: recruiter.ID}, http.StatusBadRequest},
		{"not a recruiter plan", domain.CreateAssignmentRequest{SubscriptionID: otherPlan.ID, RecruiterID: recruiter.ID}, http.StatusBadRequest},
		{"unknown recruiter", domain.CreateAssignmentRequest{SubscriptionID: active.ID, RecruiterID: "ghost"}, http.StatusBadRequest},
		{"wrong role", domain.CreateAssignmentRequest{SubscriptionID: active.ID, RecruiterID: notRecruiter.ID}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.assignments.Assign(ctx, &tc.req)
			requireAppError(t, err, tc.code)
		})
	}
	assert.Empty(t, h.notifier.sent())
}

func TestAssign_EmailFailureDoesNotFailAssignment(t *testing.T) {
	h := newHarness(t)
	_, sub := h.seekerWithPlan("Jane", "jane@example.com", domain.PlanRecruiterBasic)
	r := h.db.AddUser(domain.RoleRecruiter, "rita@example.com", "Rita")
	h.notifier.fail["rita@example.com"] = true

	res, err := h.assignments.Assign(context.Background(), &domain.CreateAssignmentRequest{SubscriptionID: sub.ID, RecruiterID: r.ID})
	require.NoError(t, err)
	assert.Equal(t, notify.StatusSent, res.EmailStatus[notify.KeyJobSeeker])
	assert.Equal(t, notify.StatusFailed, res.EmailStatus[notify.KeyRecruiter])
	assert.Len(t, h.db.AssignmentRows(sub.ID), 1)
}

func TestGetForRecruiter_HidesOtherRecruitersAssignments(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, sub := h.seekerWithPlan("Jane", "jane@example.com", domain.PlanRecruiterBasic)
	owner := h.db.AddUser(domain.RoleRecruiter, "r1@example.com", "R1")
	other := h.db.AddUser(domain.RoleRecruiter, "r2@example.com", "R2")
	a := h.assign(t, sub.ID, owner.ID)

	v, err := h.assignments.GetForRecruiter(ctx, a.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", v.JobSeekerName)

	_, err = h.assignments.GetForRecruiter(ctx, a.ID, other.ID)
	requireAppError(t, err, http.StatusNotFound)

	list, err := h.assignments.ListForRecruiter(ctx, other.ID, "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdateAssignment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, sub := h.seekerWithPlan("Jane", "jane@example.com", domain.PlanRecruiterBasic)
	r1 := h.db.AddUser(domain.RoleRecruiter, "r1@example.com", "R1")
	r2 := h.db.AddUser(domain.RoleRecruiter, "r2@example.com", "R2")
	a := h.assign(t, sub.ID, r1.ID)

	updated, err := h.assignments.Update(ctx, a.ID, &domain.UpdateAssignmentRequest{Notes: ptr("weekly check-in")})
	require.NoError(t, err)
	assert.Equal(t, r1.ID, updated.RecruiterID, "omitted fields unchanged")
	assert.Equal(t, "weekly check-in", *updated.Notes)

	updated, err = h.assignments.Update(ctx, a.ID, &domain.UpdateAssignmentRequest{RecruiterID: &r2.ID})
	require.NoError(t, err)
	assert.Equal(t, r2.ID, updated.RecruiterID)
	assert.Equal(t, "weekly check-in", *updated.Notes)

	_, err = h.assignments.Update(ctx, a.ID, &domain.UpdateAssignmentRequest{Status: ptr("paused")})
	requireAppError(t, err, http.StatusBadRequest)

	_, err = h.assignments.Update(ctx, a.ID, &domain.UpdateAssignmentRequest{RecruiterID: &h.admin.ID})
	requireAppError(t, err, http.StatusBadRequest)

	_, err = h.assignments.Update(ctx, "missing", &domain.UpdateAssignmentRequest{Notes: ptr("x")})
	requireAppError(t, err, http.StatusNotFound)

	deactivated, err := h.assignments.Deactivate(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentInactive, deactivated.Status)
	assert.Len(t, h.db.AssignmentRows(sub.ID), 1, "deactivation never deletes")
}

func TestListAssignments_DegradesToEmptyOnStoreFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, sub := h.seekerWithPlan("Jane", "jane@example.com", domain.PlanRecruiterBasic)
	r := h.db.AddUser(domain.RoleRecruiter, "r@example.com", "Rita")
	h.assign(t, sub.ID, r.ID)

	views, err := h.assignments.List(ctx, domain.AssignmentFilter{})
	require.NoError(t, err)
	require.Len(t, views, 1)

	h.db.Err = errors.New("connection refused")
	views, err = h.assignments.List(ctx, domain.AssignmentFilter{})
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)

	views, err = h.assignments.ListForRecruiter(ctx, r.ID, "")
	require.NoError(t, err)
	assert.Empty(t, views)

	_, err = h.assignments.List(ctx, domain.AssignmentFilter{Status: "paused"})
	requireAppError(t, err, http.StatusBadRequest)
}

func TestOverview_RollsUpCounts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seeker, sub := h.seekerWithPlan("Jane", "jane@example.com", domain.PlanRecruiterBasic)
	r := h.db.AddUser(domain.RoleRecruiter, "r@example.com", "Rita")
	a := h.assign(t, sub.ID, r.ID)

	h.submit(t, r.ID, a.ID, "Engineer")
	s2 := h.submit(t, r.ID, a.ID, "Analyst")
	_, err := h.submissions.Update(ctx, s2.ID, r.ID, &domain.UpdateSubmissionRequest{Status: ptr("interview_scheduled")})
	require.NoError(t, err)

	ov, err := h.assignments.Overview(ctx, seeker.ID)
	require.NoError(t, err)
	require.NotNil(t, ov.Assignment)
	assert.Equal(t, "Rita", ov.Assignment.RecruiterName)
	assert.Equal(t, 2, ov.Assignment.TodayCount)
	assert.Equal(t, 2, ov.Assignment.TotalCount)
	assert.Equal(t, 4, ov.Assignment.ApplicationsPerDay)
	assert.Equal(t, 2, ov.Assignment.RemainingToday)
	assert.Equal(t, map[string]int{"submitted": 1, "interview_scheduled": 1}, ov.StatusCounts)
	assert.Equal(t, sub.ID, ov.Subscription.ID)
}

func TestOverview_NoAssignmentYet(t *testing.T) {
	h := newHarness(t)
	seeker, _ := h.seekerWithPlan("Jane", "jane@example.com", domain.PlanRecruiterBasic)

	ov, err := h.assignments.Overview(context.Background(), seeker.ID)
	require.NoError(t, err)
	assert.Nil(t, ov.Assignment)
	assert.NotNil(t, ov.Subscription)
	assert.Empty(t, ov.StatusCounts)
}

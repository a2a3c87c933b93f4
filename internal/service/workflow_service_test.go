package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/equiply/workflow-service/internal/config"
	"github.com/equiply/workflow-service/internal/domain"
	"github.com/equiply/workflow-service/internal/repository"
	apperrors "github.com/equiply/workflow-service/pkg/util/errorutil"
)

func TestChangeStatusManagerStartsReview(t *testing.T) {
	f := newFixture(t, config.ManagerScopeGlobal)
	request := f.seedRequest(t, domain.StatusSubmitted)

	input := f.change(request.ID, f.manager, domain.StatusUnderReview)
	input.Reason = ptr("paperwork complete")
	input.Notes = ptr("fast-track")
	updated, err := f.workflow.ChangeStatus(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnderReview, updated.Status)
	assert.Equal(t, domain.StatusUnderReview, f.reload(t, request.ID).Status)

	entries := f.history(t, request.ID)
	require.Len(t, entries, 2)
	last := entries[1]
	require.NotNil(t, last.FromStatus)
	assert.Equal(t, domain.StatusSubmitted, *last.FromStatus)
	assert.Equal(t, domain.StatusUnderReview, last.ToStatus)
	assert.Equal(t, f.manager.ID, last.ChangedBy)
	assert.Equal(t, "paperwork complete", *last.Reason)
	assert.Equal(t, "fast-track", *last.Notes)
}

func TestChangeStatusUserCannotReview(t *testing.T) {
	f := newFixture(t, config.ManagerScopeGlobal)
	request := f.seedRequest(t, domain.StatusSubmitted)

	for _, actor := range []domain.User{f.stranger, f.owner} {
		_, err := f.workflow.ChangeStatus(context.Background(), f.change(request.ID, actor, domain.StatusUnderReview))
		requireCode(t, err, apperrors.CodeInsufficientPerms)
	}
	assert.Equal(t, domain.StatusSubmitted, f.reload(t, request.ID).Status)
	assert.Len(t, f.history(t, request.ID), 1)
}

func TestChangeStatusOwnershipGatesCancellation(t *testing.T) {
	f := newFixture(t, config.ManagerScopeGlobal)
	request := f.seedRequest(t, domain.StatusSubmitted)

	_, err := f.workflow.ChangeStatus(context.Background(), f.change(request.ID, f.stranger, domain.StatusCancelled))
	requireCode(t, err, apperrors.CodeInsufficientPerms)

	updated, err := f.workflow.ChangeStatus(context.Background(), f.change(request.ID, f.owner, domain.StatusCancelled))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, updated.Status)
}

func TestChangeStatusFromTerminalIsInvalidForEveryRole(t *testing.T) {
	f := newFixture(t, config.ManagerScopeGlobal)
	request := f.seedRequest(t, domain.StatusJobCompleted)

	for _, actor := range []domain.User{f.owner, f.stranger, f.operator, f.manager, f.admin} {
		_, err := f.workflow.ChangeStatus(context.Background(), f.change(request.ID, actor, domain.StatusUnderReview))
		requireCode(t, err, apperrors.CodeInvalidTransition)
	}
	assert.Len(t, f.history(t, request.ID), 1)
}

func TestChangeStatusAdminCannotForceInvalidEdge(t *testing.T) {
	f := newFixture(t, config.ManagerScopeGlobal)
	request := f.seedRequest(t, domain.StatusSubmitted)

	_, err := f.workflow.ChangeStatus(context.Background(), f.change(request.ID, f.admin, domain.StatusClosed))
	requireCode(t, err, apperrors.CodeInvalidTransition)
	details := apperrors.ToDomainError(err).Details
	assert.Equal(t, domain.StatusSubmitted, details["from_status"])
}

func TestChangeStatusUnknownRequest(t *testing.T) {
	f := newFixture(t, config.ManagerScopeGlobal)
	_, err := f.workflow.ChangeStatus(context.Background(), f.change(uuid.NewString(), f.manager, domain.StatusUnderReview))
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestChangeStatusValidation(t *testing.T) {
	f := newFixture(t, config.ManagerScopeGlobal)
	request := f.seedRequest(t, domain.StatusSubmitted)
	valid := f.change(request.ID, f.manager, domain.StatusUnderReview)

	cases := map[string]func(in *ChangeStatusInput){
		"malformed request id": func(in *ChangeStatusInput) { in.RequestID = "not-an-id" },
		"unknown status":       func(in *ChangeStatusInput) { in.NewStatus = "IN_PROGRESS" },
		"unknown role":         func(in *ChangeStatusInput) { in.UserRole = "SUPERVISOR" },
		"missing user":         func(in *ChangeStatusInput) { in.UserID = "" },
		"unknown expected":     func(in *ChangeStatusInput) { in.ExpectedStatus = ptr(domain.ServiceRequestStatus("LIMBO")) },
		"long reason":          func(in *ChangeStatusInput) { in.Reason = ptr(strings.Repeat("x", maxNoteLength+1)) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			input := valid
			mutate(&input)
			_, err := f.workflow.ChangeStatus(context.Background(), input)
			requireCode(t, err, apperrors.CodeValidation)
		})
	}
	assert.Equal(t, domain.StatusSubmitted, f.reload(t, request.ID).Status)
}

func TestChangeStatusRetryWithStaleExpectedStatusConflicts(t *testing.T) {
	f := newFixture(t, config.ManagerScopeGlobal)
	request := f.seedRequest(t, domain.StatusSubmitted)
	input := f.change(request.ID, f.manager, domain.StatusUnderReview)
	input.ExpectedStatus = ptr(domain.StatusSubmitted)

	_, err := f.workflow.ChangeStatus(context.Background(), input)
	require.NoError(t, err)

	_, err = f.workflow.ChangeStatus(context.Background(), input)
	requireCode(t, err, apperrors.CodeConflict)
	assert.Len(t, f.history(t, request.ID), 2)
}

func TestChangeStatusConcurrentWritersOneWins(t *testing.T) {
	f := newFixture(t, config.ManagerScopeGlobal)
	request := f.seedRequest(t, domain.StatusSubmitted)

	const writers = 2
	errs := make([]error, writers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			input := f.change(request.ID, f.manager, domain.StatusUnderReview)
			input.ExpectedStatus = ptr(domain.StatusSubmitted)
			_, errs[i] = f.workflow.ChangeStatus(context.Background(), input)
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		requireCode(t, err, apperrors.CodeConflict)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.history(t, request.ID), 2)
}

func TestTransitionOnStaleReadIsConflict(t *testing.T) {
	f := newFixture(t, config.ManagerScopeGlobal)
	request := f.seedRequest(t, domain.StatusSubmitted)
	stale := *request

	_, err := f.workflow.ChangeStatus(context.Background(), f.change(request.ID, f.manager, domain.StatusUnderReview))
	require.NoError(t, err)

	// A writer that read SUBMITTED before the change above committed.
	err = f.mem.WithinTx(context.Background(), func(ctx context.Context, repos repository.Repositories) error {
		_, err := f.workflow.transition(ctx, repos, &stale, Actor{ID: f.manager.ID, Role: domain.RoleManager},
			transitionStep{to: domain.StatusCancelled})
		return err
	})
	requireCode(t, err, apperrors.CodeConflict)
	assert.Equal(t, domain.StatusUnderReview, f.reload(t, request.ID).Status)
	assert.Len(t, f.history(t, request.ID), 2)
}

func TestChangeStatusToOperatorAssignedRequiresAssignment(t *testing.T) {
	f := newFixture(t, config.ManagerScopeGlobal)
	request := f.seedRequest(t, domain.StatusOperatorMatching)

	_, err := f.workflow.ChangeStatus(context.Background(), f.change(request.ID, f.admin, domain.StatusOperatorAssigned))
	requireCode(t, err, apperrors.CodeBusinessRule)
	assert.Equal(t, domain.StatusOperatorMatching, f.reload(t, request.ID).Status)
}

func TestOperatorRunsOnlyTheirOwnJob(t *testing.T) {
	f := newFixture(t, config.ManagerScopeGlobal)
	request := f.seedRequest(t, domain.StatusJobScheduled)
	assignment := f.seedAssignment(t, request.ID, f.operator.ID, domain.AssignmentPending)
	ctx := context.Background()

	_, err := f.workflow.ChangeStatus(ctx, f.change(request.ID, f.otherOperator, domain.StatusJobInProgress))
	requireCode(t, err, apperrors.CodeInsufficientPerms)

	_, err = f.workflow.ChangeStatus(ctx, f.change(request.ID, f.manager, domain.StatusJobInProgress))
	requireCode(t, err, apperrors.CodeInsufficientPerms)

	_, err = f.workflow.ChangeStatus(ctx, f.change(request.ID, f.operator, domain.StatusJobInProgress))
	require.NoError(t, err)
	started, err := f.mem.Repositories().Assignments.GetByID(ctx, assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentActive, started.Status)
	assert.NotNil(t, started.AcceptedAt)

	_, err = f.workflow.ChangeStatus(ctx, f.change(request.ID, f.operator, domain.StatusJobCompleted))
	require.NoError(t, err)
	done, err := f.mem.Repositories().Assignments.GetByID(ctx, assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)
}

func TestCancellingRequestCancelsAssignment(t *testing.T) {
	f := newFixture(t, config.ManagerScopeGlobal)
	request := f.seedRequest(t, domain.StatusOperatorAssigned)
	assignment := f.seedAssignment(t, request.ID, f.operator.ID, domain.AssignmentPending)

	_, err := f.workflow.ChangeStatus(context.Background(), f.change(request.ID, f.manager, domain.StatusCancelled))
	require.NoError(t, err)

	cancelled, err := f.mem.Repositories().Assignments.GetByID(context.Background(), assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
}

func TestManagerScope(t *testing.T) {
	for _, tc := range []struct {
		scope config.ManagerScope
		code  string
	}{
		{config.ManagerScopeGlobal, ""},
		{config.ManagerScopeAssigned, apperrors.CodeInsufficientPerms},
	} {
		t.Run(string(tc.scope), func(t *testing.T) {
			f := newFixture(t, tc.scope)
			request := f.seedRequest(t, domain.StatusUnderReview)
			require.NoError(t, f.mem.Repositories().ServiceRequests.SetAssignedManager(context.Background(), request.ID, f.manager.ID))

			_, err := f.workflow.ChangeStatus(context.Background(), f.change(request.ID, f.otherManager, domain.StatusApproved))
			if tc.code == "" {
				require.NoError(t, err)
				return
			}
			requireCode(t, err, tc.code)

			_, err = f.workflow.ChangeStatus(context.Background(), f.change(request.ID, f.manager, domain.StatusApproved))
			require.NoError(t, err)
		})
	}
}

func TestGetStatusHistory(t *testing.T) {
	f := newFixture(t, config.ManagerScopeGlobal)
	ctx := context.Background()

	_, err := f.workflow.GetStatusHistory(ctx, uuid.NewString())
	requireCode(t, err, apperrors.CodeNotFound)

	_, err = f.workflow.GetStatusHistory(ctx, "nope")
	requireCode(t, err, apperrors.CodeValidation)

	request := f.seedRequest(t, domain.StatusSubmitted)
	for _, to := range []domain.ServiceRequestStatus{domain.StatusUnderReview, domain.StatusApproved, domain.StatusOperatorMatching} {
		_, err := f.workflow.ChangeStatus(ctx, f.change(request.ID, f.manager, to))
		require.NoError(t, err)
	}

	entries, err := f.workflow.GetStatusHistory(ctx, request.ID)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Nil(t, entries[0].FromStatus)
	want := []domain.ServiceRequestStatus{domain.StatusSubmitted, domain.StatusUnderReview, domain.StatusApproved, domain.StatusOperatorMatching}
	for i, entry := range entries {
		assert.Equal(t, want[i], entry.ToStatus)
		if i > 0 {
			assert.Equal(t, want[i-1], *entry.FromStatus)
			assert.False(t, entry.CreatedAt.Before(entries[i-1].CreatedAt))
		}
	}
}

func TestGetStatusHistoryWarnsOnEmptyHistory(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	f := newFixture(t, config.ManagerScopeGlobal)
	wf := NewWorkflowService(WorkflowDependencies{Store: f.mem, Logger: zap.New(core)})

	request := &domain.ServiceRequest{Title: "Orphan", UserID: f.owner.ID, Status: domain.StatusSubmitted}
	require.NoError(t, f.mem.Repositories().ServiceRequests.Create(context.Background(), request))

	entries, err := wf.GetStatusHistory(context.Background(), request.ID)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, request.ID, logs.All()[0].ContextMap()["request_id"])
}

func TestTransitionsForRole(t *testing.T) {
	f := newFixture(t, config.ManagerScopeGlobal)

	_, err := f.workflow.TransitionsForRole("BOGUS", domain.RoleManager)
	requireCode(t, err, apperrors.CodeValidation)

	options, err := f.workflow.TransitionsForRole(domain.StatusUnderReview, domain.RoleUser)
	require.NoError(t, err)
	byTarget := map[domain.ServiceRequestStatus]bool{}
	for _, option := range options {
		assert.True(t, option.IsValid)
		byTarget[option.ToStatus] = option.HasPermission
	}
	assert.Equal(t, map[domain.ServiceRequestStatus]bool{
		domain.StatusApproved:  false,
		domain.StatusRejected:  false,
		domain.StatusCancelled: true,
	}, byTarget)
}

func TestAvailableTransitionsFoldsInStanding(t *testing.T) {
	f := newFixture(t, config.ManagerScopeGlobal)
	request := f.seedRequest(t, domain.StatusSubmitted)
	ctx := context.Background()

	owned, err := f.workflow.AvailableTransitions(ctx, request.ID, Actor{ID: f.owner.ID, Role: f.owner.Role})
	require.NoError(t, err)
	foreign, err := f.workflow.AvailableTransitions(ctx, request.ID, Actor{ID: f.stranger.ID, Role: f.stranger.Role})
	require.NoError(t, err)
	require.Len(t, owned, len(foreign))

	for i := range owned {
		if owned[i].ToStatus != domain.StatusCancelled {
			continue
		}
		assert.True(t, owned[i].HasPermission)
		assert.False(t, foreign[i].HasPermission)
		assert.NotEmpty(t, foreign[i].Reason)
	}

	_, err = f.workflow.AvailableTransitions(ctx, uuid.NewString(), Actor{ID: f.owner.ID, Role: f.owner.Role})
	requireCode(t, err, apperrors.CodeNotFound)
}

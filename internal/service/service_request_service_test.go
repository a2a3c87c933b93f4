package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equiply/workflow-service/internal/config"
	"github.com/equiply/workflow-service/internal/domain"
	"github.com/equiply/workflow-service/internal/events"
	apperrors "github.com/equiply/workflow-service/pkg/util/errorutil"
)

func validIntake() CreateServiceRequestInput {
	return CreateServiceRequestInput{
		Title:             "  Backfill trench  ",
		Description:       "Two days of skid steer work",
		EquipmentCategory: domain.EquipmentSkidSteers,
		JobSite:           "41 Mill Lane",
		StartDate:         time.Now().Add(48 * time.Hour),
		DurationType:      domain.DurationFullDay,
		DurationValue:     2,
		BaseRate:          100,
		RateType:          domain.RateDaily,
		Transport:         domain.TransportWeHandleIt,
	}
}

func TestCreateServiceRequest(t *testing.T) {
	f := newFixture(t, config.ManagerScopeGlobal)
	dispatcher := events.NewInMemoryDispatcher()
	var created []events.Event
	dispatcher.Subscribe(events.EventServiceRequestCreated, func(_ context.Context, e events.Event) error {
		created = append(created, e)
		return nil
	})
	svc := NewServiceRequestService(ServiceRequestDependencies{Store: f.mem, Dispatcher: dispatcher})

	request, err := svc.CreateServiceRequest(context.Background(), Actor{ID: f.owner.ID, Role: f.owner.Role}, validIntake())
	require.NoError(t, err)
	assert.Equal(t, "Backfill trench", request.Title)
	assert.Equal(t, domain.StatusSubmitted, request.Status)
	assert.Equal(t, f.owner.ID, request.UserID)
	require.NotNil(t, request.TotalEstimate)
	assert.InDelta(t, 350.0, *request.TotalEstimate, 0.001)

	entries := f.history(t, request.ID)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].FromStatus)
	assert.Equal(t, domain.StatusSubmitted, entries[0].ToStatus)
	assert.Equal(t, f.owner.ID, entries[0].ChangedBy)

	require.Len(t, created, 1)
	assert.Equal(t, request.ID, created[0].RequestID)
}

func TestCreateServiceRequestAsDraft(t *testing.T) {
	f := newFixture(t, config.ManagerScopeGlobal)
	input := validIntake()
	input.InitialStatus = ptr(domain.StatusDraft)

	request, err := f.requests.CreateServiceRequest(context.Background(), Actor{ID: f.owner.ID, Role: f.owner.Role}, input)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, request.Status)

	_, err = f.workflow.ChangeStatus(context.Background(), f.change(request.ID, f.owner, domain.StatusSubmitted))
	require.NoError(t, err)
}

func TestCreateServiceRequestValidation(t *testing.T) {
	f := newFixture(t, config.ManagerScopeGlobal)
	actor := Actor{ID: f.owner.ID, Role: f.owner.Role}

	cases := map[string]func(in *CreateServiceRequestInput){
		"blank title":        func(in *CreateServiceRequestInput) { in.Title = "   " },
		"missing job site":   func(in *CreateServiceRequestInput) { in.JobSite = "" },
		"unknown category":   func(in *CreateServiceRequestInput) { in.EquipmentCategory = "CRANES" },
		"start in the past":  func(in *CreateServiceRequestInput) { in.StartDate = time.Now().Add(-time.Hour) },
		"end before start":   func(in *CreateServiceRequestInput) { in.EndDate = ptr(in.StartDate.Add(-time.Hour)) },
		"too many weeks":     func(in *CreateServiceRequestInput) { in.DurationType, in.DurationValue = domain.DurationWeekly, 53 },
		"too many days":      func(in *CreateServiceRequestInput) { in.DurationType, in.DurationValue = domain.DurationMultiDay, 366 },
		"too many full days": func(in *CreateServiceRequestInput) { in.DurationValue = 31 },
		"approved initially": func(in *CreateServiceRequestInput) { in.InitialStatus = ptr(domain.StatusApproved) },
		"zero rate":          func(in *CreateServiceRequestInput) { in.BaseRate = 0 },
		"unknown transport":  func(in *CreateServiceRequestInput) { in.Transport = "DRONE" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			input := validIntake()
			mutate(&input)
			_, err := f.requests.CreateServiceRequest(context.Background(), actor, input)
			requireCode(t, err, apperrors.CodeValidation)
		})
	}
}

func TestCreateServiceRequestRoleGate(t *testing.T) {
	f := newFixture(t, config.ManagerScopeGlobal)
	_, err := f.requests.CreateServiceRequest(context.Background(), Actor{ID: f.operator.ID, Role: f.operator.Role}, validIntake())
	requireCode(t, err, apperrors.CodeInsufficientPerms)

	_, err = f.requests.CreateServiceRequest(context.Background(), Actor{ID: f.admin.ID, Role: f.admin.Role}, validIntake())
	require.NoError(t, err)
}

func TestGetServiceRequestStanding(t *testing.T) {
	f := newFixture(t, config.ManagerScopeGlobal)
	request := f.seedRequest(t, domain.StatusOperatorAssigned)
	f.seedAssignment(t, request.ID, f.operator.ID, domain.AssignmentPending)
	ctx := context.Background()

	for _, actor := range []domain.User{f.owner, f.operator, f.manager, f.admin} {
		got, err := f.requests.GetServiceRequest(ctx, request.ID, Actor{ID: actor.ID, Role: actor.Role})
		require.NoError(t, err, string(actor.Role))
		assert.Equal(t, request.ID, got.ID)
	}
	for _, actor := range []domain.User{f.stranger, f.otherOperator} {
		_, err := f.requests.GetServiceRequest(ctx, request.ID, Actor{ID: actor.ID, Role: actor.Role})
		requireCode(t, err, apperrors.CodeInsufficientPerms)
	}

	_, err := f.requests.GetServiceRequest(ctx, uuid.NewString(), Actor{ID: f.admin.ID, Role: f.admin.Role})
	requireCode(t, err, apperrors.CodeNotFound)
}

package domain

import "time"

// ServiceRequestStatus enumerates lifecycle states for service requests.
type ServiceRequestStatus string

const (
	StatusDraft              ServiceRequestStatus = "DRAFT"
	StatusSubmitted          ServiceRequestStatus = "SUBMITTED"
	StatusUnderReview        ServiceRequestStatus = "UNDER_REVIEW"
	StatusApproved           ServiceRequestStatus = "APPROVED"
	StatusRejected           ServiceRequestStatus = "REJECTED"
	StatusOperatorMatching   ServiceRequestStatus = "OPERATOR_MATCHING"
	StatusOperatorAssigned   ServiceRequestStatus = "OPERATOR_ASSIGNED"
	StatusEquipmentChecking  ServiceRequestStatus = "EQUIPMENT_CHECKING"
	StatusEquipmentConfirmed ServiceRequestStatus = "EQUIPMENT_CONFIRMED"
	StatusDepositRequested   ServiceRequestStatus = "DEPOSIT_REQUESTED"
	StatusDepositPending     ServiceRequestStatus = "DEPOSIT_PENDING"
	StatusDepositReceived    ServiceRequestStatus = "DEPOSIT_RECEIVED"
	StatusJobScheduled       ServiceRequestStatus = "JOB_SCHEDULED"
	StatusJobInProgress      ServiceRequestStatus = "JOB_IN_PROGRESS"
	StatusJobCompleted       ServiceRequestStatus = "JOB_COMPLETED"
	StatusInvoiced           ServiceRequestStatus = "INVOICED"
	StatusPaymentPending     ServiceRequestStatus = "PAYMENT_PENDING"
	StatusPaymentReceived    ServiceRequestStatus = "PAYMENT_RECEIVED"
	StatusClosed             ServiceRequestStatus = "CLOSED"
	StatusCancelled          ServiceRequestStatus = "CANCELLED"
)

// EquipmentCategory classifies the requested machine.
type EquipmentCategory string

const (
	EquipmentSkidSteers      EquipmentCategory = "SKID_STEERS_TRACK_LOADERS"
	EquipmentFrontEndLoaders EquipmentCategory = "FRONT_END_LOADERS"
	EquipmentBackhoes        EquipmentCategory = "BACKHOES_EXCAVATORS"
	EquipmentBulldozers      EquipmentCategory = "BULLDOZERS"
	EquipmentGraders         EquipmentCategory = "GRADERS"
	EquipmentDumpTrucks      EquipmentCategory = "DUMP_TRUCKS"
	EquipmentWaterTrucks     EquipmentCategory = "WATER_TRUCKS"
	EquipmentSweepers        EquipmentCategory = "SWEEPERS"
	EquipmentTrenchers       EquipmentCategory = "TRENCHERS"
)

// IsKnown reports whether c is a supported category.
func (c EquipmentCategory) IsKnown() bool {
	switch c {
	case EquipmentSkidSteers, EquipmentFrontEndLoaders, EquipmentBackhoes, EquipmentBulldozers,
		EquipmentGraders, EquipmentDumpTrucks, EquipmentWaterTrucks, EquipmentSweepers, EquipmentTrenchers:
		return true
	}
	return false
}

// DurationType describes how a job length is expressed.
type DurationType string

const (
	DurationHalfDay  DurationType = "HALF_DAY"
	DurationFullDay  DurationType = "FULL_DAY"
	DurationMultiDay DurationType = "MULTI_DAY"
	DurationWeekly   DurationType = "WEEKLY"
)

// RateType describes the billing unit of BaseRate.
type RateType string

const (
	RateHourly  RateType = "HOURLY"
	RateHalfDay RateType = "HALF_DAY"
	RateDaily   RateType = "DAILY"
	RateWeekly  RateType = "WEEKLY"
)

// TransportOption captures who moves the equipment to the job site.
type TransportOption string

const (
	TransportWeHandleIt  TransportOption = "WE_HANDLE_IT"
	TransportYouHandleIt TransportOption = "YOU_HANDLE_IT"
)

// ServiceRequest is one equipment-with-operator job request.
type ServiceRequest struct {
	ID                string
	Title             string
	Description       string
	UserID            string
	Status            ServiceRequestStatus
	EquipmentCategory EquipmentCategory
	JobSite           string
	StartDate         time.Time
	EndDate           *time.Time
	DurationType      DurationType
	DurationValue     int
	BaseRate          float64
	RateType          RateType
	Transport         TransportOption
	TotalEstimate     *float64
	AssignedManagerID *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

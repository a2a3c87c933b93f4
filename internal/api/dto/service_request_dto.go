package dto

import (
	"time"

	"github.com/equiply/workflow-service/internal/domain"
)

// CreateServiceRequestRequest payload.
type CreateServiceRequestRequest struct {
	Title             string                       `json:"title"`
	Description       string                       `json:"description"`
	EquipmentCategory domain.EquipmentCategory     `json:"equipmentCategory"`
	JobSite           string                       `json:"jobSite"`
	StartDate         time.Time                    `json:"startDate"`
	EndDate           *time.Time                   `json:"endDate"`
	DurationType      domain.DurationType          `json:"durationType"`
	DurationValue     int                          `json:"durationValue"`
	BaseRate          float64                      `json:"baseRate"`
	RateType          domain.RateType              `json:"rateType"`
	Transport         domain.TransportOption       `json:"transport"`
	Status            *domain.ServiceRequestStatus `json:"status"`
}

// ServiceRequestResponse is the API view of a request.
type ServiceRequestResponse struct {
	ID                string                      `json:"id"`
	Title             string                      `json:"title"`
	Description       string                      `json:"description"`
	UserID            string                      `json:"userId"`
	Status            domain.ServiceRequestStatus `json:"status"`
	EquipmentCategory domain.EquipmentCategory    `json:"equipmentCategory"`
	JobSite           string                      `json:"jobSite"`
	StartDate         time.Time                   `json:"startDate"`
	EndDate           *time.Time                  `json:"endDate"`
	DurationType      domain.DurationType         `json:"durationType"`
	DurationValue     int                         `json:"durationValue"`
	BaseRate          float64                     `json:"baseRate"`
	RateType          domain.RateType             `json:"rateType"`
	Transport         domain.TransportOption      `json:"transport"`
	TotalEstimate     *float64                    `json:"totalEstimate"`
	AssignedManagerID *string                     `json:"assignedManagerId"`
	CreatedAt         time.Time                   `json:"createdAt"`
	UpdatedAt         time.Time                   `json:"updatedAt"`
}

// NewServiceRequestResponse maps a request.
func NewServiceRequestResponse(r *domain.ServiceRequest) ServiceRequestResponse {
	return ServiceRequestResponse{
		ID:                r.ID,
		Title:             r.Title,
		Description:       r.Description,
		UserID:            r.UserID,
		Status:            r.Status,
		EquipmentCategory: r.EquipmentCategory,
		JobSite:           r.JobSite,
		StartDate:         r.StartDate,
		EndDate:           r.EndDate,
		DurationType:      r.DurationType,
		DurationValue:     r.DurationValue,
		BaseRate:          r.BaseRate,
		RateType:          r.RateType,
		Transport:         r.Transport,
		TotalEstimate:     r.TotalEstimate,
		AssignedManagerID: r.AssignedManagerID,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

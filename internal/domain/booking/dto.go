package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type TravelerRequest struct {
	FirstName             string `json:"first_name" binding:"required,max=100"`
	LastName              string `json:"last_name" binding:"required,max=100"`
	DateOfBirth           string `json:"date_of_birth"`
	Nationality           string `json:"nationality" binding:"max=100"`
	PassportNumber        string `json:"passport_number" binding:"max=50"`
	DietaryRequirements   string `json:"dietary_requirements"`
	MobilityRequirements  string `json:"mobility_requirements"`
	EmergencyContactName  string `json:"emergency_contact_name" binding:"max=200"`
	EmergencyContactPhone string `json:"emergency_contact_phone" binding:"max=32"`
}

type CreateBookingRequest struct {
	TourID                  string            `json:"tour_id" binding:"required"`
	FirstName               string            `json:"first_name" binding:"required,max=100"`
	LastName                string            `json:"last_name" binding:"required,max=100"`
	Email                   string            `json:"email" binding:"required,max=255"`
	Phone                   string            `json:"phone" binding:"max=32"`
	NumberOfTravelers       int               `json:"number_of_travelers"`
	PreferredDate           string            `json:"preferred_date"`
	AvailabilityDescription string            `json:"availability_description"`
	PreferredTime           string            `json:"preferred_time" binding:"max=20"`
	SpecialRequests         string            `json:"special_requests"`
	CustomerNotes           string            `json:"customer_notes"`
	PaymentMethod           string            `json:"payment_method" binding:"max=50"`
	DiscountAmount          int64             `json:"discount_amount"`
	TaxAmount               int64             `json:"tax_amount"`
	Travelers               []TravelerRequest `json:"travelers" binding:"dive"`
}

// toInput converts the request. Price adjustments are honoured for staff
// callers only.
func (r CreateBookingRequest) toInput(staff bool) (CreateInput, error) {
	tourID, err := uuid.Parse(strings.TrimSpace(r.TourID))
	if err != nil {
		return CreateInput{}, fmt.Errorf("%w: tour_id must be a UUID", ErrValidation)
	}
	schedule, err := ParseSchedule(r.PreferredDate, r.AvailabilityDescription)
	if err != nil {
		return CreateInput{}, err
	}

	travelers := make([]Traveler, 0, len(r.Travelers))
	for _, t := range r.Travelers {
		tr := Traveler{
			FirstName:             strings.TrimSpace(t.FirstName),
			LastName:              strings.TrimSpace(t.LastName),
			Nationality:           t.Nationality,
			PassportNumber:        t.PassportNumber,
			DietaryRequirements:   t.DietaryRequirements,
			MobilityRequirements:  t.MobilityRequirements,
			EmergencyContactName:  t.EmergencyContactName,
			EmergencyContactPhone: t.EmergencyContactPhone,
		}
		if t.DateOfBirth != "" {
			dob, err := time.Parse(dateLayout, t.DateOfBirth)
			if err != nil {
				return CreateInput{}, fmt.Errorf("%w: date_of_birth must be YYYY-MM-DD", ErrValidation)
			}
			tr.DateOfBirth = &dob
		}
		travelers = append(travelers, tr)
	}

	in := CreateInput{
		TourID:            tourID,
		FirstName:         r.FirstName,
		LastName:          r.LastName,
		Email:             r.Email,
		Phone:             r.Phone,
		NumberOfTravelers: r.NumberOfTravelers,
		Schedule:          schedule,
		PreferredTime:     r.PreferredTime,
		SpecialRequests:   r.SpecialRequests,
		CustomerNotes:     r.CustomerNotes,
		PaymentMethod:     r.PaymentMethod,
		Travelers:         travelers,
	}
	if staff {
		in.DiscountAmount = r.DiscountAmount
		in.TaxAmount = r.TaxAmount
	}
	return in, nil
}

type UpdateBookingRequest struct {
	FirstName               *string `json:"first_name" binding:"omitempty,max=100"`
	LastName                *string `json:"last_name" binding:"omitempty,max=100"`
	Email                   *string `json:"email" binding:"omitempty,max=255"`
	Phone                   *string `json:"phone" binding:"omitempty,max=32"`
	PreferredDate           *string `json:"preferred_date"`
	AvailabilityDescription *string `json:"availability_description"`
	PreferredTime           *string `json:"preferred_time" binding:"omitempty,max=20"`
	SpecialRequests         *string `json:"special_requests"`
}

func (r UpdateBookingRequest) toInput() (UpdateInput, error) {
	in := UpdateInput{
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		Email:           r.Email,
		Phone:           r.Phone,
		PreferredTime:   r.PreferredTime,
		SpecialRequests: r.SpecialRequests,
	}
	if r.PreferredDate != nil || r.AvailabilityDescription != nil {
		var date, desc string
		if r.PreferredDate != nil {
			date = *r.PreferredDate
		}
		if r.AvailabilityDescription != nil {
			desc = *r.AvailabilityDescription
		}
		schedule, err := ParseSchedule(date, desc)
		if err != nil {
			return UpdateInput{}, err
		}
		in.Schedule = &schedule
	}
	return in, nil
}

type CancelRequest struct {
	Reason        string `json:"reason"`
	ReasonDetails string `json:"reason_details"`
}

// parse defaults an empty reason to customer_request.
func (r CancelRequest) parse() (CancellationReason, error) {
	if strings.TrimSpace(r.Reason) == "" {
		return ReasonCustomerRequest, nil
	}
	reason, ok := ParseCancellationReason(r.Reason)
	if !ok {
		return "", fmt.Errorf("%w: unknown cancellation reason %q", ErrValidation, r.Reason)
	}
	return reason, nil
}

type GuestLookupRequest struct {
	BookingReference string `json:"booking_reference" binding:"required,max=20"`
	Email            string `json:"email" binding:"required"`
}

type GuestCancelRequest struct {
	GuestLookupRequest
	CancelRequest
}

type DeclineRequest struct {
	Reason string `json:"reason"`
}

type PaymentRequest struct {
	Amount               int64  `json:"amount" binding:"required,gt=0"`
	Gateway              string `json:"gateway" binding:"max=50"`
	GatewayTransactionID string `json:"gateway_transaction_id" binding:"max=200"`
	GatewayFee           int64  `json:"gateway_fee" binding:"gte=0"`
}

// BookingView is the JSON shape of a booking with derived fields.
type BookingView struct {
	*Booking
	ScheduleValue  Schedule `json:"schedule"`
	TourTitle      string   `json:"tour_title"`
	CanBeCancelled bool     `json:"can_be_cancelled"`
}

func NewBookingView(b *Booking, now time.Time) BookingView {
	v := BookingView{
		Booking:        b,
		ScheduleValue:  b.Schedule(),
		CanBeCancelled: b.CanBeCancelled(now),
	}
	if b.Tour != nil {
		v.TourTitle = b.Tour.Title
	}
	return v
}

func bookingViews(list []Booking, now time.Time) []BookingView {
	out := make([]BookingView, 0, len(list))
	for i := range list {
		out = append(out, NewBookingView(&list[i], now))
	}
	return out
}

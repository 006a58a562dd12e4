package models

import (
	"time"
)

// RequestStatus is the shared lifecycle of pending passenger and delivery
// requests: created externally in PENDING, left there for a later retry, or
// transitioned once by the dispatcher to ACCEPTED or (rarely) FAILED.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusAccepted  RequestStatus = "ACCEPTED"
	RequestStatusFailed    RequestStatus = "FAILED"
	RequestStatusCancelled RequestStatus = "CANCELLED"
)

// RequestKind distinguishes the two pending-request variants the clusterer
// and assembler both operate on, per the dynamic-dispatch-on-kind design in
// the engine's notes: shared geometry fields, kind-specific payload.
type RequestKind string

const (
	RequestKindPassenger RequestKind = "PASSENGER"
	RequestKindDelivery  RequestKind = "DELIVERY"
)

// PassengerRequest is a pending ride.
type PassengerRequest struct {
	ID             string        `json:"id" db:"id"`
	RequesterRef   string        `json:"requester_ref" db:"requester_ref"`
	From           string        `json:"from" db:"from_location"`
	To             string        `json:"to" db:"to_location"`
	DepartureTime  time.Time     `json:"departure_time" db:"departure_time"`
	PassengerCount int           `json:"passenger_count" db:"passenger_count"`
	Status         RequestStatus `json:"status" db:"status"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
}

// Kind implements PendingRequest.
func (p *PassengerRequest) Kind() RequestKind { return RequestKindPassenger }

// Validate checks passenger-request invariants.
func (p *PassengerRequest) Validate() error {
	if p.RequesterRef == "" {
		return ErrInvalidUserID
	}
	if p.PassengerCount < 1 {
		return ErrInvalidPassengerCount
	}
	return nil
}

// DeliveryRequest is a pending parcel. CodeSeq is a separate numeric
// sequence (db-assigned, independent of the opaque ID primary key) that
// NewDeliveryCode formats into the request's eventual delivery_code, the
// way the original's integer primary key fed delivery_code directly.
type DeliveryRequest struct {
	ID              string        `json:"id" db:"id"`
	CodeSeq         int64         `json:"code_seq" db:"code_seq"`
	SenderRef       string        `json:"sender_ref" db:"sender_ref"`
	From            string        `json:"from" db:"from_location"`
	To              string        `json:"to" db:"to_location"`
	ItemDescription string        `json:"item_description" db:"item_description"`
	Weight          float64       `json:"weight" db:"weight"`
	InsuranceAmount *float64      `json:"insurance_amount,omitempty" db:"insurance_amount"`
	ReceiverName    string        `json:"receiver_name" db:"receiver_name"`
	ReceiverPhone   string        `json:"receiver_phone" db:"receiver_phone"`
	Status          RequestStatus `json:"status" db:"status"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
}

// Kind implements PendingRequest.
func (d *DeliveryRequest) Kind() RequestKind { return RequestKindDelivery }

// Validate checks delivery-request invariants.
func (d *DeliveryRequest) Validate() error {
	if d.SenderRef == "" {
		return ErrInvalidUserID
	}
	if d.Weight < 0 {
		return ErrInvalidWeight
	}
	return nil
}

// PendingRequest is the tagged-variant interface the clusterer and assembler
// dispatch on, so both request kinds can travel through a single pipeline
// while carrying their own kind-specific payload.
type PendingRequest interface {
	RequestID() string
	Kind() RequestKind
	Endpoints() (from, to string)
}

// RequestID implements PendingRequest.
func (p *PassengerRequest) RequestID() string { return p.ID }

// Endpoints implements PendingRequest.
func (p *PassengerRequest) Endpoints() (string, string) { return p.From, p.To }

// RequestID implements PendingRequest.
func (d *DeliveryRequest) RequestID() string { return d.ID }

// Endpoints implements PendingRequest.
func (d *DeliveryRequest) Endpoints() (string, string) { return d.From, d.To }

var _ PendingRequest = (*PassengerRequest)(nil)
var _ PendingRequest = (*DeliveryRequest)(nil)

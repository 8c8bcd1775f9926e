package models

import (
	"errors"
	"time"

	dErrors "campaign/pkg/domain-errors"
)

var ErrUnknownField = errors.New("unknown checklist field")

// Status is the witness's election-day progress. It only moves forward.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
)

func (s Status) rank() int {
	switch s {
	case StatusConfirmed:
		return 1
	case StatusCompleted:
		return 2
	default:
		return 0
	}
}

func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusCompleted
}

// ChecklistField names one of the six election-day steps.
type ChecklistField string

const (
	FieldConfirmedAttendance ChecklistField = "confirmed_attendance"
	FieldReceivedCredential  ChecklistField = "received_credential"
	FieldArrivedAtStation    ChecklistField = "arrived_at_station"
	FieldReportedVotingStart ChecklistField = "reported_voting_start"
	FieldReportedVotingEnd   ChecklistField = "reported_voting_end"
	FieldDeliveredAct        ChecklistField = "delivered_act"
)

// ChecklistFields lists every field in election-day order.
var ChecklistFields = []ChecklistField{
	FieldConfirmedAttendance,
	FieldReceivedCredential,
	FieldArrivedAtStation,
	FieldReportedVotingStart,
	FieldReportedVotingEnd,
	FieldDeliveredAct,
}

func ParseChecklistField(s string) (ChecklistField, error) {
	for _, f := range ChecklistFields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", dErrors.Wrap(ErrUnknownField, dErrors.CodeInvalidInput, "unknown checklist field: "+s)
}

// Checklist holds the six flags and the time each was first observed true.
// Timestamps are write-once.
type Checklist struct {
	ConfirmedAttendance bool `json:"confirmed_attendance"`
	ReceivedCredential  bool `json:"received_credential"`
	ArrivedAtStation    bool `json:"arrived_at_station"`
	ReportedVotingStart bool `json:"reported_voting_start"`
	ReportedVotingEnd   bool `json:"reported_voting_end"`
	DeliveredAct        bool `json:"delivered_act"`

	ConfirmedAt          *time.Time `json:"confirmed_at,omitempty"`
	CredentialReceivedAt *time.Time `json:"credential_received_at,omitempty"`
	ArrivedAt            *time.Time `json:"arrived_at,omitempty"`
	VotingStartAt        *time.Time `json:"voting_start_at,omitempty"`
	VotingEndAt          *time.Time `json:"voting_end_at,omitempty"`
	ActDeliveredAt       *time.Time `json:"act_delivered_at,omitempty"`
}

func (c *Checklist) slots(field ChecklistField) (*bool, **time.Time) {
	switch field {
	case FieldConfirmedAttendance:
		return &c.ConfirmedAttendance, &c.ConfirmedAt
	case FieldReceivedCredential:
		return &c.ReceivedCredential, &c.CredentialReceivedAt
	case FieldArrivedAtStation:
		return &c.ArrivedAtStation, &c.ArrivedAt
	case FieldReportedVotingStart:
		return &c.ReportedVotingStart, &c.VotingStartAt
	case FieldReportedVotingEnd:
		return &c.ReportedVotingEnd, &c.VotingEndAt
	case FieldDeliveredAct:
		return &c.DeliveredAct, &c.ActDeliveredAt
	}
	return nil, nil
}

// Set writes a flag. A true value stamps the field's timestamp if it is still empty;
// a false value never clears it.
func (c *Checklist) Set(field ChecklistField, value bool, now time.Time) error {
	flag, stamp := c.slots(field)
	if flag == nil {
		return dErrors.Wrap(ErrUnknownField, dErrors.CodeInvalidInput, "unknown checklist field: "+string(field))
	}
	*flag = value
	if value && *stamp == nil {
		t := now
		*stamp = &t
	}
	return nil
}

// Get returns the flag value of a known field.
func (c *Checklist) Get(field ChecklistField) bool {
	flag, _ := c.slots(field)
	return flag != nil && *flag
}

func (c *Checklist) Complete() bool {
	return c.ConfirmedAttendance && c.ReceivedCredential && c.ArrivedAtStation &&
		c.ReportedVotingStart && c.ReportedVotingEnd && c.DeliveredAct
}

// NextStatus derives the status after a checklist write. The result is never
// behind current.
func NextStatus(current Status, c Checklist) Status {
	next := StatusPending
	if c.ConfirmedAttendance {
		next = StatusConfirmed
	}
	if c.Complete() {
		next = StatusCompleted
	}
	if next.rank() < current.rank() {
		return current
	}
	return next
}

package models

import (
	"errors"
	"time"

	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
)

var ErrInvalidCounts = errors.New("invalid vote counts")

// VoteCounts are the figures a witness reads off the table's tally sheet.
// Candidate votes are a subset of Registered votes.
type VoteCounts struct {
	Candidate  int `json:"votes_candidate"`
	Registered int `json:"votes_registered"`
	Blank      int `json:"votes_blank"`
	Null       int `json:"votes_null"`
}

func (c VoteCounts) Validate() error {
	if c.Candidate < 0 || c.Registered < 0 || c.Blank < 0 || c.Null < 0 {
		return dErrors.Wrap(ErrInvalidCounts, dErrors.CodeInvalidInput, "vote counts must not be negative")
	}
	if c.Candidate > c.Registered {
		return dErrors.Wrap(ErrInvalidCounts, dErrors.CodeInvalidInput, "candidate votes cannot exceed registered votes")
	}
	return nil
}

// Total is registered + blank + null. Candidate votes are not added again.
func (c VoteCounts) Total() int {
	return c.Registered + c.Blank + c.Null
}

// TableReport is the live ledger entry of one table. Submission and validation
// are independent axes.
type TableReport struct {
	ID                 id.ReportID         `json:"id"`
	PollingStationID   id.PollingStationID `json:"polling_station_id"`
	TableNumber        int                 `json:"table_number"`
	VotesCandidate     int                 `json:"votes_candidate"`
	VotesRegistered    int                 `json:"votes_registered"`
	VotesBlank         int                 `json:"votes_blank"`
	VotesNull          int                 `json:"votes_null"`
	TotalVotes         int                 `json:"total_votes"`
	Observations       string              `json:"observations"`
	HasIrregularities  bool                `json:"has_irregularities"`
	IrregularityDetail string              `json:"irregularity_detail"`
	ReportedBy         id.WitnessID        `json:"reported_by"`
	ReportedAt         time.Time           `json:"reported_at"`
	IsValidated        bool                `json:"is_validated"`
	ValidatedBy        *id.UserID          `json:"validated_by,omitempty"`
	ValidatedAt        *time.Time          `json:"validated_at,omitempty"`
}

// Submission is one witness's reading of a table.
type Submission struct {
	PollingStationID   id.PollingStationID
	TableNumber        int
	Counts             VoteCounts
	Observations       string
	HasIrregularities  bool
	IrregularityDetail string
	ReportedBy         id.WitnessID
	ReportedAt         time.Time
}

// NewReport builds a fresh, unvalidated report from a submission.
func NewReport(reportID id.ReportID, sub Submission) *TableReport {
	r := &TableReport{ID: reportID}
	r.ApplySubmission(sub)
	return r
}

// ApplySubmission overwrites every submitted field. Identity and validation
// state are left as they are.
func (r *TableReport) ApplySubmission(sub Submission) {
	r.PollingStationID = sub.PollingStationID
	r.TableNumber = sub.TableNumber
	r.VotesCandidate = sub.Counts.Candidate
	r.VotesRegistered = sub.Counts.Registered
	r.VotesBlank = sub.Counts.Blank
	r.VotesNull = sub.Counts.Null
	r.TotalVotes = sub.Counts.Total()
	r.Observations = sub.Observations
	r.HasIrregularities = sub.HasIrregularities
	r.IrregularityDetail = sub.IrregularityDetail
	r.ReportedBy = sub.ReportedBy
	r.ReportedAt = sub.ReportedAt
}

// ApplyValidation sets or clears validation. Counts are never touched.
func (r *TableReport) ApplyValidation(isValidated bool, by id.UserID, now time.Time) {
	r.IsValidated = isValidated
	if !isValidated {
		r.ValidatedBy = nil
		r.ValidatedAt = nil
		return
	}
	validator := by
	at := now
	r.ValidatedBy = &validator
	r.ValidatedAt = &at
}

// IsStale reports a validated report whose figures were resubmitted afterwards.
func (r *TableReport) IsStale() bool {
	return r.IsValidated && r.ValidatedAt != nil && r.ReportedAt.After(*r.ValidatedAt)
}

func (r *TableReport) Key() id.TableKey {
	return id.TableKey{PollingStationID: r.PollingStationID, TableNumber: r.TableNumber}
}

func (r *TableReport) Counts() VoteCounts {
	return VoteCounts{Candidate: r.VotesCandidate, Registered: r.VotesRegistered, Blank: r.VotesBlank, Null: r.VotesNull}
}

func (r *TableReport) Clone() *TableReport {
	cp := *r
	if r.ValidatedBy != nil {
		v := *r.ValidatedBy
		cp.ValidatedBy = &v
	}
	if r.ValidatedAt != nil {
		t := *r.ValidatedAt
		cp.ValidatedAt = &t
	}
	return &cp
}

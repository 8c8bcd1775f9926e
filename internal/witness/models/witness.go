package models

import (
	"crypto/rand"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
)

// MaxAssignedTables bounds how many tables one witness may cover.
const MaxAssignedTables = 5

var ErrInvalidAssignment = errors.New("invalid table assignment")

// Witness is the election-day role of a voter at one polling station.
type Witness struct {
	ID               id.WitnessID        `json:"id"`
	Code             string              `json:"code"`
	VoterID          id.VoterID          `json:"voter_id"`
	LeaderID         id.LeaderID         `json:"leader_id"`
	PollingStationID id.PollingStationID `json:"polling_station_id"`
	AssignedTables   []int               `json:"assigned_tables"`
	Status           Status              `json:"status"`
	Checklist        Checklist           `json:"checklist"`
	Experience       string              `json:"experience"`
	Availability     string              `json:"availability"`
	EmergencyContact string              `json:"emergency_contact"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// Profile is the free-text information captured at assignment.
type Profile struct {
	Experience       string
	Availability     string
	EmergencyContact string
}

// NormalizeTables deduplicates and sorts tables and checks them against the
// station's table count.
func NormalizeTables(tables []int, totalTables int) ([]int, error) {
	if len(tables) == 0 {
		return nil, dErrors.Wrap(ErrInvalidAssignment, dErrors.CodeInvariantViolation, "at least one table must be assigned")
	}
	out := slices.Clone(tables)
	slices.Sort(out)
	out = slices.Compact(out)
	for _, n := range out {
		if n < 1 || n > totalTables {
			return nil, dErrors.Wrap(ErrInvalidAssignment, dErrors.CodeInvariantViolation,
				"table "+strconv.Itoa(n)+" is outside 1.."+strconv.Itoa(totalTables))
		}
	}
	if len(out) > MaxAssignedTables {
		return nil, dErrors.Wrap(ErrInvalidAssignment, dErrors.CodeInvalidInput,
			"a witness can cover at most "+strconv.Itoa(MaxAssignedTables)+" tables")
	}
	return out, nil
}

// NewWitness builds a pending witness. tables must already be normalized.
func NewWitness(witnessID id.WitnessID, code string, voterID id.VoterID, leaderID id.LeaderID,
	stationID id.PollingStationID, tables []int, profile Profile, now time.Time,
) (*Witness, error) {
	if len(tables) == 0 {
		return nil, dErrors.Wrap(ErrInvalidAssignment, dErrors.CodeInvariantViolation, "at least one table must be assigned")
	}
	if code == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "witness code is required")
	}
	return &Witness{
		ID:               witnessID,
		Code:             code,
		VoterID:          voterID,
		LeaderID:         leaderID,
		PollingStationID: stationID,
		AssignedTables:   tables,
		Status:           StatusPending,
		Experience:       profile.Experience,
		Availability:     profile.Availability,
		EmergencyContact: profile.EmergencyContact,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// HasTable reports whether the witness is assigned table n.
func (w *Witness) HasTable(n int) bool {
	return slices.Contains(w.AssignedTables, n)
}

// Tables returns the table keys the witness covers.
func (w *Witness) Tables() []id.TableKey {
	out := make([]id.TableKey, len(w.AssignedTables))
	for i, n := range w.AssignedTables {
		out[i] = id.TableKey{PollingStationID: w.PollingStationID, TableNumber: n}
	}
	return out
}

// ApplyChecklist writes one flag and recomputes the status.
func (w *Witness) ApplyChecklist(field ChecklistField, value bool, now time.Time) error {
	if err := w.Checklist.Set(field, value, now); err != nil {
		return err
	}
	w.Status = NextStatus(w.Status, w.Checklist)
	w.UpdatedAt = now
	return nil
}

// Clone returns a deep copy.
func (w *Witness) Clone() *Witness {
	cp := *w
	cp.AssignedTables = slices.Clone(w.AssignedTables)
	c := &cp.Checklist
	for _, stamp := range []**time.Time{&c.ConfirmedAt, &c.CredentialReceivedAt, &c.ArrivedAt,
		&c.VotingStartAt, &c.VotingEndAt, &c.ActDeliveredAt} {
		if *stamp != nil {
			t := **stamp
			*stamp = &t
		}
	}
	return &cp
}

// codeAlphabet omits characters that are easy to misread when dictated.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeLength = 8

// GenerateCode creates a random access code for a field witness.
func GenerateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate witness code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	geomodels "campaign/internal/geo/models"
	geostore "campaign/internal/geo/store"
	orgmodels "campaign/internal/organization/models"
	orgstore "campaign/internal/organization/store"
	"campaign/internal/witness/models"
	"campaign/internal/witness/service"
	"campaign/internal/witness/store"
	id "campaign/pkg/domain"
)

type fixture struct {
	router  chi.Router
	voter   *orgmodels.Voter
	leader  *orgmodels.Leader
	station *geomodels.PollingStation
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	directory := orgstore.NewInMemory()
	catalog := geostore.NewInMemory()

	f := &fixture{
		voter:   &orgmodels.Voter{ID: id.VoterID(uuid.New()), DocumentNumber: "123", Name: "W1"},
		leader:  &orgmodels.Leader{ID: id.LeaderID(uuid.New()), CandidateID: id.CandidateID(uuid.New()), Name: "L1"},
		station: &geomodels.PollingStation{ID: id.PollingStationID(uuid.New()), Code: "PS-1", TotalTables: 4},
	}
	require.NoError(t, directory.SaveVoter(ctx, f.voter))
	require.NoError(t, directory.SaveLeader(ctx, f.leader))
	require.NoError(t, catalog.SavePollingStation(ctx, f.station))

	svc := service.New(store.NewInMemory(), directory, catalog, service.WithLogger(logger))
	f.router = chi.NewRouter()
	New(svc, logger).Register(f.router)
	return f
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestAssignAndChecklistFlow(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/witnesses", map[string]any{
		"voter_id":           f.voter.ID.String(),
		"leader_id":          f.leader.ID.String(),
		"polling_station_id": f.station.ID.String(),
		"tables":             []int{1, 2},
		"availability":       "full day",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created WitnessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, models.StatusPending, created.Status)
	assert.Equal(t, []int{1, 2}, created.AssignedTables)

	rec = f.do(http.MethodPatch, "/witnesses/"+created.ID+"/checklist", map[string]any{
		"field": "confirmed_attendance",
		"value": true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated WitnessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
	assert.Equal(t, models.StatusConfirmed, updated.Status)
	assert.NotNil(t, updated.Checklist.ConfirmedAt)

	rec = f.do(http.MethodGet, "/witnesses/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAssignValidation(t *testing.T) {
	f := newFixture(t)

	t.Run("malformed voter id", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/witnesses", map[string]any{
			"voter_id": "x", "leader_id": f.leader.ID.String(), "polling_station_id": f.station.ID.String(), "tables": []int{1},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("out of range table", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/witnesses", map[string]any{
			"voter_id": f.voter.ID.String(), "leader_id": f.leader.ID.String(),
			"polling_station_id": f.station.ID.String(), "tables": []int{7},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestChecklistErrors(t *testing.T) {
	f := newFixture(t)

	t.Run("unknown field", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/witnesses", map[string]any{
			"voter_id": f.voter.ID.String(), "leader_id": f.leader.ID.String(),
			"polling_station_id": f.station.ID.String(), "tables": []int{1},
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		var created WitnessResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

		rec = f.do(http.MethodPatch, "/witnesses/"+created.ID+"/checklist", map[string]any{"field": "nap", "value": true})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing value", func(t *testing.T) {
		rec := f.do(http.MethodPatch, "/witnesses/"+uuid.NewString()+"/checklist", map[string]any{"field": "delivered_act"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown witness", func(t *testing.T) {
		rec := f.do(http.MethodPatch, "/witnesses/"+uuid.NewString()+"/checklist", map[string]any{"field": "delivered_act", "value": true})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign/internal/report/service"
	"campaign/internal/report/store"
	witnessmodels "campaign/internal/witness/models"
	witnessstore "campaign/internal/witness/store"
	id "campaign/pkg/domain"
	"campaign/pkg/testutil"
)

type fixture struct {
	router    chi.Router
	validator string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	witnesses := witnessstore.NewInMemory()
	w, err := witnessmodels.NewWitness(id.WitnessID(uuid.New()), "QRST2345", id.VoterID(uuid.New()),
		id.LeaderID(uuid.New()), id.PollingStationID(uuid.New()), []int{1, 2}, witnessmodels.Profile{}, time.Now())
	require.NoError(t, err)
	require.NoError(t, witnesses.Create(ctx, w))

	h := New(service.New(store.NewInMemory(), witnesses, service.WithLogger(logger)), logger)
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterProtected(r)
	return &fixture{router: r, validator: uuid.NewString()}
}

func (f *fixture) submit(t *testing.T, table int) *ReportResponse {
	t.Helper()
	rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/reports", map[string]any{
		"witness_code":     "qrst2345",
		"table_number":     table,
		"votes_candidate":  120,
		"votes_registered": 300,
		"votes_blank":      5,
		"votes_null":       2,
	}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return testutil.UnmarshalResponse[ReportResponse](t, rr)
}

func (f *fixture) validate(t *testing.T, reportID string, body any) *http.Request {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/reports/"+reportID+"/validation", body)
	return testutil.WithUserID(req, f.validator)
}

func TestSubmitAndValidate(t *testing.T) {
	f := newFixture(t)

	testutil.Given(t, "a submitted table", func(t *testing.T) {
		created := f.submit(t, 1)
		assert.Equal(t, 307, created.TotalVotes)
		assert.False(t, created.IsValidated)

		testutil.When(t, "an authenticated user validates it", func(t *testing.T) {
			rr := testutil.DoRequest(f.router, f.validate(t, created.ID, map[string]any{"is_validated": true}))
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

			testutil.Then(t, "the validator is recorded", func(t *testing.T) {
				validated := testutil.UnmarshalResponse[ReportResponse](t, rr)
				assert.True(t, validated.IsValidated)
				assert.Equal(t, f.validator, validated.ValidatedBy)
				assert.NotNil(t, validated.ValidatedAt)
			})
		})

		testutil.Then(t, "it can be read back", func(t *testing.T) {
			rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodGet, "/reports/"+created.ID, nil))
			assert.Equal(t, http.StatusOK, rr.Code)
		})
	})
}

func TestSubmitErrors(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"missing code", map[string]any{"table_number": 1}, http.StatusBadRequest, "validation_error"},
		{"unknown code", map[string]any{"witness_code": "ZZZZ2222", "table_number": 1}, http.StatusNotFound, "not_found"},
		{"table not assigned", map[string]any{"witness_code": "QRST2345", "table_number": 3}, http.StatusBadRequest, "invalid_input"},
		{"negative counts", map[string]any{"witness_code": "QRST2345", "table_number": 1, "votes_blank": -1}, http.StatusBadRequest, "invalid_input"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/reports", tc.body))
			testutil.AssertStatusAndError(t, rr, tc.status, tc.code)
		})
	}
}

func TestValidationRequiresCaller(t *testing.T) {
	f := newFixture(t)
	created := f.submit(t, 2)

	anonymous := testutil.NewJSONRequest(t, http.MethodPost, "/reports/"+created.ID+"/validation", map[string]any{"is_validated": true})
	testutil.AssertStatusAndError(t, testutil.DoRequest(f.router, anonymous), http.StatusUnauthorized, "unauthorized")

	rr := testutil.DoRequest(f.router, f.validate(t, created.ID, map[string]any{}))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")

	rr = testutil.DoRequest(f.router, f.validate(t, uuid.NewString(), map[string]any{"is_validated": true}))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestListStale(t *testing.T) {
	f := newFixture(t)
	created := f.submit(t, 1)

	rr := testutil.DoRequest(f.router, f.validate(t, created.ID, map[string]any{"is_validated": true}))
	require.Equal(t, http.StatusOK, rr.Code)

	// Resubmitting after validation leaves the validation stale.
	time.Sleep(2 * time.Millisecond)
	f.submit(t, 1)

	rr = testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodGet, "/reports/stale", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	list := testutil.UnmarshalResponse[ReportListResponse](t, rr)
	require.Len(t, list.Reports, 1)
	assert.True(t, list.Reports[0].StaleValidation)

	rr = testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodGet, "/reports/stale?polling_station_id=nope", nil))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
}

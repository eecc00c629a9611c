package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobValidate(t *testing.T) {
	tests := []struct {
		name      string
		job       Job
		wantField string
	}{
		{name: "valid", job: Job{Title: "Fix Sink", Status: StatusPending}},
		{name: "missing title", job: Job{Title: "  ", Status: StatusPending}, wantField: "title"},
		{name: "missing status", job: Job{Title: "Fix Sink"}, wantField: "status"},
		{name: "free-form status is not canonical", job: Job{Title: "Fix Sink", Status: "in progress"}, wantField: "status"},
		{name: "unsaved client", job: Job{Title: "Fix Sink", Status: StatusPending, Client: &ClientRef{ID: -1}}, wantField: "client"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestJobDisplay(t *testing.T) {
	j := Job{ID: 7, Title: "Fix Sink", Status: "in progress"}
	assert.Equal(t, "JOB-0007", j.Ref())
	assert.Equal(t, StatusInProgress, j.DisplayStatus())
	assert.Equal(t, "No Client", j.ClientName())

	j.Client = ForClient(Client{ID: 3, Name: "Acme Ltd"})
	assert.Equal(t, "Acme Ltd", j.ClientName())

	p := j.Provisional(-1)
	assert.Equal(t, "JOB-NEW", p.Ref())
	assert.False(t, p.Confirmed())
	assert.True(t, j.Confirmed())
}

func TestJobJSON(t *testing.T) {
	raw := `{"id":4,"title":"Boiler service","status":"COMPLETED","scheduledDate":"2024-05-01T09:30:00",` +
		`"client":{"id":2,"name":"Bob","email":"bob@example.com"}}`
	var j Job
	require.NoError(t, json.Unmarshal([]byte(raw), &j))
	assert.Equal(t, int64(4), j.ID)
	require.NotNil(t, j.ScheduledDate)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 30, 0, 0, time.Local), j.ScheduledDate.Time)
	assert.Equal(t, "Bob", j.ClientName())

	out, err := json.Marshal(j)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"scheduledDate":"2024-05-01T09:30:00"`)
	assert.NotContains(t, string(out), "Unconfirmed")
}

func TestDashboardCompletionRate(t *testing.T) {
	assert.Zero(t, DashboardStats{}.CompletionRate())
	assert.InDelta(t, 0.25, DashboardStats{TotalJobs: 8, CompletedJobs: 2}.CompletionRate(), 1e-9)
}

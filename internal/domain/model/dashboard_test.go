package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDashboard_Consistent(t *testing.T) {
	d := Dashboard{
		TotalRequests: 6,
		ByStatus: map[RequestStatus]int{
			StatusNew:        3,
			StatusInProgress: 2,
			StatusDone:       1,
		},
	}
	assert.True(t, d.Consistent())
}

func TestDashboard_Inconsistent(t *testing.T) {
	d := Dashboard{
		TotalRequests: 10,
		ByStatus: map[RequestStatus]int{
			StatusNew:  3,
			StatusDone: 1,
		},
	}
	assert.False(t, d.Consistent())
}

func TestDashboard_EmptyIsConsistent(t *testing.T) {
	assert.True(t, Dashboard{}.Consistent())
}

func TestRequestStatus_Terminal(t *testing.T) {
	tests := []struct {
		status   RequestStatus
		terminal bool
	}{
		{StatusNew, false},
		{StatusTriaged, false},
		{StatusApproved, false},
		{StatusInProgress, false},
		{StatusDone, true},
		{StatusRejected, true},
	}

	for _, tc := range tests {
		t.Run(string(tc.status), func(t *testing.T) {
			assert.Equal(t, tc.terminal, tc.status.Terminal())
		})
	}
}

func TestEnums_Valid(t *testing.T) {
	for _, s := range RequestStatuses {
		assert.True(t, s.Valid(), "status %q", s)
	}
	for _, p := range Priorities {
		assert.True(t, p.Valid(), "priority %q", p)
	}
	for _, rt := range RequestTypes {
		assert.True(t, rt.Valid(), "type %q", rt)
	}

	assert.False(t, RequestStatus("Closed").Valid())
	assert.False(t, Priority("Urgent").Valid())
	assert.False(t, RequestType("Chore").Valid())
}

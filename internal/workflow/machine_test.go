package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMachineTransitions(t *testing.T) {
	tests := []struct {
		name      string
		current   State
		trigger   Trigger
		hasNext   bool
		wantState State
		wantErr   bool
	}{
		{
			name:      "approve from pending with steps remaining",
			current:   StatePending,
			trigger:   TriggerApprove,
			hasNext:   true,
			wantState: StateInProgress,
		},
		{
			name:      "approve from pending at last step",
			current:   StatePending,
			trigger:   TriggerApprove,
			hasNext:   false,
			wantState: StateApproved,
		},
		{
			name:      "approve from in progress with steps remaining",
			current:   StateInProgress,
			trigger:   TriggerApprove,
			hasNext:   true,
			wantState: StateInProgress,
		},
		{
			name:      "approve from in progress at last step",
			current:   StateInProgress,
			trigger:   TriggerApprove,
			hasNext:   false,
			wantState: StateApproved,
		},
		{
			name:      "reject from pending",
			current:   StatePending,
			trigger:   TriggerReject,
			wantState: StateRejected,
		},
		{
			name:      "reject from in progress",
			current:   StateInProgress,
			trigger:   TriggerReject,
			wantState: StateRejected,
		},
		{
			name:    "approve from approved is rejected",
			current: StateApproved,
			trigger: TriggerApprove,
			wantErr: true,
		},
		{
			name:    "reject from rejected is rejected",
			current: StateRejected,
			trigger: TriggerReject,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hasNext := tt.hasNext
			machine := newStatusMachine(tt.current, func(context.Context) bool { return hasNext })

			err := machine.Fire(context.Background(), tt.trigger)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidState)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantState, machine.State())
		})
	}
}

func TestStatusMachineCanFire(t *testing.T) {
	machine := newStatusMachine(StatePending, func(context.Context) bool { return true })
	assert.True(t, machine.CanFire(TriggerApprove))
	assert.True(t, machine.CanFire(TriggerReject))

	terminal := newStatusMachine(StateApproved, nil)
	assert.False(t, terminal.CanFire(TriggerApprove))
	assert.False(t, terminal.CanFire(TriggerReject))
}

func TestBuilderPanicsOnInvalidState(t *testing.T) {
	assert.Panics(t, func() {
		NewBuilder().Configure(State("Bogus"))
	})

	assert.Panics(t, func() {
		NewBuilder().Build(State(""))
	})
}

package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flybeeper/radarsim/pkg/utils"
)

func TestParser_Topics(t *testing.T) {
	parser := NewParser("/radarsim/", utils.Discard())

	assert.Equal(t, "radarsim/commands/+", parser.CommandTopic())
	assert.Equal(t, "radarsim/events/radar", parser.EventTopic("radar"))
}

func TestParser_Parse_ValidTopic(t *testing.T) {
	parser := NewParser("radarsim", utils.Discard())

	tests := []struct {
		name        string
		topic       string
		expectError bool
	}{
		{
			name:        "Valid topic format",
			topic:       "radarsim/commands/pause",
			expectError: false,
		},
		{
			name:        "Invalid topic - wrong prefix",
			topic:       "othersim/commands/pause",
			expectError: true,
		},
		{
			name:        "Invalid topic - missing parts",
			topic:       "radarsim/pause",
			expectError: true,
		},
		{
			name:        "Invalid topic - events instead of commands",
			topic:       "radarsim/events/pause",
			expectError: true,
		},
		{
			name:        "Unknown command",
			topic:       "radarsim/commands/launch",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := parser.Parse(tt.topic, nil)

			if tt.expectError {
				assert.ErrorIs(t, err, ErrInvalidCommand)
				assert.Nil(t, cmd)
			} else {
				require.NoError(t, err)
				assert.Equal(t, CmdPause, cmd.Name)
			}
		})
	}
}

func TestParser_Parse_Payload(t *testing.T) {
	parser := NewParser("radarsim", utils.Discard())

	tests := []struct {
		name    string
		command string
		payload string
		wantErr bool
		check   func(t *testing.T, cmd *Command)
	}{
		{
			name:    "toggle with request id",
			command: CmdToggleRadar,
			payload: `{"request_id":"r1","radar_id":"radar-3"}`,
			check: func(t *testing.T, cmd *Command) {
				assert.Equal(t, "r1", cmd.RequestID)
				assert.Equal(t, "radar-3", cmd.RadarID)
			},
		},
		{
			name:    "toggle without radar id",
			command: CmdToggleRadar,
			payload: `{}`,
			wantErr: true,
		},
		{
			name:    "bulk outage default fraction",
			command: CmdBulkOutage,
			payload: ``,
			check: func(t *testing.T, cmd *Command) {
				assert.Nil(t, cmd.Fraction)
			},
		},
		{
			name:    "bulk outage explicit fraction",
			command: CmdBulkOutage,
			payload: `{"fraction":0.25}`,
			check: func(t *testing.T, cmd *Command) {
				require.NotNil(t, cmd.Fraction)
				assert.Equal(t, 0.25, *cmd.Fraction)
			},
		},
		{
			name:    "bulk outage fraction out of range",
			command: CmdBulkOutage,
			payload: `{"fraction":1.5}`,
			wantErr: true,
		},
		{
			name:    "add radar",
			command: CmdAddRadar,
			payload: `{"radar":{"name":"North Sea","position":{"lat":56,"lng":3},"range_nm":200}}`,
			check: func(t *testing.T, cmd *Command) {
				require.NotNil(t, cmd.Radar)
				assert.Equal(t, "North Sea", cmd.Radar.Name)
				assert.Equal(t, 56.0, cmd.Radar.Position.Lat)
				assert.Equal(t, 200.0, cmd.Radar.RangeNM)
			},
		},
		{
			name:    "add radar invalid position",
			command: CmdAddRadar,
			payload: `{"radar":{"position":{"lat":120,"lng":3}}}`,
			wantErr: true,
		},
		{
			name:    "set finance negative",
			command: CmdSetFinance,
			payload: `{"finance":{"radar_cost_per_year":-1}}`,
			wantErr: true,
		},
		{
			name:    "set speed zero",
			command: CmdSetSpeed,
			payload: `{"speed":0}`,
			wantErr: true,
		},
		{
			name:    "step",
			command: CmdStep,
			payload: `{"hours":0.5}`,
			check: func(t *testing.T, cmd *Command) {
				assert.Equal(t, 0.5, cmd.Hours)
			},
		},
		{
			name:    "analysis days required",
			command: CmdStartAnalysis,
			payload: `{}`,
			wantErr: true,
		},
		{
			name:    "cancel requires job",
			command: CmdCancelAnalysis,
			payload: `{"job_id":""}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			command: CmdPause,
			payload: `{"request_id":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := parser.Parse("radarsim/commands/"+tt.command, []byte(tt.payload))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCommand)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.command, cmd.Name)
			if tt.check != nil {
				tt.check(t, cmd)
			}
		})
	}
}

package schedule_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmaia/cascata/pkg/schedule"
)

func TestNewScheduler(t *testing.T) {
	t.Parallel()

	logger := slog.Default()

	tests := []struct {
		name         string
		definitionID string
		cronExpr     string
		expectError  bool
		errorMsg     string
	}{
		{
			name:         "valid_schedule",
			definitionID: "wf-orders",
			cronExpr:     "*/5 * * * *",
		},
		{
			name:        "missing_definition_id",
			cronExpr:    "*/5 * * * *",
			expectError: true,
			errorMsg:    "definition ID is required",
		},
		{
			name:         "missing_cron_expression",
			definitionID: "wf-orders",
			expectError:  true,
			errorMsg:     "cron expression is required",
		},
		{
			name:         "invalid_cron_expression",
			definitionID: "wf-orders",
			cronExpr:     "not a cron",
			expectError:  true,
			errorMsg:     "invalid cron expression",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			scheduler, err := schedule.NewScheduler(tt.definitionID, tt.cronExpr, logger)

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.definitionID, scheduler.DefinitionID)
			assert.True(t, scheduler.Enabled)
		})
	}
}

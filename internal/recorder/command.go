package recorder

import (
	"context"
	"fmt"
	"strconv"

	"github.com/radiograb/internal/models"
	"github.com/radiograb/internal/process"
)

// CommandRecorder returns a RecordFunc that runs:
// <command> --show-id ID --duration-minutes N
func CommandRecorder(command process.Command) RecordFunc {
	return func(ctx context.Context, show *models.Show) error {
		out, err := process.Run(ctx, 0, command,
			"--show-id", strconv.FormatUint(uint64(show.ID), 10),
			"--duration-minutes", strconv.Itoa(show.DurationMinutes),
		)
		if err != nil {
			return fmt.Errorf("record show %d: %w: %s", show.ID, err, out.Combined())
		}
		return nil
	}
}

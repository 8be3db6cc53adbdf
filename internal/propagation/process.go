// Package propagation reaches the downstream TTL manager and recording
// scheduler, either by running their command-line tools or by publishing
// show events to RabbitMQ.
package propagation

import (
	"context"
	"fmt"
	"strconv"

	"github.com/radiograb/internal/models"
	"github.com/radiograb/internal/process"
	"github.com/radiograb/pkg/logger"
)

// ProcessTTL applies retention policy by running the TTL manager tool
type ProcessTTL struct {
	command process.Command
	log     *logger.Logger
}

// NewProcessTTL creates a process-backed TTL manager
func NewProcessTTL(command process.Command, log *logger.Logger) *ProcessTTL {
	return &ProcessTTL{command: command, log: log.WithComponent("ttl_manager")}
}

// UpdateShowTTL runs: <command> --update-show-ttl ID --ttl-days N --ttl-type T.
// The deadline comes from ctx.
func (p *ProcessTTL) UpdateShowTTL(ctx context.Context, showID uint, retentionDays int, ttlType models.TTLType) error {
	return run(ctx, p.log.WithShowID(showID), p.command,
		"--update-show-ttl", formatID(showID),
		"--ttl-days", strconv.Itoa(retentionDays),
		"--ttl-type", string(ttlType),
	)
}

// ProcessScheduler asks the schedule manager tool to reload one show
type ProcessScheduler struct {
	command process.Command
	log     *logger.Logger
}

// NewProcessScheduler creates a process-backed scheduler
func NewProcessScheduler(command process.Command, log *logger.Logger) *ProcessScheduler {
	return &ProcessScheduler{command: command, log: log.WithComponent("scheduler")}
}

// RescheduleShow runs: <command> --update-show ID
func (p *ProcessScheduler) RescheduleShow(ctx context.Context, showID uint) error {
	return run(ctx, p.log.WithShowID(showID), p.command, "--update-show", formatID(showID))
}

func run(ctx context.Context, log *logger.Logger, command process.Command, args ...string) error {
	out, err := process.Run(ctx, 0, command, args...)
	if err != nil {
		if combined := out.Combined(); combined != "" {
			return fmt.Errorf("%w: %s", err, combined)
		}
		return err
	}
	log.Debug().Str("output", out.Combined()).Msg("Collaborator finished")
	return nil
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

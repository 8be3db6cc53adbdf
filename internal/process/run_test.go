package process

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shell(script string) Command {
	return Command{Path: "/bin/sh", Args: []string{"-c", script, "sh"}}
}

func TestRun_PassesExtraArgs(t *testing.T) {
	out, err := Run(context.Background(), time.Second, shell(`printf '%s|%s' "$1" "$2"`), "every weekday", "8:00 AM")
	require.NoError(t, err)
	assert.Equal(t, "every weekday|8:00 AM", string(out.Stdout))
}

func TestRun_NonZeroExit(t *testing.T) {
	out, err := Run(context.Background(), time.Second, shell(`echo partial; echo boom >&2; exit 3`))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, "partial\nboom", out.Combined())
}

func TestRun_Timeout(t *testing.T) {
	start := time.Now()
	_, err := Run(context.Background(), 50*time.Millisecond, shell(`sleep 5`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestRun_NoCommand(t *testing.T) {
	_, err := Run(context.Background(), time.Second, Command{})
	require.Error(t, err)
}

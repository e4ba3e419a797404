package cron

import (
	"Switchboard/internal/job"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestManager_RegisterJobs(t *testing.T) {
	j := job.NewInboxRefreshJob(nil, 0)

	require.NoError(t, NewCronManager("", j).RegisterJobs())
	require.NoError(t, NewCronManager("@every 30s", j).RegisterJobs())
	require.NoError(t, NewCronManager("*/15 * * * * *", j).RegisterJobs())
	require.Error(t, NewCronManager("not a spec", j).RegisterJobs())
}

package logger

import (
	"bytes"
	"context"
	log "log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRemoteFilter_OnlyTraced(t *testing.T) {
	var local, remote bytes.Buffer
	h := &ContextHandler{NewTeeHandler(
		log.NewJSONHandler(&local, nil),
		&RemoteFilterHandler{next: log.NewJSONHandler(&remote, nil)},
	)}
	l := log.New(h)

	l.InfoContext(context.Background(), "untraced")
	require.Contains(t, local.String(), "untraced")
	require.Empty(t, remote.String())

	l.InfoContext(WithTraceID(context.Background(), "t-1"), "traced")
	require.Contains(t, remote.String(), `"trace_id":"t-1"`)
	require.Contains(t, local.String(), "traced")
}

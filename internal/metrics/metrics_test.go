package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func TestRecorderRegistersCollectors(t *testing.T) {
	r := NewRecorder()

	r.ObserveTick(5 * time.Millisecond)
	r.RecordCommit()
	r.RecordReject("NonceOutOfOrder")
	r.SetDebtQueueDepth("0x01", "USD", 3)

	families, err := r.Registry().Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["xln_runtime_tick_duration_seconds"])
	require.True(t, names["xln_runtime_server_frames_committed_total"])
	require.True(t, names["xln_runtime_inputs_rejected_total"])
	require.True(t, names["xln_entity_debt_queue_depth"])
}

func TestGRPCServerMetricsWireIntoServer(t *testing.T) {
	gm := NewGRPCServerMetrics()

	srv := grpc.NewServer(gm.ServerOptions()...)
	require.NotNil(t, srv)

	gm.InitializeServer(srv)

	rec := NewRecorder()
	gm.Register(rec.Registry())

	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

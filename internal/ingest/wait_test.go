package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jsprague/orchestra/internal/plan"
	streamyerrors "github.com/jsprague/orchestra/pkg/errors"
)

func linkedExecutables() (*plan.Executable, *plan.Executable) {
	producer := &plan.Executable{Hash: "producer-hash", ProducerTag: "raw", BlockName: "ingest"}
	consumer := &plan.Executable{Hash: "consumer-hash", ProducerTag: "clean", BlockName: "transform"}
	pipe := &plan.Pipe{From: producer, To: consumer}
	producer.Outgoing = append(producer.Outgoing, pipe)
	consumer.Incoming = append(consumer.Incoming, pipe)
	consumer.PipesIn = 1
	return producer, consumer
}

func TestWaitForUpstreamReturnsImmediatelyForSource(t *testing.T) {
	t.Parallel()

	store := &Store{RootDir: t.TempDir()}
	source := &plan.Executable{Hash: "h1"}

	data, err := store.WaitForUpstream(context.Background(), source, DefaultWaitOptions())

	require.NoError(t, err)
	require.Empty(t, data)
}

func TestWaitForUpstreamReturnsDataOnceProducerCompletes(t *testing.T) {
	t.Parallel()

	store := &Store{RootDir: t.TempDir()}
	producer, consumer := linkedExecutables()

	require.NoError(t, store.PipeFor(producer).WriteOutput([]byte("42 rows")))

	data, err := store.WaitForUpstream(context.Background(), consumer, DefaultWaitOptions())

	require.NoError(t, err)
	require.Equal(t, []string{"42 rows"}, data)
}

func TestWaitForUpstreamKeepsOneEntryPerProducerEvenWhenIdentical(t *testing.T) {
	t.Parallel()

	store := &Store{RootDir: t.TempDir()}
	producerA := &plan.Executable{Hash: "producer-a", ProducerTag: "raw", BlockName: "ingest"}
	producerB := &plan.Executable{Hash: "producer-b", ProducerTag: "raw", BlockName: "ingest"}
	consumer := &plan.Executable{Hash: "consumer-hash", ProducerTag: "clean", BlockName: "transform"}
	pipeA := &plan.Pipe{From: producerA, To: consumer}
	pipeB := &plan.Pipe{From: producerB, To: consumer}
	consumer.Incoming = append(consumer.Incoming, pipeA, pipeB)
	consumer.PipesIn = 2

	require.NoError(t, store.PipeFor(producerA).WriteOutput([]byte("same")))
	require.NoError(t, store.PipeFor(producerB).WriteOutput([]byte("same")))

	data, err := store.WaitForUpstream(context.Background(), consumer, DefaultWaitOptions())

	require.NoError(t, err)
	require.Len(t, data, 2)
}

func TestWaitForUpstreamTimesOutAfterMaxPolls(t *testing.T) {
	t.Parallel()

	store := &Store{RootDir: t.TempDir()}
	_, consumer := linkedExecutables()

	_, err := store.WaitForUpstream(context.Background(), consumer, WaitOptions{PollInterval: time.Millisecond, MaxPolls: 2})

	require.Error(t, err)
	var timeoutErr *streamyerrors.UpstreamTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.Equal(t, consumer.Hash, timeoutErr.ExecutableHash)
}

func TestWaitForUpstreamRespectsContextCancellation(t *testing.T) {
	t.Parallel()

	store := &Store{RootDir: t.TempDir()}
	_, consumer := linkedExecutables()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.WaitForUpstream(ctx, consumer, WaitOptions{PollInterval: time.Second, MaxPolls: 100})

	require.ErrorIs(t, err, context.Canceled)
}

package events_test

import (
	"testing"

	"github.com/ardanlabs/utxochain/foundation/events"
	"github.com/stretchr/testify/require"
)

func TestEvents(t *testing.T) {
	evts := events.New()

	ch1 := evts.Acquire("one")
	ch2 := evts.Acquire("two")
	require.Equal(t, ch1, evts.Acquire("one"))

	evts.Send("explorer: block")
	require.Equal(t, "explorer: block", <-ch1)
	require.Equal(t, "explorer: block", <-ch2)

	require.NoError(t, evts.Release("one"))
	require.Error(t, evts.Release("one"))

	_, open := <-ch1
	require.False(t, open)

	evts.Shutdown()
	_, open = <-ch2
	require.False(t, open)
}

func TestTopics(t *testing.T) {
	evts := events.New()

	all := evts.Acquire("all")
	chain := evts.Acquire("chain", "chain:", "explorer:")

	evts.Send("worker: mining started")
	evts.Send("chain: AddBlock: blk[1]")

	require.Len(t, all, 2)
	require.Len(t, chain, 1)
	require.Equal(t, "chain: AddBlock: blk[1]", <-chain)
}

func TestSendDoesNotBlock(t *testing.T) {
	evts := events.New()
	ch := evts.Acquire("slow")

	for range 1_000 {
		evts.Send("event")
	}

	require.Len(t, ch, cap(ch))
}

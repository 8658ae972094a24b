package network_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/network"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

const pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

func testBlock(t *testing.T) (database.Block, signature.PublicKey) {
	t.Helper()

	pk, err := crypto.HexToECDSA(pkHexKey)
	require.NoError(t, err)
	pub := signature.ToPublicKey(pk.PublicKey)

	out := database.NewTxOutput(50, pub)
	in, err := database.NewTxInput(out.Hash(), pk)
	require.NoError(t, err)

	trans := []database.Tx{
		database.NewCoinbaseTx(database.NewTxOutput(60, pub)),
		database.NewTx([]database.TxInput{in}, []database.TxOutput{database.NewTxOutput(40, pub)}),
	}

	block, err := database.NewBlock(signature.ZeroHash, uint256.NewInt(1<<60), 7, trans)
	require.NoError(t, err)

	return block, pub
}

func TestSendReceive(t *testing.T) {
	block, pub := testBlock(t)

	messages := []network.Message{
		network.FetchUTXOs(pub),
		network.SubmitTransaction(block.Trans[1]),
		network.NewTransaction(block.Trans[1]),
		network.FetchTemplate(pub),
		network.Template(block),
		network.ValidateTemplate(block),
		network.TemplateValidity(true),
		network.SubmitTemplate(block),
		network.DiscoverNodes(),
		network.NodeList([]string{"localhost:9000", "localhost:9001"}),
		network.AskDifference(12),
		network.Difference(-3),
		network.FetchBlock(4),
		network.NewBlock(block),
	}

	var buf bytes.Buffer
	for _, m := range messages {
		require.NoError(t, network.Send(&buf, m))
	}

	for _, exp := range messages {
		got, err := network.Receive(&buf)
		require.NoError(t, err)
		require.Equal(t, exp.Kind, got.Kind)
		require.Equal(t, exp.String(), got.String())

		if exp.Block != nil {
			require.Equal(t, exp.Block.Hash(), got.Block.Hash())
		}
		if exp.Tx != nil {
			require.Equal(t, exp.Tx.Hash(), got.Tx.Hash())
		}
	}

	_, err := network.Receive(&buf)
	require.ErrorIs(t, err, io.EOF)
}

func TestFraming(t *testing.T) {
	frame, err := network.AskDifference(9).Encode()
	require.NoError(t, err)
	require.Equal(t, uint64(len(frame)-8), binary.BigEndian.Uint64(frame[:8]))

	t.Run("toolarge", func(t *testing.T) {
		var prefix [8]byte
		binary.BigEndian.PutUint64(prefix[:], network.MaxMessageSize+1)

		_, err := network.Receive(bytes.NewReader(prefix[:]))
		require.ErrorIs(t, err, network.ErrTooLarge)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := network.Receive(bytes.NewReader(frame[:len(frame)-1]))
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("garbage", func(t *testing.T) {
		data := []byte{0, 0, 0, 0, 0, 0, 0, 2, 0xff, 0xff}

		_, err := network.Receive(bytes.NewReader(data))
		require.ErrorIs(t, err, network.ErrData)
	})

	t.Run("missingpayload", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, network.Send(&buf, network.Message{Kind: network.KindNewBlock}))

		_, err := network.Receive(&buf)
		require.ErrorIs(t, err, network.ErrMessage)
	})
}

func TestReceiveContextCancel(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())

	errs := make(chan error, 1)
	go func() {
		_, err := network.ReceiveContext(ctx, server)
		errs <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errs:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("receive did not return after cancel")
	}
}

func TestServeRequest(t *testing.T) {
	block, pub := testBlock(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := func(ctx context.Context, m network.Message) (*network.Message, error) {
		switch m.Kind {
		case network.KindFetchBlock:
			resp := network.NewBlock(block)
			return &resp, nil
		case network.KindNewTransaction:
			return nil, nil
		default:
			return nil, errors.New("unsupported")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- network.Serve(ctx, ln, handler, nil)
	}()

	client := network.NewClient(5 * time.Second)
	host := ln.Addr().String()

	resp, err := client.Request(context.Background(), host, network.FetchBlock(0))
	require.NoError(t, err)
	require.Equal(t, network.KindNewBlock, resp.Kind)
	require.Equal(t, block.Hash(), resp.Block.Hash())

	_, err = client.Request(context.Background(), host, network.FetchUTXOs(pub))
	require.ErrorIs(t, err, network.ErrRemote)

	require.NoError(t, client.Notify(context.Background(), host, network.NewTransaction(block.Trans[1])))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

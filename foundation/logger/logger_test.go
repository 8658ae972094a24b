package logger_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/utxochain/foundation/logger"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.log")

	log, err := logger.New("NODE", path)
	require.NoError(t, err)

	log.Infow("startup", "status", "started")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	require.Equal(t, "NODE", entry["service"])
	require.Equal(t, "startup", entry["msg"])
	require.Equal(t, "started", entry["status"])
}

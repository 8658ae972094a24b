package errs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ardanlabs/utxochain/business/web/errs"
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/stretchr/testify/require"
)

func TestFromLedger(t *testing.T) {
	tt := []struct {
		name   string
		err    error
		status int
	}{
		{"notfound", fmt.Errorf("%w: height 9", database.ErrNotFound), http.StatusNotFound},
		{"tx", fmt.Errorf("%w: no inputs", database.ErrInvalidTransaction), http.StatusBadRequest},
		{"input", fmt.Errorf("%w: bad signature", database.ErrInvalidTransactionInput), http.StatusBadRequest},
		{"block", fmt.Errorf("%w: stale", database.ErrInvalidBlock), http.StatusBadRequest},
	}

	for _, tst := range tt {
		t.Run(tst.name, func(t *testing.T) {
			err := errs.FromLedger(tst.err)
			require.True(t, errs.IsTrusted(err))
			require.Equal(t, tst.status, errs.GetTrusted(err).Status)
			require.ErrorIs(t, err, tst.err)
		})
	}

	plain := errors.New("disk on fire")
	require.Same(t, plain, errs.FromLedger(plain))
	require.Nil(t, errs.GetTrusted(plain))
}

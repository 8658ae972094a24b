package validate_test

import (
	"errors"
	"testing"

	"github.com/ardanlabs/utxochain/foundation/validate"
	"github.com/stretchr/testify/require"
)

type request struct {
	PublicKey string `json:"public_key" validate:"required,hexadecimal"`
	Amount    uint64 `json:"amount" validate:"gt=0"`
}

func TestCheck(t *testing.T) {
	err := validate.Check(request{PublicKey: "0xabc", Amount: 1})
	require.NoError(t, err)

	err = validate.Check(request{})
	require.True(t, validate.IsFieldErrors(err))

	fields := validate.GetFieldErrors(err).Fields()
	require.Len(t, fields, 2)
	require.Contains(t, fields, "public_key")
	require.Contains(t, fields, "amount")
	require.Contains(t, fields["public_key"], "required")

	require.False(t, validate.IsFieldErrors(errors.New("plain")))
	require.Nil(t, validate.GetFieldErrors(errors.New("plain")))
}

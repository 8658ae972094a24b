package storage_test

import (
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/storage"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage/cache"
)

const (
	success = "✓"
	failed  = "✗"
)

func Test_Open(t *testing.T) {
	t.Log("Given the need to open storage by kind.")
	{
		t.Logf("\tTest 0:\tWhen opening every supported kind.")
		{
			for _, kind := range []string{storage.KindMemory, storage.KindDisk, storage.KindBadger} {
				store, err := storage.Open(kind, t.TempDir(), 0)
				if err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould be able to open %s storage: %v", failed, kind, err)
				}
				t.Logf("\t%s\tTest 0:\tShould be able to open %s storage.", success, kind)

				if err := store.Close(); err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould be able to close %s storage: %v", failed, kind, err)
				}
			}
		}

		t.Logf("\tTest 1:\tWhen asking for a cache.")
		{
			store, err := storage.Open(storage.KindMemory, "", 8)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to open cached storage: %v", failed, err)
			}
			defer store.Close()

			if _, ok := store.(*cache.Cache); !ok {
				t.Fatalf("\t%s\tTest 1:\tShould wrap the storage with a cache: %T", failed, store)
			}
			t.Logf("\t%s\tTest 1:\tShould wrap the storage with a cache.", success)
		}

		t.Logf("\tTest 2:\tWhen asking for an unknown kind.")
		{
			if _, err := storage.Open("tape", "", 0); err == nil {
				t.Fatalf("\t%s\tTest 2:\tShould reject the unknown kind.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould reject the unknown kind.", success)
		}
	}
}

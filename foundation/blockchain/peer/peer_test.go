package peer_test

import (
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/peer"
)

func Test_CRUD(t *testing.T) {
	type table struct {
		name  string
		peers []peer.Peer
	}

	tt := []table{
		{
			name:  "basic",
			peers: []peer.Peer{{Host: "host1"}, {Host: "host2"}, {Host: "host3"}},
		},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			ps := peer.NewPeerSet()

			for _, peer := range tst.peers {
				if !ps.Add(peer) {
					t.Fatalf("Test %s:\tShould be able to add peer %s.", tst.name, peer)
				}
			}

			if ps.Add(tst.peers[0]) {
				t.Fatalf("Test %s:\tShould not add the same peer twice.", tst.name)
			}

			peers := ps.Copy("")
			if len(peers) != len(tst.peers) {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers))
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}

			hosts := ps.Hosts("host2")
			if len(hosts) != len(tst.peers)-1 || hosts[0] != "host1" || hosts[1] != "host3" {
				t.Logf("Test %s:\tgot: %v", tst.name, hosts)
				t.Fatalf("Test %s:\tShould get back the sorted hosts without host2.", tst.name)
			}

			ps.Remove(tst.peers[0])
			if ps.Len() != len(tst.peers)-1 {
				t.Logf("Test %s:\tgot: %d", tst.name, ps.Len())
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers)-1)
				t.Fatalf("Test %s:\tShould have removed the peer.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_NewPeerSet(t *testing.T) {
	ps := peer.NewPeerSet("host1", "", "host1", "host2")

	if ps.Len() != 2 {
		t.Fatalf("Should ignore empty and duplicate hosts, got %d peers.", ps.Len())
	}
}

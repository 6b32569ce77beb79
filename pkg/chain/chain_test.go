package chain

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/umbra-chain/umbra/pkg/storage"
	"github.com/umbra-chain/umbra/pkg/util"
)

func testChain(t *testing.T) *Chain {
	t.Helper()
	store, err := storage.OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	clock := util.FixedClock{T: time.Unix(1_700_000_000, 0)}
	return New(store, common.HexToAddress("0x00000000000000000000000000000000000000ff"), clock, nil)
}

func TestExecuteCommitsOnSuccess(t *testing.T) {
	c := testChain(t)

	events, err := c.Execute(nil, func(rt Runtime) error {
		rt.Store().Set([]byte("k"), []byte("v"))
		rt.Notify(EventOrderCreated, common.Address{}, uint64(1))
		return nil
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(events) != 1 || events[0].Kind != EventOrderCreated {
		t.Fatalf("events = %+v", events)
	}

	if err := c.View(func(rt Runtime) error {
		if !rt.Store().Has([]byte("k")) {
			t.Fatal("committed write not visible")
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestExecuteDiscardsOnError(t *testing.T) {
	c := testChain(t)
	boom := errors.New("boom")

	events, err := c.Execute(nil, func(rt Runtime) error {
		rt.Store().Set([]byte("k"), []byte("v"))
		rt.NextUID()
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if events != nil {
		t.Fatalf("events returned from aborted call: %+v", events)
	}

	// Neither the write nor the uid counter bump survived.
	c.View(func(rt Runtime) error {
		if rt.Store().Has([]byte("k")) {
			t.Fatal("aborted write leaked")
		}
		return nil
	})

	var uid uint64
	c.Execute(nil, func(rt Runtime) error {
		uid = rt.NextUID()
		return nil
	})
	if uid != 1 {
		t.Fatalf("first committed uid = %d, want 1 (aborted call burned one)", uid)
	}
}

func TestNextUIDStrictlyIncreasing(t *testing.T) {
	c := testChain(t)

	var got []uint64
	for i := 0; i < 3; i++ {
		c.Execute(nil, func(rt Runtime) error {
			got = append(got, rt.NextUID(), rt.NextUID())
			return nil
		})
	}
	for i := 1; i < len(got); i++ {
		if got[i] != got[i-1]+1 {
			t.Fatalf("uids not consecutive: %v", got)
		}
	}
	if got[0] != 1 {
		t.Fatalf("first uid = %d, want 1", got[0])
	}
}

func TestConcurrentExecuteIssuesUniqueUIDs(t *testing.T) {
	c := testChain(t)
	const calls = 256

	uids := make(chan uint64, calls)
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Execute(nil, func(rt Runtime) error {
				uid := rt.NextUID()
				// Hold the call open the way a matching scan would, so
				// overlapping calls actually contend.
				time.Sleep(time.Millisecond)
				uids <- uid
				return nil
			})
		}()
	}
	wg.Wait()
	close(uids)

	seen := make(map[uint64]bool, calls)
	for uid := range uids {
		if seen[uid] {
			t.Fatalf("uid %d issued more than once", uid)
		}
		seen[uid] = true
	}
	if len(seen) != calls {
		t.Fatalf("distinct uids = %d, want %d", len(seen), calls)
	}

	var next uint64
	c.Execute(nil, func(rt Runtime) error {
		next = rt.NextUID()
		return nil
	})
	if next != calls+1 {
		t.Fatalf("counter after %d calls = %d, want %d", calls, next, calls+1)
	}
}

func TestIsWitness(t *testing.T) {
	c := testChain(t)
	alice := common.HexToAddress("0x01")
	bob := common.HexToAddress("0x02")

	c.Execute([]common.Address{alice}, func(rt Runtime) error {
		if !rt.IsWitness(alice) {
			t.Fatal("signer not a witness")
		}
		if rt.IsWitness(bob) {
			t.Fatal("non-signer is a witness")
		}
		return nil
	})
}

func TestViewNeverCommits(t *testing.T) {
	c := testChain(t)
	c.View(func(rt Runtime) error {
		rt.Store().Set([]byte("k"), []byte("v"))
		return nil
	})
	c.View(func(rt Runtime) error {
		if rt.Store().Has([]byte("k")) {
			t.Fatal("view write committed")
		}
		return nil
	})
}

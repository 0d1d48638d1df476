package solicitud

import (
	"hash/fnv"
	"sync"

	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
)

// Transitions for one solicitud must serialize: the second caller has to see
// the first caller's committed state before its own guard check runs. A
// sharded mutex keyed by solicitud id gives that without a global lock;
// distinct requests that happen to share a shard only pay a little contention,
// never a correctness cost.
const numLockShards = 128

type keyedLocks struct {
	shards [numLockShards]sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{}
}

// acquire locks the shard for id and returns the unlock function.
func (l *keyedLocks) acquire(id domain.SolicitudID) func() {
	shard := &l.shards[hashID(id.String())%numLockShards]
	shard.Lock()
	return shard.Unlock
}

// hashID uses FNV-1a for even shard distribution.
func hashID(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

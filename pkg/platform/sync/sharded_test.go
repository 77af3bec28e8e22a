package sync

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShardedMutexSameKeySerializes(t *testing.T) {
	m := NewShardedMutex()
	counter := 0
	var wg sync.WaitGroup

	for range 100 {
		wg.Go(func() {
			m.Lock("contact@acme.test")
			defer m.Unlock("contact@acme.test")
			counter++
		})
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestShardedMutexEmptyKey(t *testing.T) {
	m := NewShardedMutex()
	m.Lock("")
	m.Unlock("")
	assert.Equal(t, 0, shardFor(""))
}

func TestShardDistribution(t *testing.T) {
	shards := make(map[int]bool)
	for _, key := range []string{"a@firm.test", "b@firm.test", "ops@acme.test", "legal@globex.test", "x@y.test", "admin@firmgate.test"} {
		shards[shardFor(key)] = true
	}
	assert.GreaterOrEqual(t, len(shards), 3)
	assert.Equal(t, shardFor("ops@acme.test"), shardFor("ops@acme.test"))
}

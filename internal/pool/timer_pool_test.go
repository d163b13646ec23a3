package pool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerPool_GetPut(t *testing.T) {
	require := require.New(t)

	timer1 := GetTimer(10 * time.Millisecond)
	require.NotNil(timer1)
	<-timer1.C
	PutTimer(timer1)

	// a reused timer must be re-armed for the new duration
	begin := time.Now()
	timer2 := GetTimer(50 * time.Millisecond)
	require.NotNil(timer2)

	select {
	case fired := <-timer2.C:
		require.GreaterOrEqual(fired.Sub(begin), 40*time.Millisecond)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("reused timer never fired")
	}
	PutTimer(timer2)
}

func TestTimerPool_PutActiveTimer(t *testing.T) {
	require := require.New(t)

	// returning a still-armed timer must not leak a stale tick to the next user
	timer1 := GetTimer(20 * time.Millisecond)
	PutTimer(timer1)

	timer2 := GetTimer(80 * time.Millisecond)
	require.NotNil(timer2)

	select {
	case <-timer2.C:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timer never fired")
	}

	// the channel must be empty again after the single tick
	select {
	case <-timer2.C:
		t.Fatal("unexpected stale tick")
	default:
	}
	PutTimer(timer2)
}

func TestTimerPool_Concurrency(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			timer := GetTimer(5 * time.Millisecond)
			defer PutTimer(timer)
			<-timer.C
		}()
	}
	wg.Wait()
}

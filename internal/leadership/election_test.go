package leadership

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func TestNewElectionFailsWithoutRedis(t *testing.T) {
	_, err := NewElection(ElectionConfig{RedisAddr: "127.0.0.1:1"}, zerolog.Nop())
	if err == nil {
		t.Fatal("expected an error for an unreachable Redis")
	}
}

func TestNewElectionRejectsRenewalLongerThanLease(t *testing.T) {
	_, err := NewElection(ElectionConfig{
		RedisAddr:       "127.0.0.1:1",
		LeaseDuration:   time.Second,
		RenewalInterval: 2 * time.Second,
	}, zerolog.Nop())
	if err == nil {
		t.Fatal("expected invalid timings to be rejected")
	}
}

func TestSetLeaderNotifiesOnChangeOnly(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	e := newElection(client, ElectionConfig{InstanceID: "a"}, zerolog.Nop())

	e.setLeader(true)
	e.setLeader(true)
	if !e.IsLeader() {
		t.Fatal("expected leader")
	}
	select {
	case v := <-e.LeaderCh():
		if !v {
			t.Fatal("expected acquired notification")
		}
	default:
		t.Fatal("expected a notification")
	}
	select {
	case v := <-e.LeaderCh():
		t.Fatalf("unexpected second notification %v", v)
	default:
	}

	e.setLeader(false)
	if e.IsLeader() {
		t.Fatal("expected follower")
	}
	if v := <-e.LeaderCh(); v {
		t.Fatal("expected lost notification")
	}
}

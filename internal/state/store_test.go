package state

import (
	"errors"
	"testing"
	"time"

	"github.com/embermud/ember/internal/render"
)

func TestStore_ApplyAndSnapshotClone(t *testing.T) {
	var s Store

	before := time.Now()
	s.Apply([]render.StatusUpdate{
		{Kind: render.StatusVital, Key: "health", Percent: 80},
		{Kind: render.StatusVital, Key: "mana", Percent: 40},
		{Kind: render.StatusLeftHand, Value: "a steel shield"},
		{Kind: render.StatusRoomName, Value: "Town Square"},
	})

	snap := s.Snapshot()
	if snap.Vitals["health"] != 80 || snap.Vitals["mana"] != 40 {
		t.Fatalf("vitals = %v, want health=80 mana=40", snap.Vitals)
	}
	if snap.LeftHand != "a steel shield" {
		t.Fatalf("left hand = %q", snap.LeftHand)
	}
	if snap.RoomName != "Town Square" {
		t.Fatalf("room = %q", snap.RoomName)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}

	// Returned snapshot must be independent of the stored one.
	snap.Vitals["health"] = 1
	if s.Snapshot().Vitals["health"] != 80 {
		t.Fatal("Snapshot should clone vitals map")
	}
}

func TestStore_ApplyEmptyIsNoop(t *testing.T) {
	var s Store
	s.Apply(nil)
	if !s.Snapshot().LastUpdated.IsZero() {
		t.Fatal("empty Apply should not touch the snapshot")
	}
}

func TestStore_PartialUpdatesKeepRest(t *testing.T) {
	var s Store

	s.Apply([]render.StatusUpdate{
		{Kind: render.StatusVital, Key: "health", Percent: 100},
		{Kind: render.StatusRightHand, Value: "a longsword"},
	})
	s.Apply([]render.StatusUpdate{
		{Kind: render.StatusVital, Key: "health", Percent: 55},
	})

	snap := s.Snapshot()
	if snap.Vitals["health"] != 55 {
		t.Fatalf("health = %d, want 55", snap.Vitals["health"])
	}
	if snap.RightHand != "a longsword" {
		t.Fatalf("right hand = %q, want unchanged", snap.RightHand)
	}
}

func TestStatus_Roundtime(t *testing.T) {
	now := time.Now()
	var s Store

	s.Apply([]render.StatusUpdate{
		{Kind: render.StatusRoundtime, Until: now.Add(5 * time.Second)},
	})
	snap := s.Snapshot()
	if !snap.InRoundtime(now) {
		t.Fatal("InRoundtime = false during roundtime")
	}
	left := snap.RoundtimeLeft(now)
	if left <= 4*time.Second || left > 5*time.Second {
		t.Fatalf("RoundtimeLeft = %v, want ~5s", left)
	}
	if snap.InRoundtime(now.Add(6 * time.Second)) {
		t.Fatal("InRoundtime = true after expiry")
	}
	if got := snap.RoundtimeLeft(now.Add(6 * time.Second)); got != 0 {
		t.Fatalf("RoundtimeLeft after expiry = %v, want 0", got)
	}

	var empty Status
	if empty.InRoundtime(now) {
		t.Fatal("zero status reports roundtime")
	}
}

func TestStore_SetConnected(t *testing.T) {
	var s Store
	if s.Snapshot().Connected {
		t.Fatal("new store reports connected")
	}
	s.SetConnected(true)
	if !s.Snapshot().Connected {
		t.Fatal("SetConnected(true) not visible")
	}
	s.SetConnected(false)
	if s.Snapshot().Connected {
		t.Fatal("SetConnected(false) not visible")
	}
}

func TestStore_SetError(t *testing.T) {
	var s Store
	s.SetError(errors.New("write tcp: broken pipe"))
	if got := s.Snapshot().LastError; got != "write tcp: broken pipe" {
		t.Fatalf("LastError = %q", got)
	}
	s.SetError(nil)
	if got := s.Snapshot().LastError; got != "" {
		t.Fatalf("LastError after clear = %q", got)
	}
}

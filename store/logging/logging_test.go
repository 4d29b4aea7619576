package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gitblobsdb/gitblobs"
	"github.com/gitblobsdb/gitblobs/store/lru"
	"github.com/gitblobsdb/gitblobs/store/mem"
	"github.com/gitblobsdb/gitblobs/testutil"
)

func TestStore(t *testing.T) {
	testutil.All(context.Background(), t, func() gitblobs.ExtStore {
		return New(mem.New(), zap.NewNop().Sugar()).(gitblobs.ExtStore)
	})
}

func TestCapability(t *testing.T) {
	if _, ok := New(mem.New(), nil).(*ExtStore); !ok {
		t.Error("wrapper around mem store is not extended")
	}
	l, err := lru.New(mem.New(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := New(l, nil).(gitblobs.ExtStore); ok {
		t.Error("wrapper around lru store is extended")
	}
}

func TestLogs(t *testing.T) {
	var (
		ctx        = context.Background()
		core, logs = observer.New(zapcore.DebugLevel)
		s          = New(mem.New(), zap.New(core).Sugar())
		blob       = gitblobs.NewBlob([]byte("logged"))
	)
	if err := s.PutObject(ctx, blob); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetObject(ctx, gitblobs.NewBlob(nil).Hash); err == nil {
		t.Fatal("got no error for missing object")
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}
	if entries[0].Message != "PutObject" {
		t.Errorf("got message %q, want PutObject", entries[0].Message)
	}
	if got := entries[1].ContextMap()["found"]; got != false {
		t.Errorf("got found=%v, want false", got)
	}
}

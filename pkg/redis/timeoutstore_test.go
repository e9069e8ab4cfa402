package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"

	"github.com/soapboxsocial/fanout/pkg/redis"
)

func TestTimeoutStore_Acquire(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer mr.Close()

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	ts := redis.NewTimeoutStore(rdb)
	ctx := context.Background()

	ok, err := ts.Acquire(ctx, "sweep", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if !ok {
		t.Fatal("expected to acquire")
	}

	ok, err = ts.Acquire(ctx, "sweep", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if ok {
		t.Fatal("acquired twice")
	}

	err = ts.Release(ctx, "sweep")
	if err != nil {
		t.Fatal(err)
	}

	ok, err = ts.Acquire(ctx, "sweep", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if !ok {
		t.Fatal("expected to acquire after release")
	}
}

package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"lifeplan/internal/config"
	"lifeplan/internal/domain/models"
	"lifeplan/internal/lock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenStorage_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{DatabaseDriver: config.DriverSQLite, SQLitePath: ":memory:"}

	st, err := OpenStorage(ctx, cfg, true, discardLogger())
	if err != nil {
		t.Fatalf("OpenStorage failed: %v", err)
	}
	defer st.Close()

	if err := st.Ping(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}

	h := &models.Household{Name: "Home", AdminUserID: "alice"}
	err = st.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		return st.Households.Create(ctx, h)
	})
	if err != nil {
		t.Fatalf("create household failed: %v", err)
	}
	if _, err := st.Households.GetByID(ctx, h.ID); err != nil {
		t.Errorf("household not readable: %v", err)
	}
}

func TestOpenStorage_UnknownDriver(t *testing.T) {
	_, err := OpenStorage(context.Background(), &config.Config{DatabaseDriver: "mysql"}, false, discardLogger())
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestNewLocker(t *testing.T) {
	t.Run("local without redis", func(t *testing.T) {
		l, err := NewLocker(&config.Config{LockTTL: time.Second}, discardLogger())
		if err != nil {
			t.Fatalf("NewLocker failed: %v", err)
		}
		if _, ok := l.Locker.(*lock.LocalLocker); !ok {
			t.Errorf("expected local locker, got %T", l.Locker)
		}
		if l.Ping != nil {
			t.Error("local locker has no health probe")
		}
		if err := l.Close(); err != nil {
			t.Errorf("close failed: %v", err)
		}
	})

	t.Run("redis when configured", func(t *testing.T) {
		mr := miniredis.RunT(t)
		l, err := NewLocker(&config.Config{RedisURL: "redis://" + mr.Addr(), LockTTL: time.Second}, discardLogger())
		if err != nil {
			t.Fatalf("NewLocker failed: %v", err)
		}
		defer l.Close()

		if _, ok := l.Locker.(*lock.RedisLocker); !ok {
			t.Fatalf("expected redis locker, got %T", l.Locker)
		}
		if err := l.Ping(context.Background()); err != nil {
			t.Errorf("ping failed: %v", err)
		}

		release, err := l.Acquire(context.Background(), lock.LineageKey("l1"))
		if err != nil {
			t.Fatalf("acquire failed: %v", err)
		}
		if err := release(context.Background()); err != nil {
			t.Errorf("release failed: %v", err)
		}
	})
}

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func BenchmarkMemoryCache_Get_Hit(b *testing.B) {
	c := NewMemoryCache()
	ctx := context.Background()
	_ = c.Set(ctx, "key", []byte("value"), time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Get(ctx, "key")
	}
}

func BenchmarkMemoryCache_Get_Miss(b *testing.B) {
	c := NewMemoryCache()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Get(ctx, "missing")
	}
}

func BenchmarkMemoryCache_Set(b *testing.B) {
	c := NewMemoryCache()
	ctx := context.Background()
	value := []byte("test value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Set(ctx, fmt.Sprintf("key-%d", i), value, time.Hour)
	}
}

func BenchmarkMemoryCache_Parallel(b *testing.B) {
	c := NewMemoryCache()
	ctx := context.Background()
	_ = c.Set(ctx, "key", []byte("value"), time.Hour)

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = c.Get(ctx, "key")
		}
	})
}

func BenchmarkRequestKeyer_Map(b *testing.B) {
	keyer := NewRequestKeyer()
	body := map[string]any{
		"station": "north-7",
		"sensors": []any{"temp", "humidity", "wind"},
		"window":  map[string]any{"from": 0, "to": 3600},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = keyer.Key("POST", "/telemetry", body)
	}
}

package health

import (
	"context"
	"fmt"
	"testing"
)

func BenchmarkAggregator_CheckAll(b *testing.B) {
	for _, n := range []int{1, 10, 50} {
		b.Run(fmt.Sprintf("checkers=%d", n), func(b *testing.B) {
			agg := NewAggregator()
			for i := 0; i < n; i++ {
				name := fmt.Sprintf("c%d", i)
				agg.Register(name, static(name, StatusHealthy))
			}
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				agg.CheckAll(ctx)
			}
		})
	}
}

func BenchmarkOverallStatus(b *testing.B) {
	results := map[string]Result{
		"a": {Status: StatusHealthy},
		"b": {Status: StatusDegraded},
		"c": {Status: StatusHealthy},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = OverallStatus(results)
	}
}

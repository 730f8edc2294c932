package observe_test

import (
	"context"
	"fmt"
	"io"

	"github.com/Mlaiel/Railia-sub006/observe"
)

func ExampleInstrumentationFromObserver() {
	ctx := context.Background()
	obs, err := observe.NewObserver(ctx, observe.Config{
		ServiceName: "railia",
		Version:     "1.0.0",
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   "info",
			Format:  "json",
			Output:  io.Discard,
		},
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer func() { _ = obs.Shutdown(ctx) }()

	inst, err := observe.InstrumentationFromObserver(obs)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	meta := observe.Meta{Component: "weather", Verb: "GET"}
	fmt.Println(meta.SpanName())
	inst.Logger.Info(ctx, "ready", meta.Fields()...)
	// Output:
	// resilience.execute.weather
}

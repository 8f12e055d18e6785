// Command flowd hosts a dataflow graph behind an HTTP process boundary:
// health/readiness/metrics/info endpoints, an SSE fan-out of pipeline
// output, and (when configured) Kafka and storage collaborators, all
// wired through the teacher's bootstrap.App[C] lifecycle.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/nordwell-io/flowkit/bootstrap"
	"github.com/nordwell-io/flowkit/component"
	"github.com/nordwell-io/flowkit/config"
	"github.com/nordwell-io/flowkit/flow"
	"github.com/nordwell-io/flowkit/flowkafka"
	"github.com/nordwell-io/flowkit/flowstorage"
	"github.com/nordwell-io/flowkit/flowsse"
	"github.com/nordwell-io/flowkit/kafka/consumer"
	"github.com/nordwell-io/flowkit/kafka/producer"
	"github.com/nordwell-io/flowkit/server"
	"github.com/nordwell-io/flowkit/sse"
	"github.com/nordwell-io/flowkit/storage"

	_ "github.com/nordwell-io/flowkit/storage/local"
	_ "github.com/nordwell-io/flowkit/storage/s3"
)

func main() {
	var cfg config.FlowConfig
	if err := config.LoadConfig("flowd", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "flowd: config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Name == "" {
		cfg.Name = "flowd"
	}

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flowd: %v\n", err)
		os.Exit(1)
	}

	loop := flow.NewLoop(app.Logger)
	if err := app.RegisterComponent(loop); err != nil {
		fmt.Fprintf(os.Stderr, "flowd: %v\n", err)
		os.Exit(1)
	}

	hub := sse.NewHub()

	httpServer := server.New(&cfg.Server, app.Logger)
	httpServer.ApplyDefaults(cfg.Name, app.Components.HealthAll)
	httpServer.GinEngine().GET("/events", func(c *gin.Context) {
		sse.ServeSSE(hub, c.Writer, c.Request, c.Query("client_id"))
	})
	if err := app.RegisterComponent(server.NewComponent(httpServer)); err != nil {
		fmt.Fprintf(os.Stderr, "flowd: %v\n", err)
		os.Exit(1)
	}

	demo, err := buildDemoPipeline(app, loop, hub)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flowd: %v\n", err)
		os.Exit(1)
	}
	if err := app.RegisterComponent(demo); err != nil {
		fmt.Fprintf(os.Stderr, "flowd: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "flowd: %v\n", err)
		os.Exit(1)
	}
}

// flowsseComponentName names the demo pipeline in the component registry
// and startup summary.
const flowsseComponentName = "flow.demo-pipeline"

// buildDemoPipeline wires source -> timed_window (its interval ten times
// flow.rate_limit_default), fanning the
// closed windows out to an SSE sink always, plus a Kafka sink and a
// storage sink when those collaborators are configured, so a freshly
// started flowd demonstrates every §11 collaborator its config enables
// without requiring an external caller to build a graph first. Real
// deployments replace the synthetic flow.Source with a flowkafka.Source
// or flowsse.Source feeding the same downstream chain.
func buildDemoPipeline(app *bootstrap.App[*config.FlowConfig], loop *flow.Loop, hub *sse.Hub) (component.Component, error) {
	cfg := app.Cfg
	src := flow.NewSource("flowd.demo.source", loop)
	windowed, err := flow.NewTimedWindow(src, cfg.Flow.RateLimitDefault*10)
	if err != nil {
		return nil, err
	}

	p := &pipelineComponent{source: src, nodes: []flow.Node{windowed}}

	sseSink, err := flowsse.NewSink(windowed, hub, flowsse.Pattern)
	if err != nil {
		return nil, err
	}
	p.nodes = append(p.nodes, sseSink)

	if cfg.Kafka.Enabled {
		prod, err := producer.NewProducer(cfg.Kafka, app.Logger)
		if err != nil {
			return nil, fmt.Errorf("flowd: kafka producer: %w", err)
		}
		pub := producer.NewPublisher(prod, app.Logger)
		kafkaSink, err := flowkafka.NewSink(windowed, pub, func(_ context.Context, value any) (string, string, any, error) {
			return "flowd.windows", "", value, nil
		})
		if err != nil {
			return nil, fmt.Errorf("flowd: kafka sink: %w", err)
		}
		p.nodes = append(p.nodes, kafkaSink)
		p.closers = append(p.closers, prod.Close)

		if len(cfg.Kafka.Topics) > 0 {
			cons, err := consumer.NewConsumer(cfg.Kafka, cfg.Kafka.Topics[0], app.Logger)
			if err != nil {
				return nil, fmt.Errorf("flowd: kafka consumer: %w", err)
			}
			kafkaSrc := flowkafka.NewSource(cons, loop, nil, app.Logger)
			if err := kafkaSrc.Connect(windowed); err != nil {
				return nil, fmt.Errorf("flowd: kafka source connect: %w", err)
			}
			loop.Spawn(func(stop <-chan struct{}) {
				ctx, cancel := context.WithCancel(context.Background())
				go func() { <-stop; cancel() }()
				if err := kafkaSrc.Consume(ctx); err != nil && ctx.Err() == nil {
					app.Logger.Error("flowd: kafka consume loop exited", map[string]interface{}{"error": err.Error()})
				}
			})
			p.closers = append(p.closers, kafkaSrc.Close)
		}
	}

	if cfg.Storage.Enabled {
		store, err := storage.New(cfg.Storage, nil, app.Logger)
		if err != nil {
			return nil, fmt.Errorf("flowd: storage: %w", err)
		}
		storageSink, err := flowstorage.NewSink(windowed, store, func(seq int64) string {
			return fmt.Sprintf("windows/%d.jsonl", seq)
		})
		if err != nil {
			return nil, fmt.Errorf("flowd: storage sink: %w", err)
		}
		p.nodes = append(p.nodes, storageSink)
	}

	return p, nil
}

// pipelineComponent adapts a flow graph's root Source and every operator
// it owns into component.Component so teardown (closing operators with
// timers, Kafka consumers/producers) participates in the same
// initialize/stop phases as the HTTP server and the loop itself.
type pipelineComponent struct {
	source  flow.Node
	nodes   []flow.Node
	closers []func() error
}

func (p *pipelineComponent) Name() string { return flowsseComponentName }

func (p *pipelineComponent) Start(context.Context) error { return nil }

func (p *pipelineComponent) Stop(context.Context) error {
	var firstErr error
	for _, n := range p.nodes {
		if err := n.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, c := range p.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *pipelineComponent) Health(context.Context) component.ComponentHealth {
	return component.ComponentHealth{Name: flowsseComponentName, Status: component.StatusHealthy}
}

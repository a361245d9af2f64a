package nats

import (
	"context"

	natsgo "github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"docintake/internal/config"
	"docintake/internal/extraction"
)

type Publisher = publisher

func NewTestBus(pub Publisher, cfg config.NATSConfig, executor *extraction.Executor) *Bus {
	return newBus(pub, cfg, executor, zap.NewNop())
}

func (b *Bus) HandleMessage(ctx context.Context, data []byte, handle RunHandler) {
	b.handleMessage(ctx, data, handle)
}

// StartConsumers runs n consumers over msgs and returns their wait func.
func (b *Bus) StartConsumers(ctx context.Context, msgs <-chan *natsgo.Msg, n int, handle RunHandler) func() {
	b.concurrency = n
	return b.startConsumers(ctx, msgs, handle)
}

var ClassifyError = classifyError

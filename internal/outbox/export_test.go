package outbox

import "context"

func (p *Publisher) Drain(ctx context.Context) error { return p.drain(ctx) }

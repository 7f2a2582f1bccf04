package bot

import (
	"context"
)

func (b *Bot) withRecovery(ctx context.Context, handler func()) {
	defer func() {
		if r := recover(); r != nil {
			if b.metrics != nil {
				b.metrics.ErrorsTotal.Inc()
			}
			b.log(ctx).Error().Interface("panic", r).Msg("Recovered from panic in update handler")
		}
	}()
	handler()
}

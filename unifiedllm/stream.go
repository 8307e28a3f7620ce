package unifiedllm

import (
	"context"
	"strings"
)

// ChunkFunc receives streamed text. done is true exactly once, on the final
// call, which carries an empty delta.
type ChunkFunc func(delta string, done bool)

// Aggregate drains events into a single text, forwarding every text delta to
// onChunk in arrival order. The context is checked before each event; on
// cancellation or a stream error the partial text is discarded and a
// *ClassifiedError is returned without signalling done.
func Aggregate(ctx context.Context, events <-chan StreamEvent, onChunk ChunkFunc) (string, error) {
	var buf strings.Builder
	for {
		if err := ctx.Err(); err != nil {
			return "", Classify(err)
		}

		var (
			event StreamEvent
			ok    bool
		)
		select {
		case <-ctx.Done():
			return "", Classify(ctx.Err())
		case event, ok = <-events:
		}
		if !ok {
			return finish(&buf, onChunk), nil
		}

		switch event.Type {
		case TextDelta:
			buf.WriteString(event.Delta)
			if onChunk != nil {
				onChunk(event.Delta, false)
			}
		case StreamError:
			if event.Error == nil {
				return "", NewError(KindAPI, msgAPI, nil)
			}
			return "", Classify(event.Error)
		case StreamFinish:
			return finish(&buf, onChunk), nil
		}
	}
}

func finish(buf *strings.Builder, onChunk ChunkFunc) string {
	if onChunk != nil {
		onChunk("", true)
	}
	return buf.String()
}

// emit sends event on ch unless ctx is done first.
func emit(ctx context.Context, ch chan<- StreamEvent, event StreamEvent) bool {
	select {
	case ch <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

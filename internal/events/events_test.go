package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanoutDeliversToEveryPublisher(t *testing.T) {
	ctx := context.Background()
	first, last := NewRecorder(), NewRecorder()
	broken := &failingSink{}

	var seen []Type
	fn := PublisherFunc(func(_ context.Context, e Event) error {
		seen = append(seen, e.Type)
		return nil
	})

	err := Fanout{first, broken, fn, last}.Publish(ctx, New(ctx, TypeReportSubmitted, "ps-1", nil))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Len(t, first.Events(), 1)
	assert.Len(t, last.Events(), 1)
	assert.Equal(t, []Type{TypeReportSubmitted}, seen)
	assert.Equal(t, int32(1), broken.calls.Load())
}

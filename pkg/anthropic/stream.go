package anthropic

import (
	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/rotisserie/eris"
)

// sdkMessageStream wraps the SDK's SSE stream, accumulating the message as
// events arrive.
type sdkMessageStream struct {
	stream *ssestream.Stream[sdk.MessageStreamEventUnion]
	acc    sdk.Message
	text   string
	err    error
}

func (s *sdkMessageStream) Next() bool {
	if s.err != nil {
		return false
	}
	for s.stream.Next() {
		event := s.stream.Current()
		if err := s.acc.Accumulate(event); err != nil {
			s.err = eris.Wrap(err, "anthropic: accumulate stream event")
			return false
		}
		delta, ok := event.AsAny().(sdk.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		if td, ok := delta.Delta.AsAny().(sdk.TextDelta); ok && td.Text != "" {
			s.text = td.Text
			return true
		}
	}
	return false
}

func (s *sdkMessageStream) Text() string {
	return s.text
}

func (s *sdkMessageStream) Message() *MessageResponse {
	return fromSDKMessage(&s.acc)
}

func (s *sdkMessageStream) Err() error {
	if s.err != nil {
		return s.err
	}
	if err := s.stream.Err(); err != nil {
		return eris.Wrap(err, "anthropic: stream message")
	}
	return nil
}

func (s *sdkMessageStream) Close() error {
	return s.stream.Close()
}

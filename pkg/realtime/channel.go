package realtime

// EventChannel is the ordered, reliable bidirectional side-channel carrying
// the signaling/event protocol alongside the audio media. Two carriers are
// provided: a WebRTC data channel and a direct websocket.
type EventChannel interface {
	// Send marshals and writes an outbound event.
	Send(v any) error

	// SendAudio writes captured audio toward the remote model, encoded
	// however the carrier requires (opus media track or in-band base64).
	SendAudio(chunk AudioChunk) error

	// Close tears down the carrier. Safe to call more than once.
	Close() error
}

// transportHooks are the session callbacks a transport drives.
type transportHooks struct {
	// onMessage delivers every inbound event-channel message.
	onMessage func(data []byte)

	// onOpen fires when the event channel is ready for writes. It carries
	// the channel itself: the carrier may open before the session records
	// the channel, so the handler must not rely on session state.
	onOpen func(ch EventChannel)

	// onClose fires when the carrier ends, with the terminal error if any.
	onClose func(err error)

	// onRemotePCM delivers decoded remote audio for playback and level
	// measurement.
	onRemotePCM func(samples []int16)
}

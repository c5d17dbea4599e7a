package realtime

import "encoding/json"

// Inbound event types. The protocol is forward-compatible: types outside
// this set are ignored by the session dispatcher.
const (
	EventSessionCreated      = "session.created"
	EventSessionUpdated      = "session.updated"
	EventSpeechStarted       = "input_audio_buffer.speech_started"
	EventSpeechStopped       = "input_audio_buffer.speech_stopped"
	EventBufferCommitted     = "input_audio_buffer.committed"
	EventUserTranscriptDelta = "conversation.item.input_audio_transcription.delta"
	EventUserTranscriptDone  = "conversation.item.input_audio_transcription.completed"
	EventAssistantDelta      = "response.audio_transcript.delta"
	EventAssistantDone       = "response.audio_transcript.done"
	EventAudioDelta          = "response.audio.delta"
	EventAudioDone           = "response.audio.done"
	EventFunctionCallDone    = "response.function_call_arguments.done"
	EventError               = "error"
)

// ServerEvent is a decoded inbound event. Only the fields relevant to the
// tagged Type are populated.
type ServerEvent struct {
	Type       string        `json:"type"`
	EventID    string        `json:"event_id,omitempty"`
	Transcript string        `json:"transcript,omitempty"`
	Delta      string        `json:"delta,omitempty"`
	Name       string        `json:"name,omitempty"`
	CallID     string        `json:"call_id,omitempty"`
	Arguments  string        `json:"arguments,omitempty"`
	Error      *ServerError  `json:"error,omitempty"`
}

// ServerError carries the detail of an inbound error event.
type ServerError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DecodeServerEvent parses a raw event-channel message.
func DecodeServerEvent(data []byte) (*ServerEvent, error) {
	var ev ServerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// sessionUpdateEvent advertises tools, modalities, and transcription
// settings to the remote model.
type sessionUpdateEvent struct {
	Type    string         `json:"type"`
	Session sessionPayload `json:"session"`
}

type sessionPayload struct {
	Modalities        []string         `json:"modalities"`
	Instructions      string           `json:"instructions,omitempty"`
	Voice             string           `json:"voice"`
	InputAudioFormat  string           `json:"input_audio_format"`
	OutputAudioFormat string           `json:"output_audio_format"`
	Transcription     map[string]any   `json:"input_audio_transcription"`
	TurnDetection     map[string]any   `json:"turn_detection"`
	Tools             []map[string]any `json:"tools"`
	ToolChoice        string           `json:"tool_choice"`
}

// SessionUpdate builds the session-configuration event sent when the event
// channel opens.
func SessionUpdate(instructions, voice string, toolSpecs []map[string]any) any {
	if voice == "" {
		voice = DefaultVoice
	}
	if toolSpecs == nil {
		toolSpecs = []map[string]any{}
	}
	return sessionUpdateEvent{
		Type: "session.update",
		Session: sessionPayload{
			Modalities:        []string{"text", "audio"},
			Instructions:      instructions,
			Voice:             voice,
			InputAudioFormat:  "pcm16",
			OutputAudioFormat: "pcm16",
			Transcription: map[string]any{
				"model": "whisper-1",
			},
			TurnDetection: map[string]any{
				"type":                "server_vad",
				"threshold":           0.5,
				"prefix_padding_ms":   300,
				"silence_duration_ms": 500,
			},
			Tools:      toolSpecs,
			ToolChoice: "auto",
		},
	}
}

// contextPrimeEvent injects system context as a conversation item before the
// first model response.
type contextPrimeEvent struct {
	Type string           `json:"type"`
	Item contextPrimeItem `json:"item"`
}

type contextPrimeItem struct {
	Type    string             `json:"type"`
	Role    string             `json:"role"`
	Content []contextPrimePart `json:"content"`
}

type contextPrimePart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ContextPrime builds the priming context event carrying custom
// instructions.
func ContextPrime(text string) any {
	return contextPrimeEvent{
		Type: "conversation.item.create",
		Item: contextPrimeItem{
			Type: "message",
			Role: "system",
			Content: []contextPrimePart{
				{Type: "input_text", Text: text},
			},
		},
	}
}

// functionOutputEvent feeds a tool result back into the model's context.
type functionOutputEvent struct {
	Type string             `json:"type"`
	Item functionOutputItem `json:"item"`
}

type functionOutputItem struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

// FunctionOutput builds the function-call-output event keyed by callID.
func FunctionOutput(callID, output string) any {
	return functionOutputEvent{
		Type: "conversation.item.create",
		Item: functionOutputItem{
			Type:   "function_call_output",
			CallID: callID,
			Output: output,
		},
	}
}

// ResponseCreate builds the continuation event that resumes generation
// after a tool result.
func ResponseCreate() any {
	return map[string]string{"type": "response.create"}
}

// ResponseCancel builds the barge-in event that interrupts the current
// model response.
func ResponseCancel() any {
	return map[string]string{"type": "response.cancel"}
}

// AudioAppend builds an input audio buffer append event for the websocket
// transport, which carries audio in-band as base64.
func AudioAppend(b64 string) any {
	return map[string]string{
		"type":  "input_audio_buffer.append",
		"audio": b64,
	}
}

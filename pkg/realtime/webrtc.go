package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"
	"gopkg.in/hraban/opus.v2"

	"github.com/hirevox/hirevox/internal/httpc"
)

const (
	dataChannelLabel = "oai-events"

	// opusFrameMs is the media frame duration written to the local track.
	opusFrameMs = 20

	// remoteDecodeRate matches the opus clock rate negotiated on the
	// remote audio track.
	remoteDecodeRate = 48000

	maxOpusPacket = 4000
)

// rtcChannel carries the event protocol on a WebRTC data channel, with
// audio on peer-connection media tracks.
type rtcChannel struct {
	pc    *webrtc.PeerConnection
	dc    *webrtc.DataChannel
	track *webrtc.TrackLocalStaticSample

	mu      sync.Mutex
	closed  bool
	encoder *opus.Encoder
	pcmBuf  []int16

	frameSamples int
	hooks        transportHooks
}

// connectWebRTC negotiates a peer connection with the realtime endpoint:
// local capture track out, remote synthesis track in, and one ordered
// reliable data channel for the event protocol.
func connectWebRTC(ctx context.Context, cfg *Config, token string, hooks transportHooks) (EventChannel, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return nil, NewConnectionError("create peer connection", err, false)
	}

	c := &rtcChannel{
		pc:           pc,
		hooks:        hooks,
		frameSamples: cfg.SampleRate * opusFrameMs / 1000,
	}

	enc, err := opus.NewEncoder(cfg.SampleRate, 1, opus.AppVoIP)
	if err != nil {
		pc.Close()
		return nil, NewConnectionError("create opus encoder", err, false)
	}
	c.encoder = enc

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if track.Kind() != webrtc.RTPCodecTypeAudio {
			return
		}
		go c.consumeRemoteTrack(track)
	})

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: remoteDecodeRate, Channels: 1},
		"audio", "hirevox-mic",
	)
	if err != nil {
		pc.Close()
		return nil, NewConnectionError("create local track", err, false)
	}
	if _, err := pc.AddTrack(track); err != nil {
		pc.Close()
		return nil, NewConnectionError("add local track", err, false)
	}
	c.track = track

	dc, err := pc.CreateDataChannel(dataChannelLabel, nil)
	if err != nil {
		pc.Close()
		return nil, NewConnectionError("create data channel", err, false)
	}
	c.dc = dc

	dc.OnOpen(func() {
		if hooks.onOpen != nil {
			hooks.onOpen(c)
		}
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if hooks.onMessage != nil {
			hooks.onMessage(msg.Data)
		}
	})
	dc.OnClose(func() {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if !closed && hooks.onClose != nil {
			hooks.onClose(nil)
		}
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		return nil, NewConnectionError("create offer", err, false)
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		pc.Close()
		return nil, NewConnectionError("set local description", err, false)
	}
	select {
	case <-gatherComplete:
	case <-ctx.Done():
		pc.Close()
		return nil, NewConnectionError("ICE gathering", ctx.Err(), false)
	}

	answer, err := exchangeSDP(ctx, cfg, token, pc.LocalDescription().SDP)
	if err != nil {
		pc.Close()
		return nil, err
	}
	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer,
	}); err != nil {
		pc.Close()
		return nil, NewConnectionError("set remote description", err, false)
	}

	return c, nil
}

// exchangeSDP posts the local offer to the realtime endpoint and returns
// the remote answer.
func exchangeSDP(ctx context.Context, cfg *Config, token, offerSDP string) (string, error) {
	url := fmt.Sprintf("%s?model=%s", cfg.RealtimeURL, cfg.Model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(offerSDP))
	if err != nil {
		return "", NewConnectionError("build SDP request", err, false)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := httpc.Do(req)
	if err != nil {
		return "", NewConnectionError("SDP exchange failed", err, true)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewConnectionError("read SDP answer", err, false)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", NewAPIError(resp.StatusCode, "", "SDP exchange rejected: "+strings.TrimSpace(string(body)))
	}
	return string(body), nil
}

// consumeRemoteTrack depacketizes and decodes the remote opus stream,
// feeding PCM to the session for playback and level measurement.
func (c *rtcChannel) consumeRemoteTrack(track *webrtc.TrackRemote) {
	dec, err := opus.NewDecoder(remoteDecodeRate, 1)
	if err != nil {
		return
	}
	// 60ms at 48kHz is the largest possible opus frame.
	pcm := make([]int16, remoteDecodeRate*60/1000)
	buf := make([]byte, maxOpusPacket)

	for {
		n, _, err := track.Read(buf)
		if err != nil {
			return
		}
		var pkt rtp.Packet
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			continue
		}
		if len(pkt.Payload) == 0 {
			continue
		}
		samples, err := dec.Decode(pkt.Payload, pcm)
		if err != nil {
			continue
		}
		if c.hooks.onRemotePCM != nil {
			out := make([]int16, samples)
			copy(out, pcm[:samples])
			c.hooks.onRemotePCM(out)
		}
	}
}

// Send implements EventChannel.
func (c *rtcChannel) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.dc.SendText(string(data))
}

// SendAudio implements EventChannel. Captured PCM is buffered into fixed
// opus frames and written onto the local media track.
func (c *rtcChannel) SendAudio(chunk AudioChunk) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}

	c.pcmBuf = append(c.pcmBuf, chunk.Samples...)
	packet := make([]byte, maxOpusPacket)

	for len(c.pcmBuf) >= c.frameSamples {
		frame := c.pcmBuf[:c.frameSamples]
		c.pcmBuf = c.pcmBuf[c.frameSamples:]

		n, err := c.encoder.Encode(frame, packet)
		if err != nil {
			return fmt.Errorf("opus encode: %w", err)
		}
		sample := media.Sample{
			Data:     append([]byte(nil), packet[:n]...),
			Duration: opusFrameMs * time.Millisecond,
		}
		if err := c.track.WriteSample(sample); err != nil {
			return fmt.Errorf("write sample: %w", err)
		}
	}
	return nil
}

// Close implements EventChannel. Each teardown step is guarded so a failure
// in one does not prevent the others.
func (c *rtcChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.pcmBuf = nil
	dc, pc := c.dc, c.pc
	c.mu.Unlock()

	var firstErr error
	if dc != nil {
		if err := dc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if pc != nil {
		if err := pc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ EventChannel = (*rtcChannel)(nil)

//go:build cgo
// +build cgo

package client

import (
	"bytes"
	"errors"
	"sync"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
)

const (
	sampleRate   = 48000
	channelCount = 1
	rtpMTU       = 1200
	voiceBitRate = 32000
)

type microphoneCapture struct {
	track  mediadevices.Track
	reader mediadevices.RTPReadCloser
	ogg    *oggwriter.OggWriter
	buf    *bytes.Buffer

	wg  sync.WaitGroup
	mu  sync.Mutex
	err error
}

func startMicrophone() (capture, error) {
	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, err
	}
	opusParams.BitRate = voiceBitRate

	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Audio: func(c *mediadevices.MediaTrackConstraints) {
			c.SampleRate = prop.Int(sampleRate)
			c.ChannelCount = prop.Int(channelCount)
		},
		Codec: mediadevices.NewCodecSelector(mediadevices.WithAudioEncoders(&opusParams)),
	})
	if err != nil {
		return nil, err
	}

	tracks := stream.GetAudioTracks()
	if len(tracks) == 0 {
		return nil, errors.New("no audio track")
	}
	track := tracks[0]

	reader, err := track.NewRTPReader(webrtc.MimeTypeOpus, 1, rtpMTU)
	if err != nil {
		track.Close()
		return nil, err
	}

	buf := &bytes.Buffer{}
	ogg, err := oggwriter.NewWith(buf, sampleRate, channelCount)
	if err != nil {
		reader.Close()
		track.Close()
		return nil, err
	}

	c := &microphoneCapture{track: track, reader: reader, ogg: ogg, buf: buf}
	c.wg.Add(1)
	go c.pump()
	return c, nil
}

// pump переписывает RTP-пакеты Opus в Ogg до закрытия reader
func (c *microphoneCapture) pump() {
	defer c.wg.Done()
	for {
		pkts, release, err := c.reader.Read()
		if err != nil {
			return
		}
		if werr := c.write(pkts); werr != nil {
			release()
			c.mu.Lock()
			c.err = werr
			c.mu.Unlock()
			return
		}
		release()
	}
}

func (c *microphoneCapture) write(pkts []*rtp.Packet) error {
	for _, p := range pkts {
		if err := c.ogg.WriteRTP(p); err != nil {
			return err
		}
	}
	return nil
}

func (c *microphoneCapture) Stop() ([]byte, error) {
	c.reader.Close()
	c.track.Close()
	c.wg.Wait()

	if err := c.ogg.Close(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.buf.Bytes(), nil
}

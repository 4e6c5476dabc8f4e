package video

import (
	"testing"
	"time"

	"github.com/creatorstation/thumbnailer/pkg/mediaerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameImage(t *testing.T) {
	f := &Frame{
		Width:  2,
		Height: 1,
		Pix:    []byte{255, 0, 0, 0, 128, 255},
	}

	img, err := f.Image()
	require.NoError(t, err)

	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, 1, img.Bounds().Dy())
	assert.Equal(t, []uint8{255, 0, 0, 255, 0, 128, 255, 255}, img.Pix)
}

func TestFrameValidate(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		ok    bool
	}{
		{name: "exact", frame: Frame{Width: 2, Height: 2, Pix: make([]byte, 12)}, ok: true},
		{name: "short buffer", frame: Frame{Width: 2, Height: 2, Pix: make([]byte, 11)}},
		{name: "long buffer", frame: Frame{Width: 2, Height: 2, Pix: make([]byte, 16)}},
		{name: "zero width", frame: Frame{Width: 0, Height: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.frame.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, mediaerr.Encode, mediaerr.KindOf(err))
		})
	}
}

func TestParseProbe(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     *Info
		wantKind mediaerr.Kind
	}{
		{
			name: "mp4 with audio first",
			input: `{"format":{"duration":"5.000000","format_name":"mov,mp4"},"streams":[
				{"codec_type":"audio","codec_name":"aac"},
				{"codec_type":"video","codec_name":"h264","width":640,"height":480,"nb_frames":"125"}]}`,
			want: &Info{Duration: 5 * time.Second, Width: 640, Height: 480, Codec: "h264"},
		},
		{
			name: "duration only on stream",
			input: `{"format":{"duration":"N/A"},"streams":[
				{"codec_type":"video","codec_name":"vp9","width":320,"height":240,"duration":"2.5"}]}`,
			want: &Info{Duration: 2500 * time.Millisecond, Width: 320, Height: 240, Codec: "vp9"},
		},
		{
			name: "audio outlasts video",
			input: `{"format":{"duration":"3.000000","format_name":"mov,mp4"},"streams":[
				{"codec_type":"video","codec_name":"h264","width":640,"height":480,"duration":"0.500000"},
				{"codec_type":"audio","codec_name":"aac","duration":"3.000000"}]}`,
			want: &Info{Duration: 500 * time.Millisecond, Width: 640, Height: 480, Codec: "h264"},
		},
		{
			name:     "audio only",
			input:    `{"format":{"format_name":"mp3"},"streams":[{"codec_type":"audio"}]}`,
			wantKind: mediaerr.Decode,
		},
		{
			name:     "zero frames",
			input:    `{"streams":[{"codec_type":"video","width":10,"height":10,"nb_frames":"0"}]}`,
			wantKind: mediaerr.Decode,
		},
		{
			name:     "no size",
			input:    `{"streams":[{"codec_type":"video"}]}`,
			wantKind: mediaerr.Decode,
		},
		{
			name:     "garbage",
			input:    `not json`,
			wantKind: mediaerr.Decode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := parseProbe([]byte(tt.input))
			if tt.wantKind != mediaerr.Unknown {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, mediaerr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, info)
		})
	}
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "1.000", formatSeconds(time.Second))
	assert.Equal(t, "0.250", formatSeconds(250*time.Millisecond))
	assert.Equal(t, time.Duration(0), parseSeconds("N/A"))
}

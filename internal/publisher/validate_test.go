package publisher

import (
	"testing"
	"time"

	"github.com/maheshrc27/socialflow/internal/network"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	limits := network.Limits{
		MaxItems:         10,
		MinCarouselItems: 2,
		SupportsImage:    true,
		SupportsVideo:    true,
		MaxImageBytes:    8 << 20,
		MaxVideoBytes:    1 << 30,
		MinVideoDuration: 3 * time.Second,
		MaxVideoDuration: 15 * time.Minute,
		MinImageAspect:   0.8,
		MaxImageAspect:   1.91,
	}
	img := network.Media{URL: "https://cdn.test/a.jpg", Type: network.MediaImage, Width: 1080, Height: 1080, Size: 1 << 20}
	vid := network.Media{URL: "https://cdn.test/v.mp4", Type: network.MediaVideo, Duration: 30 * time.Second}

	many := make([]network.Media, 11)
	for i := range many {
		many[i] = img
	}
	big := img
	big.Size = 9 << 20
	wide := img
	wide.Width, wide.Height = 3000, 1000
	short := vid
	short.Duration = time.Second
	unknown := vid
	unknown.Duration = 0
	noURL := img
	noURL.URL = ""

	tests := []struct {
		name   string
		limits network.Limits
		media  []network.Media
		ok     bool
	}{
		{"single image", limits, []network.Media{img}, true},
		{"carousel", limits, []network.Media{img, vid}, true},
		{"empty", limits, nil, false},
		{"too many items", limits, many, false},
		{"image too large", limits, []network.Media{big}, false},
		{"aspect too wide", limits, []network.Media{wide}, false},
		{"video too short", limits, []network.Media{short}, false},
		{"unknown duration passes", limits, []network.Media{unknown}, true},
		{"missing url", limits, []network.Media{noURL}, false},
		{"video-only network", network.Limits{SupportsVideo: true, MaxItems: 1}, []network.Media{img}, false},
		{"video in album", network.Limits{SupportsImage: true, SupportsVideo: true, MaxItems: 10}, []network.Media{img, vid}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(network.Instagram, tt.limits, tt.media)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, network.KindValidation, network.KindOf(err))
		})
	}
}

package publisher

import (
	"github.com/maheshrc27/socialflow/internal/network"
)

// Validate checks media against the limits of network n. It never contacts
// the network; every failure is a KindValidation error.
func Validate(n network.Network, limits network.Limits, media []network.Media) error {
	fail := func(format string, args ...any) error {
		return network.Errorf(network.KindValidation, n, "validate", format, args...)
	}

	if len(media) == 0 {
		return fail("at least one media item is required")
	}
	if limits.MaxItems > 0 && len(media) > limits.MaxItems {
		return fail("%d media items exceed the limit of %d", len(media), limits.MaxItems)
	}
	carousel := len(media) > 1
	if carousel && limits.MinCarouselItems > 0 && len(media) < limits.MinCarouselItems {
		return fail("a carousel needs at least %d items", limits.MinCarouselItems)
	}

	for i, m := range media {
		if m.URL == "" {
			return fail("media item %d has no URL", i+1)
		}

		switch m.Type {
		case network.MediaImage:
			if !limits.SupportsImage {
				return fail("images are not supported")
			}
			if limits.MaxImageBytes > 0 && m.Size > limits.MaxImageBytes {
				return fail("image %d is %d bytes, the limit is %d", i+1, m.Size, limits.MaxImageBytes)
			}
			if err := checkAspect(m, limits.MinImageAspect, limits.MaxImageAspect); err != "" {
				return fail("image %d %s", i+1, err)
			}
		case network.MediaVideo:
			if !limits.SupportsVideo {
				return fail("videos are not supported")
			}
			if carousel && !limits.CarouselAllowsVideo {
				return fail("videos are not allowed in a carousel")
			}
			if limits.MaxVideoBytes > 0 && m.Size > limits.MaxVideoBytes {
				return fail("video %d is %d bytes, the limit is %d", i+1, m.Size, limits.MaxVideoBytes)
			}
			// A zero duration means it is unknown.
			if m.Duration > 0 {
				if limits.MinVideoDuration > 0 && m.Duration < limits.MinVideoDuration {
					return fail("video %d is shorter than %s", i+1, limits.MinVideoDuration)
				}
				if limits.MaxVideoDuration > 0 && m.Duration > limits.MaxVideoDuration {
					return fail("video %d is longer than %s", i+1, limits.MaxVideoDuration)
				}
			}
			if err := checkAspect(m, limits.MinVideoAspect, limits.MaxVideoAspect); err != "" {
				return fail("video %d %s", i+1, err)
			}
		default:
			return fail("media item %d has unknown type %q", i+1, m.Type)
		}
	}
	return nil
}

func checkAspect(m network.Media, lo, hi float64) string {
	if m.Width <= 0 || m.Height <= 0 {
		return ""
	}
	ratio := float64(m.Width) / float64(m.Height)
	if lo > 0 && ratio < lo {
		return "aspect ratio is too narrow"
	}
	if hi > 0 && ratio > hi {
		return "aspect ratio is too wide"
	}
	return ""
}

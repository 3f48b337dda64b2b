package producer

import (
	"context"
	"fmt"

	"github.com/zsiec/compositor/frame"
	"github.com/zsiec/compositor/gpu"
	"github.com/zsiec/compositor/pixfmt"
	"github.com/zsiec/compositor/transform"
)

// DeviceFrameFactory is the stock FrameFactory: it uploads each plane to
// the channel's GPU device and wraps the resulting textures in a single
// DrawFrame leaf with an identity transform (the stage applies the
// layer's tweened transform on top when it assembles the bundle).
type DeviceFrameFactory struct {
	device gpu.Device
}

// NewDeviceFrameFactory wraps device as a FrameFactory. The server
// constructs one of these per channel; the channel's stage hands it to
// every producer's Initialize.
func NewDeviceFrameFactory(device gpu.Device) *DeviceFrameFactory {
	return &DeviceFrameFactory{device: device}
}

func (f *DeviceFrameFactory) CreateFrame(ctx context.Context, desc pixfmt.Desc, width, height int, planes [][]byte) (frame.DrawFrame, error) {
	if len(planes) != desc.NumPlanes() {
		return frame.DrawFrame{}, fmt.Errorf("framefactory: %d planes given, pixel format %s needs %d", len(planes), desc.Tag, desc.NumPlanes())
	}

	textures := make([]frame.Texture, 0, len(planes))
	for i, p := range planes {
		plane := desc.Planes[i]
		stride := plane.Stride
		if stride == 0 {
			stride = plane.Width * 4
		}
		tex, err := f.device.Upload(ctx, plane.Width, plane.Height, stride, plane.BitDepth, p)
		if err != nil {
			return frame.DrawFrame{}, fmt.Errorf("framefactory: upload plane %d: %w", i, err)
		}
		textures = append(textures, tex)
	}

	return frame.Leaf(frame.Textures{Planes: textures, PixDesc: desc}, transform.Identity(), transform.BlendNormal), nil
}

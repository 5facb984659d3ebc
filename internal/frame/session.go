package frame

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shaderlab/internal/gpu"
	"github.com/gogpu/shaderlab/shader"
)

// SessionConfig describes the resources of a Session.
type SessionConfig struct {
	Width  uint32
	Height uint32
	// Vertex is shared by every pipeline.
	Vertex *shader.Blob
	// Pixels holds one blob per pipeline variant.
	Pixels []*shader.Blob
}

// Session owns the render target, the readback buffer, the fence and one
// pipeline per pixel variant. Frames run one at a time: each is submitted,
// fenced and waited for before Frame returns.
type Session struct {
	dev       gpu.Device
	target    gpu.Texture
	readback  gpu.Buffer
	footprint gpu.Footprint
	fence     gpu.Fence
	pipelines []gpu.Pipeline
	list      gpu.CommandList
	recorder  Recorder

	next     uint64
	recorded bool
	closed   bool
}

// NewSession creates the resources described by cfg on dev. On error every
// resource created so far is released.
func NewSession(dev gpu.Device, cfg SessionConfig) (s *Session, err error) {
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("%w: target %dx%d", gpu.ErrInvalidSize, cfg.Width, cfg.Height)
	}
	if cfg.Vertex == nil || len(cfg.Pixels) == 0 {
		return nil, errors.New("frame: session needs a vertex blob and at least one pixel blob")
	}

	s = &Session{dev: dev, next: 1}
	defer func() {
		if err != nil {
			s.release()
		}
	}()

	s.target, err = dev.CreateRenderTarget(gpu.TargetDescriptor{
		Label:        "shaderlab-rt",
		Width:        cfg.Width,
		Height:       cfg.Height,
		Format:       gputypes.TextureFormatRGBA32Float,
		InitialState: gpu.StateRenderTarget,
	})
	if err != nil {
		return nil, fmt.Errorf("frame: create render target: %w", err)
	}

	s.footprint = dev.CopyableFootprint(s.target)
	s.readback, err = dev.CreateReadbackBuffer("shaderlab-readback", s.footprint.Offset+s.footprint.TotalBytes)
	if err != nil {
		return nil, fmt.Errorf("frame: create readback buffer: %w", err)
	}

	for i, ps := range cfg.Pixels {
		p, err := dev.CreatePipeline(gpu.PipelineDescriptor{
			Label:  fmt.Sprintf("pso-%d-%s", i, ps.EntryPoint),
			Vertex: cfg.Vertex,
			Pixel:  ps,
			Format: gputypes.TextureFormatRGBA32Float,
		})
		if err != nil {
			return nil, fmt.Errorf("frame: create pipeline for %s: %w", ps.EntryPoint, err)
		}
		s.pipelines = append(s.pipelines, p)
	}

	s.fence, err = dev.CreateFence(0)
	if err != nil {
		return nil, fmt.Errorf("frame: create fence: %w", err)
	}
	s.list, err = dev.CreateCommandList("shaderlab-frame")
	if err != nil {
		return nil, fmt.Errorf("frame: create command list: %w", err)
	}

	s.recorder = Recorder{
		Target:    s.target,
		Readback:  s.readback,
		Footprint: s.footprint,
		Pipelines: s.pipelines,
	}
	gpu.Logger().Debug("frame: session ready",
		"width", cfg.Width,
		"height", cfg.Height,
		"footprint", s.footprint.String(),
		"pipelines", len(s.pipelines))
	return s, nil
}

// Footprint returns the layout of the target inside the readback buffer.
func (s *Session) Footprint() gpu.Footprint { return s.footprint }

// Target returns the render target.
func (s *Session) Target() gpu.Texture { return s.target }

// Pipelines returns the pipelines in the order of SessionConfig.Pixels.
func (s *Session) Pipelines() []gpu.Pipeline { return s.pipelines }

// FenceValue returns the value the next frame will signal.
func (s *Session) FenceValue() uint64 { return s.next }

// Frame records plan, submits it, signals the next fence value and waits
// for exactly that value. With readback set the target contents are mapped
// and returned; otherwise the image is nil.
func (s *Session) Frame(ctx context.Context, plan FramePlan, readback bool) (*Image, error) {
	if s.closed {
		return nil, gpu.ErrClosed
	}
	if s.recorded {
		if err := s.list.Reset(); err != nil {
			return nil, fmt.Errorf("frame: reset command list: %w", err)
		}
	}
	s.recorded = true

	if err := s.recorder.Record(s.list, plan); err != nil {
		return nil, err
	}
	if err := s.list.Close(); err != nil {
		return nil, fmt.Errorf("frame: close command list: %w", err)
	}

	q := s.dev.Queue()
	if err := q.Submit(s.list); err != nil {
		return nil, fmt.Errorf("frame: submit: %w", err)
	}
	value := s.next
	if err := q.Signal(s.fence, value); err != nil {
		return nil, fmt.Errorf("frame: signal %d: %w", value, err)
	}
	s.next++

	if err := s.fence.Wait(ctx, value); err != nil {
		return nil, fmt.Errorf("frame: wait for fence %d: %w", value, err)
	}
	gpu.Logger().Debug("frame: complete", "fence", value, "draws", len(plan.Draws))

	if !readback {
		return nil, nil
	}
	return s.read(ctx)
}

func (s *Session) read(ctx context.Context) (*Image, error) {
	data, err := s.readback.Map(ctx)
	if err != nil {
		return nil, fmt.Errorf("frame: map readback: %w", err)
	}
	img, err := NewImage(data, s.footprint)
	if uerr := s.readback.Unmap(); uerr != nil && err == nil {
		err = fmt.Errorf("frame: unmap readback: %w", uerr)
	}
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Close releases every resource of the session. The device stays open.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.release()
}

func (s *Session) release() {
	if s.list != nil {
		s.list.Release()
		s.list = nil
	}
	if s.fence != nil {
		s.fence.Release()
		s.fence = nil
	}
	for i := len(s.pipelines) - 1; i >= 0; i-- {
		s.pipelines[i].Release()
	}
	s.pipelines = nil
	if s.readback != nil {
		s.readback.Release()
		s.readback = nil
	}
	if s.target != nil {
		s.target.Release()
		s.target = nil
	}
}

package frame

import (
	"errors"
	"fmt"

	"github.com/gogpu/shaderlab/internal/gpu"
)

// ErrNoDraws is returned for a plan without draws.
var ErrNoDraws = errors.New("frame: plan has no draws")

// FramePlan describes the work of one frame.
type FramePlan struct {
	// Draws lists pipeline indices, one full-screen triangle each.
	Draws []int

	// Viewport and Scissor default to the full target when zero.
	Viewport gpu.Viewport
	Scissor  gpu.Rect

	// ReturnToRenderTarget records a barrier back to render-target state
	// after the copy, so the next frame can draw again.
	ReturnToRenderTarget bool
}

// SinglePlan draws pipeline 0 once and leaves the target in copy-source
// state.
func SinglePlan() FramePlan {
	return FramePlan{Draws: []int{0}}
}

// AlternatingPlan issues n draws cycling through pipelines 0..variants-1,
// two per variant when n is 2*variants, and returns the target to
// render-target state.
func AlternatingPlan(n, variants int) FramePlan {
	p := FramePlan{ReturnToRenderTarget: true}
	if variants < 1 {
		variants = 1
	}
	for i := 0; i < n; i++ {
		p.Draws = append(p.Draws, i%variants)
	}
	return p
}

// Recorder records frames into a command list against fixed resources.
type Recorder struct {
	Target    gpu.Texture
	Readback  gpu.Buffer
	Footprint gpu.Footprint
	Pipelines []gpu.Pipeline
}

// Record appends plan to list. Viewport, scissor and target are bound once;
// each draw only changes the pipeline. After the draws the target moves to
// copy-source state and is copied into the readback buffer.
//
// Record does not close the list.
func (r *Recorder) Record(list gpu.CommandList, plan FramePlan) error {
	if len(plan.Draws) == 0 {
		return ErrNoDraws
	}
	for _, d := range plan.Draws {
		if d < 0 || d >= len(r.Pipelines) {
			return fmt.Errorf("frame: draw uses pipeline %d of %d", d, len(r.Pipelines))
		}
	}

	w, h := r.Target.Width(), r.Target.Height()
	vp := plan.Viewport
	if vp == (gpu.Viewport{}) {
		vp = gpu.FullViewport(w, h)
	}
	sc := plan.Scissor
	if sc == (gpu.Rect{}) {
		sc = gpu.Rect{Width: w, Height: h}
	}

	list.SetViewport(vp)
	list.SetScissor(sc)
	list.SetRenderTarget(r.Target)

	for _, d := range plan.Draws {
		list.SetPipeline(r.Pipelines[d])
		list.Draw(3, 1, 0, 0)
	}

	list.Barrier(r.Target, gpu.StateRenderTarget, gpu.StateCopySource)
	list.CopyTextureToBuffer(r.Target, r.Readback, r.Footprint)
	if plan.ReturnToRenderTarget {
		list.Barrier(r.Target, gpu.StateCopySource, gpu.StateRenderTarget)
	}
	return nil
}

// Package window runs the playground in a gogpu window.
//
// Every frame draws a full-screen triangle four times, alternating two pixel
// shader variants, copies the target into the readback buffer and waits for
// its own fence value. Only the first frame is read back: its pixels are
// printed and shown, magnified, in the window until it closes.
//
//	err := window.Run(ctx, window.Config{
//		Title:   "shaderlab",
//		Width:   640,
//		Height:  320,
//		Options: []shaderlab.Option{shaderlab.WithEntryPoints("vs_main", "ps_main", "ps_main2")},
//	})
//
// Closing the window or pressing Escape ends the loop.
package window

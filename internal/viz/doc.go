// Package viz draws a running simulation in the terminal with Bubble Tea.
//
//   - [Live] follows a sim.Realtime and renders the robot on a braille
//     [Canvas] next to a panel of contact statistics.
//   - [Picker] lists the config presets and opens a Live view of one.
//
// # Key Bindings
//
//	Space  - Pause/Resume
//	R      - Reset to the initial state
//	K/WASD - Kick the base
//	Arrows - Turn and tilt the camera
//	F      - Toggle contact force vectors
//	?      - Help
package viz

// Package bev converts synchronized forward-facing camera images into a
// single top-down bird's-eye-view canvas.
//
// The core is a pure geometric pipeline: each camera's intrinsic matrix K
// and extrinsic pose E compose with the canvas parameters into an
// inverse-perspective-mapping homography, each image is warped onto the
// shared ground-plane canvas through that homography, and the warped views
// are stitched with a first-writer-wins overwrite rule in configured camera
// order.
//
// Data flows strictly leaf to root: calibration + pose -> homography ->
// warp -> composite -> publish. Per-view failures (unresolvable pose,
// malformed calibration, singular transform) drop that view only; a frame
// with zero surviving views still publishes an all-background canvas.
package bev

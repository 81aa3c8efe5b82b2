// Package scr implements the fully convolutional network used for
// neural-guided scene coordinate regression.
//
// Given an image batch of shape (B, 3, H, W), with H and W multiples of 8,
// the network predicts two dense maps at 1/8 resolution:
//
//   - scene coordinates (B, 3, H/8, W/8): a 3D point per output cell,
//     expressed relative to a fixed mean coordinate that is added last.
//   - log guidance (B, 1, H/8, W/8): log-probabilities used to sample
//     correspondences downstream.
//
// The trunk is a stride-8 convolutional stem followed by three residual
// blocks. The guidance head reads a detached view of the trunk output, so
// gradient-based training of that head never reaches the trunk.
//
// The guidance log-probabilities are normalized jointly over the whole
// batch: one log-sum-exp is taken over all B*(H/8)*(W/8) entries. For a
// batch of one image this is a per-image distribution; for larger batches
// the images share a single distribution.
//
// Parameter names match the PyTorch module (conv1.weight, res2_skip.bias,
// fc3_1.weight, mean, ...), so state dicts exported from PyTorch as
// SafeTensors load directly.
package scr

// Package serialization reads and writes tensor state dictionaries.
//
// Two formats are supported:
//
// The native .born format (version 2 is written, versions 1 and 2 are read):
//
//	[0x00-0x03: Magic "BORN"]
//	[0x04-0x07: Version (uint32 LE)]
//	[0x08-0x0B: Flags (uint32 LE)]
//	[0x0C-0x0F: Reserved]
//	[0x10-0x17: Header Size (uint64 LE)]
//	[0x18-0x1F: Data Size (uint64 LE)]
//	[0x20-0x3F: SHA-256 of the data section]
//	[Header: JSON metadata]
//	[Tensor data: raw little-endian bytes, 64-byte aligned]
//
// SafeTensors, as produced by PyTorch's safetensors.torch.save_file:
//
//	[8 bytes: header size (uint64 LE)]
//	[JSON header: name -> {dtype, shape, data_offsets}, optional __metadata__]
//	[Tensor data]
//
// F16 and BF16 SafeTensors entries are widened to float32 on load.
//
// Example usage:
//
//	err := serialization.WriteFile("model.born", stateDict, serialization.Header{
//	    ModelType: "SceneCoordinateNetwork",
//	})
//
//	r, err := serialization.Open("model.born")
//	stateDict, err := r.StateDict()
package serialization

// Package bumpstore provides bump-pointer stores over one fixed block.
//
// Allocation advances a watermark through the block; deallocation is a no-op
// and memory is only reclaimed by Reset. A block that is the last allocation
// grows in place, any other block grows by relocation.
//
// [Inline] owns its block and is meant for a single goroutine. [Block] is a
// block that several [Shared] parts allocate from through an atomic
// watermark; all parts of one block form a sharing set.
package bumpstore

// Package store defines the Store contract: an allocation interface that
// hands out opaque handles instead of addresses.
//
// A handle is resolved into the current address of its block with
// [Store.Resolve]. Whether that address, or the handle itself, survives
// further calls depends on the capabilities the backend reports.
//
// # Handle invalidation
//
//   - Without [Multiple], any Allocate or AllocateZeroed call may invalidate
//     every handle previously issued by the store.
//   - Deallocate invalidates its handle and all copies immediately.
//   - A successful Grow, GrowZeroed or Shrink replaces the handle: the old one
//     is invalid and the returned one must be used instead. On failure the old
//     handle is untouched.
//
// # Address invalidation
//
//   - Without [Stable], any mutating call (Allocate, Deallocate, Grow, Shrink
//     and the zeroed variants) may invalidate every resolved address.
//   - Without [Pinning], moving the store value may invalidate resolved
//     addresses. Pinning implies Stable.
//
// # Sharing
//
// A store reporting [Sharing] implements [Sharer]: Share creates another part
// of the same logical store. Handles of one part are valid on every part of
// the sharing set, which lives until its last part is dropped.
//
// # Errors
//
// [ErrAlloc] is the only recoverable error: the request could not be
// satisfied, whether because memory is exhausted or because a layout
// constraint cannot be met. Using a handle from another store, an invalid
// handle, or a layout that does not fit the block are precondition
// violations, not reported errors.
//
// # Defaults
//
// Only Dangling, Allocate, Deallocate and Resolve are required. [Grow],
// [Shrink], [AllocateZeroed] and [GrowZeroed] use the backend's own
// implementation when it provides one ([Grower], [Shrinker],
// [ZeroAllocator], [ZeroGrower]) and otherwise fall back to a generic
// composition selected by capability.
package store

// Package reconcile diffs declarative widget trees against the
// rendered state of a surface and emits ordered patch scripts.
//
// The engine is a pure function: Diff takes the previous map (what was
// last applied, keyed by node identity), the new tree, and the mount
// point, and produces a Result with the patch script, the replacement
// map, and the renderer side tables. Nothing is mutated on the way in,
// so a failed pass leaves the caller's state exactly as it was.
//
// Identity drives everything. A node with a Key keeps its record, its
// element id, and its client-side state across any reordering of its
// siblings; unkeyed nodes are matched by position among the unkeyed.
// Matched nodes update in place, reorders become MOVE patches around a
// longest-increasing-subsequence backbone, and a node whose tag or
// kind changed is replaced wholesale under a fresh element id.
//
// Every patch in a script is applicable at the moment it is reached:
// removals come first, parents precede their children, and insertion
// anchors only ever name elements that are already settled. Applying
// the script in order against the previous surface yields the new
// tree exactly.
package reconcile

// Package engine declares what the composition tree needs from a physics
// backend: a [Transport] that answers joint, link and dynamics queries as
// fixed-schema records and accepts motor commands.
//
// Plural queries return structure-of-arrays records ([JointInfos],
// [JointStates], [LinkStates], [DynamicsInfos]) with one entry per requested
// index, in request order.
//
// A Transport is shared mutable state. Nothing in this module locks it for
// the caller; wrap it with [Serialized] when a stepping loop runs next to
// tree operations.
package engine

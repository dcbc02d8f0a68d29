// Package robot assembles heterogeneous components (arms, grippers, tactile
// sensors) into a tree and exposes the whole tree through five operations:
//
//   - StateSpace / ActionSpace: merged schema of every component
//   - States: merged snapshot of every component
//   - SetActions: routes a nested request to the components it names
//   - Reset: resets the whole subtree
//
// [Node] is the default implementation. Embedding it turns a type into a
// transparent composite; a leaf or hybrid overrides some of the five methods
// and passes its own contribution to the matching Route method:
//
//	type Hand struct {
//	    robot.Node
//	}
//
//	func (h *Hand) ActionSpace() (space.Dict, error) {
//	    return h.RouteActionSpace(func() (space.Dict, error) {
//	        return space.Dict{"joint_torque": space.Unbounded(16)}, nil
//	    })
//	}
//
// Children are registered explicitly with [Node.AddChild]. The registry keeps
// the tree acyclic and every child owned by exactly one parent.
//
// # Aggregation
//
// Read operations evaluate children first, then the local contribution. A local
// field that has the same name as a child fails with a [CollisionError].
// Entries that end up as empty mappings are dropped at every level, so
// components without spaces or state never show up as empty placeholders.
//
// # Thread Safety
//
// Nothing here locks. Exactly one operation may be in flight against a tree
// and the transport behind it; see engine.Serialized for callers that step a
// world concurrently.
package robot

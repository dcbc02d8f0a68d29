package robot_test

import (
	"errors"
	"sort"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/bulletx/internal/attr"
	"github.com/san-kum/bulletx/internal/robot"
)

func flatKeys(m attr.Map) []string {
	keys := make([]string, 0)
	for k := range m.Flatten(attr.Sep) {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ = Describe("composition tree", func() {
	var (
		root        *robot.Node
		left, right *arm
	)

	BeforeEach(func() {
		root = robot.NewNode()
		left, right = newArm(7), newArm(7)
		Expect(root.AddChild("left", left)).To(Succeed())
		Expect(root.AddChild("right", right)).To(Succeed())
	})

	Describe("space aggregation", func() {
		It("nests every child's state space under its name", func() {
			ss, err := root.StateSpace()
			Expect(err).NotTo(HaveOccurred())
			Expect(ss.Keys()).To(Equal([]string{"left", "right"}))

			for _, name := range []string{"left.joint_position", "right.joint_position"} {
				box, ok := ss.Box(name)
				Expect(ok).To(BeTrue(), name)
				Expect(box.Shape()).To(Equal([]int{7}))
			}
			Expect(ss.Sub("left").Keys()).To(Equal([]string{"joint_position"}))
		})

		It("picks up a child assigned after the fact", func() {
			Expect(right.AddChild("hand", &hand{})).To(Succeed())

			as, err := root.ActionSpace()
			Expect(err).NotTo(HaveOccurred())
			box, ok := as.Box("right.hand.joint_torque")
			Expect(ok).To(BeTrue())
			Expect(box.Shape()).To(Equal([]int{16}))
		})

		It("keeps the local fields of a hybrid next to its children", func() {
			Expect(right.AddChild("hand", &hand{})).To(Succeed())

			as, err := right.ActionSpace()
			Expect(err).NotTo(HaveOccurred())
			Expect(as.Keys()).To(Equal([]string{"hand", "joint_position", "joint_torque"}))
		})
	})

	Describe("name collisions", func() {
		It("fails every read operation with the colliding key", func() {
			c := &clash{field: "gripper"}
			Expect(c.AddChild("gripper", &hand{})).To(Succeed())
			Expect(root.AddChild("odd", c)).To(Succeed())

			_, err := root.StateSpace()
			Expect(err).To(MatchError(robot.ErrNameCollision))
			var ce *robot.CollisionError
			Expect(errors.As(err, &ce)).To(BeTrue())
			Expect(ce.Keys).To(Equal([]string{"gripper"}))
			Expect(ce.Op).To(Equal("state_space"))

			_, err = root.ActionSpace()
			Expect(err).To(MatchError(robot.ErrNameCollision))

			_, err = root.States()
			Expect(err).To(MatchError(robot.ErrNameCollision))
		})

		It("does not fire when names differ", func() {
			c := &clash{field: "force"}
			Expect(c.AddChild("gripper", &hand{})).To(Succeed())

			ss, err := c.StateSpace()
			Expect(err).NotTo(HaveOccurred())
			Expect(ss.Keys()).To(Equal([]string{"force"}))
		})
	})

	Describe("empty-branch pruning", func() {
		It("omits components without state", func() {
			Expect(root.AddChild("bare", robot.NewNode())).To(Succeed())
			Expect(root.AddChild("hand", &hand{})).To(Succeed())

			ss, err := root.StateSpace()
			Expect(err).NotTo(HaveOccurred())
			Expect(ss).NotTo(HaveKey("bare"))
			Expect(ss).NotTo(HaveKey("hand"))

			as, err := root.ActionSpace()
			Expect(err).NotTo(HaveOccurred())
			Expect(as).To(HaveKey("hand"))
			Expect(as).NotTo(HaveKey("bare"))

			st, err := root.States()
			Expect(err).NotTo(HaveOccurred())
			Expect(st).NotTo(HaveKey("bare"))
		})

		It("collapses empty subtrees outward", func() {
			mid := robot.NewNode()
			Expect(mid.AddChild("deeper", robot.NewNode())).To(Succeed())
			Expect(root.AddChild("mid", mid)).To(Succeed())

			ss, err := root.StateSpace()
			Expect(err).NotTo(HaveOccurred())
			Expect(ss).NotTo(HaveKey("mid"))
		})

		It("reports an empty space for a bare component", func() {
			ss, err := robot.NewNode().StateSpace()
			Expect(err).NotTo(HaveOccurred())
			Expect(ss).To(BeEmpty())
		})
	})

	Describe("action routing", func() {
		var child *arm

		BeforeEach(func() {
			Expect(root.RemoveChild("right")).Error().NotTo(HaveOccurred())
			mid := robot.NewNode()
			child = newArm(7)
			Expect(mid.AddChild("child", child)).To(Succeed())
			Expect(root.AddChild("right", mid)).To(Succeed())
		})

		It("delivers each sub-request to exactly one leaf", func() {
			a := attr.Map{"joint_torque": []float64{1, 1, 1, 1, 1, 1, 1}}
			b := attr.Map{"joint_torque": []float64{2, 2, 2, 2, 2, 2, 2}}

			Expect(root.SetActions(attr.Map{
				"left":  a,
				"right": attr.Map{"child": b},
			})).To(Succeed())

			Expect(left.received).To(Equal([]attr.Map{a}))
			Expect(child.received).To(Equal([]attr.Map{b}))
		})

		It("normalises plain maps into sub-requests", func() {
			Expect(root.SetActions(attr.Map{
				"right": map[string]any{"child": map[string]any{"joint_torque": 3.0}},
			})).To(Succeed())

			Expect(child.received).To(HaveLen(1))
			Expect(child.received[0]).To(HaveKeyWithValue("joint_torque", 3.0))
			Expect(left.received).To(BeEmpty())
		})

		It("rejects a non-mapping value for a child", func() {
			err := root.SetActions(attr.Map{"left": 5})
			Expect(err).To(MatchError(robot.ErrNotMapping))
		})

		It("drives joints to zero and reset keeps them there", func() {
			ones := []float64{1, 1, 1, 1, 1, 1, 1}
			zero := make([]float64, 7)
			Expect(root.SetActions(attr.Map{
				"left":  attr.Map{"joint_position": ones},
				"right": attr.Map{"child": attr.Map{"joint_position": ones}},
			})).To(Succeed())
			Expect(root.SetActions(attr.Map{
				"left":  attr.Map{"joint_position": zero},
				"right": attr.Map{"child": attr.Map{"joint_position": zero}},
			})).To(Succeed())
			Expect(root.Reset()).To(Succeed())

			st, err := root.States()
			Expect(err).NotTo(HaveOccurred())
			for _, path := range []string{"left.joint_position", "right.child.joint_position"} {
				v, ok := st.Lookup(path)
				Expect(ok).To(BeTrue(), path)
				for _, q := range v.([]float64) {
					Expect(q).To(BeNumerically("~", 0, 1e-9))
				}
			}
			Expect(left.resets).To(Equal(1))
			Expect(child.resets).To(Equal(1))
		})
	})

	Describe("reads", func() {
		It("returns the same field set on consecutive calls", func() {
			first, err := root.States()
			Expect(err).NotTo(HaveOccurred())
			second, err := root.States()
			Expect(err).NotTo(HaveOccurred())
			Expect(flatKeys(second)).To(Equal(flatKeys(first)))
		})

		It("returns a fresh snapshot every time", func() {
			first, err := root.States()
			Expect(err).NotTo(HaveOccurred())
			Expect(root.SetActions(attr.Map{"left": attr.Map{"joint_position": []float64{1, 0, 0, 0, 0, 0, 0}}})).To(Succeed())
			second, err := root.States()
			Expect(err).NotTo(HaveOccurred())

			before, _ := first.Lookup("left.joint_position")
			after, _ := second.Lookup("left.joint_position")
			Expect(before.([]float64)[0]).To(Equal(0.0))
			Expect(after.([]float64)[0]).To(Equal(1.0))
		})
	})

	Describe("collaborator failures", func() {
		BeforeEach(func() {
			Expect(root.AddChild("broken", &broken{})).To(Succeed())
		})

		It("surfaces read failures unmodified", func() {
			_, err := root.States()
			Expect(err).To(MatchError(errEngine))
		})

		It("surfaces write failures", func() {
			err := root.SetActions(attr.Map{"broken": attr.Map{"x": 1}})
			Expect(err).To(MatchError(errEngine))
		})

		It("stops resetting at the first failure", func() {
			Expect(root.Reset()).To(MatchError(errEngine))
			Expect(left.resets).To(Equal(1))
		})
	})
})

var _ = Describe("child registry", func() {
	It("rejects empty names, nil children and duplicates", func() {
		n := robot.NewNode()
		Expect(n.AddChild("", robot.NewNode())).To(MatchError(robot.ErrEmptyName))
		Expect(n.AddChild("a", nil)).To(MatchError(robot.ErrNilComponent))
		Expect(n.AddChild("a", robot.NewNode())).To(Succeed())
		Expect(n.AddChild("a", robot.NewNode())).To(MatchError(robot.ErrDuplicateChild))
	})

	It("keeps a child with a single owner", func() {
		p1, p2, c := robot.NewNode(), robot.NewNode(), newArm(1)
		Expect(p1.AddChild("c", c)).To(Succeed())
		Expect(p2.AddChild("c", c)).To(MatchError(robot.ErrAlreadyOwned))

		removed, err := p1.RemoveChild("c")
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(BeIdenticalTo(c))
		Expect(c.Parent()).To(BeNil())
		Expect(p2.AddChild("c", c)).To(Succeed())
		Expect(c.Parent()).To(BeIdenticalTo(p2))
	})

	It("refuses cycles", func() {
		a, b := robot.NewNode(), robot.NewNode()
		Expect(a.AddChild("b", b)).To(Succeed())
		Expect(b.AddChild("a", a)).To(MatchError(robot.ErrCycle))
		Expect(a.AddChild("self", a)).To(MatchError(robot.ErrCycle))
	})

	It("preserves insertion order", func() {
		n := robot.NewNode()
		for _, name := range []string{"zeta", "alpha", "mid"} {
			Expect(n.AddChild(name, robot.NewNode())).To(Succeed())
		}
		Expect(n.ChildNames()).To(Equal([]string{"zeta", "alpha", "mid"}))
		Expect(n.Len()).To(Equal(3))

		_, err := n.RemoveChild("missing")
		Expect(err).To(MatchError(robot.ErrChildNotFound))
	})
})

var _ = Describe("Dispatch", func() {
	var (
		root *robot.Node
		left *arm
	)

	BeforeEach(func() {
		root = robot.NewNode()
		left = newArm(2)
		Expect(root.AddChild("left", left)).To(Succeed())
		Expect(left.AddChild("hand", &hand{})).To(Succeed())
	})

	request := func() attr.Map {
		return attr.Map{
			"left": attr.Map{
				"joint_torqe": []float64{1, 1},
				"hand":        attr.Map{"joint_torque": []float64{0}, "grip": 1.0},
			},
			"elbow": 1.0,
		}
	}

	It("rejects unmatched keys in strict mode without applying anything", func() {
		paths, err := robot.Dispatch(root, request(), robot.Strict)
		Expect(err).To(MatchError(robot.ErrUnmatchedKey))
		Expect(paths).To(Equal([]string{"elbow", "left.hand.grip", "left.joint_torqe"}))
		Expect(left.received).To(BeEmpty())
	})

	It("rejects a non-mapping child value before driving any sibling", func() {
		right := newArm(2)
		Expect(root.AddChild("right", right)).To(Succeed())

		for _, mode := range []robot.Mode{robot.Strict, robot.Lenient} {
			paths, err := robot.Dispatch(root, attr.Map{
				"left":  attr.Map{"joint_position": []float64{1, 1}},
				"right": 5.0,
			}, mode)
			Expect(err).To(MatchError(robot.ErrNotMapping))
			Expect(err.Error()).To(ContainSubstring(`"right" holds float64`))
			Expect(paths).To(BeEmpty())
			Expect(left.received).To(BeEmpty())
			Expect(left.position).To(Equal([]float64{0, 0}))
		}

		_, err := robot.Dispatch(root, attr.Map{"left": attr.Map{"hand": 1.0}}, robot.Strict)
		Expect(err).To(MatchError(robot.ErrNotMapping))
		Expect(err.Error()).To(ContainSubstring(`"left.hand"`))
		Expect(left.received).To(BeEmpty())
	})

	It("applies and reports unmatched keys in lenient mode", func() {
		paths, err := robot.Dispatch(root, request(), robot.Lenient)
		Expect(err).NotTo(HaveOccurred())
		Expect(paths).To(HaveLen(3))
		Expect(left.received).To(HaveLen(1))
	})

	It("accepts a fully matched request in strict mode", func() {
		paths, err := robot.Dispatch(root, attr.Map{
			"left": attr.Map{"joint_torque": []float64{1, 1}},
		}, robot.Strict)
		Expect(err).NotTo(HaveOccurred())
		Expect(paths).To(BeEmpty())
		Expect(left.received).To(HaveLen(1))
	})

	It("parses modes", func() {
		m, err := robot.ParseMode("STRICT")
		Expect(err).NotTo(HaveOccurred())
		Expect(m).To(Equal(robot.Strict))
		m, err = robot.ParseMode("")
		Expect(err).NotTo(HaveOccurred())
		Expect(m).To(Equal(robot.Lenient))
		_, err = robot.ParseMode("loose")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("tree helpers", func() {
	var root *robot.Node

	BeforeEach(func() {
		root = robot.NewNode()
		r := newArm(1)
		Expect(root.AddChild("left", newArm(1))).To(Succeed())
		Expect(root.AddChild("right", r)).To(Succeed())
		Expect(r.AddChild("hand", &hand{})).To(Succeed())
	})

	It("walks parents before children", func() {
		var paths []string
		Expect(robot.Walk(root, func(path string, _ robot.Component) error {
			paths = append(paths, path)
			return nil
		})).To(Succeed())
		Expect(paths).To(Equal([]string{"", "left", "right", "right.hand"}))
	})

	It("finds components by path", func() {
		c, err := robot.Find(root, "right.hand")
		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(BeAssignableToTypeOf(&hand{}))

		_, err = robot.Find(root, "right.foot")
		Expect(err).To(MatchError(robot.ErrChildNotFound))
	})

	It("summarises spaces and states", func() {
		s, err := robot.Summary(root)
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(ContainSubstring("State Space: {"))
		Expect(s).To(ContainSubstring(`"joint_torque": Box(0, 1, (16,), float64)`))
		Expect(s).To(ContainSubstring("Current States: {"))
	})

	It("builds action templates from the composed space", func() {
		as, err := root.ActionSpace()
		Expect(err).NotTo(HaveOccurred())
		tmpl := as.New()
		Expect(tmpl.Set("right.hand.joint_torque", make([]float64, 16))).To(Succeed())
		Expect(root.SetActions(tmpl)).To(Succeed())
	})
})

package body_test

import (
	"bytes"
	"log/slog"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/bulletx/internal/attr"
	"github.com/san-kum/bulletx/internal/body"
	"github.com/san-kum/bulletx/internal/engine"
	"github.com/san-kum/bulletx/internal/engine/memory"
	"github.com/san-kum/bulletx/internal/model"
	"github.com/san-kum/bulletx/internal/robot"
)

func builtin(name string) engine.BodyDesc {
	desc, ok := model.Builtin(name)
	Expect(ok).To(BeTrue(), name)
	return desc
}

func fixed(z float64) body.Options {
	return body.Options{FixedBase: true, Base: engine.NewPose(engine.Vec3{0, 0, z})}
}

func stepN(w *memory.World, n int) {
	for i := 0; i < n; i++ {
		Expect(w.StepSimulation()).To(Succeed())
	}
}

var _ = Describe("Body", func() {
	var (
		w *memory.World
		b *body.Body
	)

	BeforeEach(func() {
		w = memory.New()
		var err error
		b, err = body.New(w, builtin("sawyer"), fixed(0.5))
		Expect(err).NotTo(HaveOccurred())
	})

	It("resolves joints and links by name", func() {
		idx, err := b.JointIndex("right_j3")
		Expect(err).NotTo(HaveOccurred())
		Expect(idx).To(Equal(4))

		all, err := b.JointIndices([]string{"right_j0", "sawyer_mount"})
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(Equal([]int{1, 0}))

		_, err = b.JointIndex("left_j0")
		Expect(err).To(MatchError(engine.ErrUnknownJoint))

		info, err := b.JointInfoByName("right_j1")
		Expect(err).NotTo(HaveOccurred())
		Expect(info.LowerLimit).To(Equal(-3.8095))

		st, err := b.JointStateByName("right_j1")
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Position).To(BeZero())

		ls, err := b.LinkStateByName("sawyer_link_1")
		Expect(err).NotTo(HaveOccurred())
		Expect(ls.WorldPosition[2]).To(BeNumerically("~", 0.65, 1e-9))
	})

	It("restores the initial base pose on reset", func() {
		Expect(b.SetBasePose(engine.NewPose(engine.Vec3{1, 2, 3}))).To(Succeed())
		Expect(b.SetBaseVelocity(engine.Twist{Linear: engine.Vec3{1, 0, 0}})).To(Succeed())

		Expect(b.Reset()).To(Succeed())
		pose, err := b.BasePose()
		Expect(err).NotTo(HaveOccurred())
		Expect(pose).To(Equal(engine.NewPose(engine.Vec3{0, 0, 0.5})))
	})
})

var _ = Describe("Robot", func() {
	var (
		w    *memory.World
		arm  *body.Robot
		logs *bytes.Buffer
	)

	BeforeEach(func() {
		w = memory.New()
		logs = &bytes.Buffer{}
		opts := fixed(0)
		opts.Logger = slog.New(slog.NewTextHandler(logs, nil))
		var err error
		arm, err = body.NewRobot(w, builtin("sawyer"), opts)
		Expect(err).NotTo(HaveOccurred())
	})

	It("skips fixed joints", func() {
		Expect(arm.NumDOFs()).To(Equal(7))
		Expect(arm.FreeJoints()).To(Equal([]int{1, 2, 3, 4, 5, 6, 7}))
		Expect(arm.ZeroPose()).To(Equal(make([]float64, 7)))
	})

	It("parses state field names", func() {
		f, err := body.ParseStateFields([]string{"joint_position", "joint_velocity"})
		Expect(err).NotTo(HaveOccurred())
		Expect(f).To(Equal(body.StateFields{JointPosition: true, JointVelocity: true}))

		f, err = body.ParseStateFields(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(f).To(Equal(body.AllStateFields()))

		_, err = body.ParseStateFields([]string{"joint_effort"})
		Expect(err).To(MatchError(ContainSubstring("joint_effort")))
	})

	It("clips the zero pose into the joint limits", func() {
		hand, err := body.NewRobot(w, builtin("allegro_hand"), fixed(1))
		Expect(err).NotTo(HaveOccurred())
		zero := hand.ZeroPose()
		Expect(zero[12]).To(Equal(0.263))
		Expect(zero[0]).To(BeZero())
	})

	It("declares joint spaces from the description", func() {
		ss, err := arm.StateSpace()
		Expect(err).NotTo(HaveOccurred())
		Expect(ss.Keys()).To(Equal([]string{
			"applied_joint_motor_torque", "joint_position", "joint_reaction_forces", "joint_velocity",
		}))
		pos, _ := ss.Box("joint_position")
		Expect(pos.Low[1]).To(Equal(-3.8095))
		forces, _ := ss.Box("joint_reaction_forces")
		Expect(forces.Shape()).To(Equal([]int{7, 6}))

		as, err := arm.ActionSpace()
		Expect(err).NotTo(HaveOccurred())
		Expect(as.Keys()).To(Equal([]string{"joint_position"}))

		Expect(arm.SetTorqueControl(true)).To(Succeed())
		as, err = arm.ActionSpace()
		Expect(err).NotTo(HaveOccurred())
		tau, ok := as.Box("joint_torque")
		Expect(ok).To(BeTrue())
		Expect(tau.High[0]).To(Equal(80.0))
	})

	It("reports only the configured state fields", func() {
		arm.ConfigureStateSpace(body.StateFields{JointPosition: true})
		ss, err := arm.StateSpace()
		Expect(err).NotTo(HaveOccurred())
		Expect(ss.Keys()).To(Equal([]string{"joint_position"}))

		st, err := arm.States()
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Keys()).To(Equal([]string{"joint_position"}))
		Expect(ss.Contains(st)).To(BeTrue())
	})

	It("tracks position targets", func() {
		target := []float64{0.3, -0.2, 0.1, 0, 0, 0, 0.5}
		Expect(arm.SetActions(attr.Map{"joint_position": target})).To(Succeed())
		stepN(w, 720)

		st, err := arm.JointStates(nil)
		Expect(err).NotTo(HaveOccurred())
		for i, q := range st.Position {
			Expect(q).To(BeNumerically("~", target[i], 1e-2))
		}
	})

	It("accepts decoded lists and ignores a missing control field", func() {
		Expect(arm.SetActions(attr.Map{"joint_position": []any{0.1, 0, 0, 0, 0, 0, 0}})).To(Succeed())
		Expect(arm.SetActions(attr.Map{"gripper": 1.0})).To(Succeed())
		Expect(arm.SetActions(attr.Map{"joint_position": "open"})).To(MatchError(robot.ErrBadAction))
	})

	Describe("SetJointPosition", func() {
		target := make([]float64, 7)

		It("rejects all-zero max forces", func() {
			Expect(arm.SetJointPosition(target, make([]float64, 7), true)).To(MatchError(body.ErrZeroMaxForce))
		})

		It("rejects a wrong number of targets", func() {
			Expect(arm.SetJointPosition(target[:3], nil, true)).To(MatchError(engine.ErrLengthMismatch))
		})

		It("falls back to unlimited effort when the description has none", func() {
			desc := builtin("two_link")
			for i := range desc.Joints {
				desc.Joints[i].MaxForce = 0
			}
			opts := fixed(0)
			opts.Logger = slog.New(slog.NewTextHandler(logs, nil))
			weak, err := body.NewRobot(w, desc, opts)
			Expect(err).NotTo(HaveOccurred())

			Expect(weak.SetJointPosition([]float64{0.5, 0.5}, nil, true)).To(Succeed())
			Expect(logs.String()).To(ContainSubstring("effort limits are all zero"))
			stepN(w, 480)
			st, _ := weak.JointStates(nil)
			Expect(st.Position[0]).To(BeNumerically("~", 0.5, 1e-3))
		})

		It("clips custom forces by the effort limits", func() {
			forces := []float64{1e6, 1e6, 1e6, 1e6, 1e6, 1e6, 1e6}
			Expect(arm.SetJointPosition([]float64{3, 0, 0, 0, 0, 0, 0}, forces, true)).To(Succeed())
			Expect(w.StepSimulation()).To(Succeed())
			st, _ := arm.JointStates(nil)
			Expect(math.Abs(st.AppliedTorque[0])).To(BeNumerically("<=", 80))
		})
	})

	It("switches to torque control and back", func() {
		Expect(arm.SetActions(attr.Map{"joint_position": make([]float64, 7)})).To(Succeed())
		Expect(arm.SetTorqueControl(true)).To(Succeed())
		Expect(arm.TorqueControl()).To(BeTrue())

		Expect(arm.SetActions(attr.Map{"joint_torque": []float64{5, 0, 0, 0, 0, 0, 0}})).To(Succeed())
		stepN(w, 24)
		st, _ := arm.JointStates(nil)
		Expect(st.Velocity[0]).To(BeNumerically(">", 0))
		Expect(st.AppliedTorque[0]).To(Equal(5.0))

		Expect(arm.SetJointPosition(make([]float64, 7), nil, true)).To(Succeed())
		Expect(arm.TorqueControl()).To(BeFalse())
	})

	It("returns every joint to the zero pose on reset", func() {
		Expect(arm.SetJointPosition([]float64{1, 1, 1, 1, 1, 1, 1}, nil, true)).To(Succeed())
		stepN(w, 240)
		Expect(arm.Reset()).To(Succeed())

		st, err := arm.States()
		Expect(err).NotTo(HaveOccurred())
		q, _ := st.Lookup("joint_position")
		for _, v := range q.([]float64) {
			Expect(v).To(BeNumerically("~", 0, 1e-12))
		}
		ok, err := arm.JointsWithinLimits()
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
	})

	It("warns when reset lands outside the limits", func() {
		Expect(arm.SetZeroPose([]float64{9, 0, 0, 0, 0, 0, 0})).To(Succeed())
		Expect(arm.Reset()).To(Succeed())
		Expect(logs.String()).To(ContainSubstring("outside the limits"))
		Expect(arm.SetZeroPose([]float64{0})).To(MatchError(engine.ErrLengthMismatch))
	})

	It("attaches another robot to a link", func() {
		hand, err := body.NewRobot(w, builtin("allegro_hand"), body.Options{})
		Expect(err).NotTo(HaveOccurred())

		Expect(arm.Attach(hand, "sawyer_link_7", engine.Vec3{0, 0, 0.1}, engine.Quat{})).To(Succeed())
		stepN(w, 10)

		link, _ := arm.LinkStateByName("sawyer_link_7")
		pose, _ := hand.BasePose()
		Expect(pose.Position[2]).To(BeNumerically("~", link.WorldPosition[2]+0.1, 1e-9))

		Expect(hand.Reset()).To(Succeed())
		pose, _ = hand.BasePose()
		Expect(pose.Position[2]).To(BeNumerically("~", link.WorldPosition[2]+0.1, 1e-9))

		Expect(arm.Attach(hand, "no_such_link", engine.Vec3{}, engine.Quat{})).To(MatchError(engine.ErrUnknownJoint))
		Expect(arm.Attach(nil, "sawyer_link_7", engine.Vec3{}, engine.Quat{})).To(MatchError(body.ErrNotRobot))
	})

	It("logs a summary of its joints", func() {
		Expect(arm.Summarize()).To(Succeed())
		Expect(logs.String()).To(ContainSubstring("joint #7"))
		Expect(logs.String()).To(ContainSubstring("dofs=7"))
	})
})

var _ = Describe("robots in a tree", func() {
	var (
		w           *memory.World
		root        *robot.Node
		left, right *body.Robot
	)

	BeforeEach(func() {
		w = memory.New()
		root = robot.NewNode()
		var err error
		left, err = body.NewRobot(w, builtin("sawyer"), fixed(0))
		Expect(err).NotTo(HaveOccurred())
		right, err = body.NewRobot(w, builtin("kuka_iiwa"), body.Options{FixedBase: true, Base: engine.NewPose(engine.Vec3{1, 0, 0})})
		Expect(err).NotTo(HaveOccurred())
		left.ConfigureStateSpace(body.StateFields{JointPosition: true})
		right.ConfigureStateSpace(body.StateFields{JointPosition: true})
		Expect(root.AddChild("left", left)).To(Succeed())
		Expect(root.AddChild("right", right)).To(Succeed())
	})

	It("composes two seven-joint arms", func() {
		ss, err := root.StateSpace()
		Expect(err).NotTo(HaveOccurred())
		Expect(ss.Keys()).To(Equal([]string{"left", "right"}))
		for _, p := range []string{"left.joint_position", "right.joint_position"} {
			box, ok := ss.Box(p)
			Expect(ok).To(BeTrue())
			Expect(box.Shape()).To(Equal([]int{7}))
		}
		Expect(ss.Sub("left").Keys()).To(Equal([]string{"joint_position"}))
	})

	It("exposes a hand added under the right arm", func() {
		hand, err := body.NewRobot(w, builtin("allegro_hand"), body.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(hand.SetTorqueControl(true)).To(Succeed())
		Expect(right.AddChild("hand", hand)).To(Succeed())

		as, err := root.ActionSpace()
		Expect(err).NotTo(HaveOccurred())
		box, ok := as.Box("right.hand.joint_torque")
		Expect(ok).To(BeTrue())
		Expect(box.Shape()).To(Equal([]int{16}))
		Expect(as.Sub("right").Keys()).To(Equal([]string{"hand", "joint_position"}))
	})

	It("returns to the zero pose after driving there and resetting", func() {
		drive := func(q float64) attr.Map {
			pose := func() []float64 {
				v := make([]float64, 7)
				for i := range v {
					v[i] = q
				}
				return v
			}
			return attr.Map{
				"left":  attr.Map{"joint_position": pose()},
				"right": attr.Map{"joint_position": pose()},
			}
		}
		Expect(root.SetActions(drive(0.4))).To(Succeed())
		stepN(w, 240)
		Expect(root.SetActions(drive(0))).To(Succeed())
		stepN(w, 24)
		Expect(root.Reset()).To(Succeed())

		st, err := root.States()
		Expect(err).NotTo(HaveOccurred())
		for _, p := range []string{"left.joint_position", "right.joint_position"} {
			q, ok := st.Lookup(p)
			Expect(ok).To(BeTrue())
			for _, v := range q.([]float64) {
				Expect(v).To(BeNumerically("~", 0, 1e-9))
			}
		}
	})

	It("rejects a hand named like a local field", func() {
		hand, err := body.NewRobot(w, builtin("allegro_hand"), body.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(right.AddChild("joint_position", hand)).To(Succeed())

		_, err = root.StateSpace()
		Expect(err).To(MatchError(robot.ErrNameCollision))
	})

	It("serves a summary through the router", func() {
		s, err := robot.Summary(root)
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(ContainSubstring(`"left": {`))
	})
})

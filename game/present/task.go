package present

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

const (
	ShakeDuration  float32 = 0.3
	ShakeFrequency float64 = 40
	ShakeAmplitude float32 = 0.15

	FallDuration float32 = 0.5
	FallHeight   float32 = 10

	PopupDuration float32 = 1
	PopupRise     float32 = 1
)

// Frame is one sampled step of a running cue
type Frame struct {
	T      float32 `json:"t"`
	Offset float32 `json:"offset"`
	Alpha  float32 `json:"alpha"`
}

// Task plays one cue. Offset is the along-axis shake for shakes, the height
// above the resting spot for falls and the rise for popups.
type Task struct {
	Cue     Cue
	Offset  float32
	Alpha   float32
	Elapsed float32
	Done    bool

	primary *gween.Tween
	fade    *gween.Tween
}

// NewTask creates a task positioned at the start of its cue
func NewTask(cue Cue) *Task {
	t := &Task{Cue: cue, Alpha: 1}
	switch cue.Kind {
	case CueShake:
		t.primary = gween.New(1, 0, durationOr(cue, ShakeDuration), ease.Linear)
	case CueFall:
		t.primary = gween.New(FallHeight, 0, durationOr(cue, FallDuration), ease.Linear)
		t.Offset = FallHeight
	case CuePopup:
		d := durationOr(cue, PopupDuration)
		t.primary = gween.New(0, PopupRise, d, ease.OutQuad)
		t.fade = gween.New(1, 0, d, ease.Linear)
	default:
		t.Done = true
	}
	return t
}

// Update advances the task by dt seconds and reports whether it finished
func (t *Task) Update(dt float32) bool {
	if t.Done {
		return true
	}
	t.Elapsed += dt

	val, finished := t.primary.Update(dt)
	switch t.Cue.Kind {
	case CueShake:
		t.Offset = float32(math.Sin(float64(t.Elapsed)*ShakeFrequency)) * ShakeAmplitude * val
	default:
		t.Offset = val
	}
	if t.fade != nil {
		a, fadeDone := t.fade.Update(dt)
		t.Alpha = a
		finished = finished && fadeDone
	}

	if finished {
		t.Done = true
		if t.Cue.Kind == CueShake {
			t.Offset = 0
		}
	}
	return t.Done
}

func (t *Task) frame() Frame {
	return Frame{T: t.Elapsed, Offset: t.Offset, Alpha: t.Alpha}
}

func durationOr(cue Cue, d float32) float32 {
	if cue.Duration > 0 {
		return cue.Duration
	}
	return d
}

// Runner drives a set of tasks; finished tasks are dropped on Update
type Runner struct {
	tasks []*Task
}

// Add starts a task per cue
func (r *Runner) Add(cues ...Cue) []*Task {
	started := make([]*Task, 0, len(cues))
	for _, c := range cues {
		t := NewTask(c)
		if !t.Done {
			r.tasks = append(r.tasks, t)
		}
		started = append(started, t)
	}
	return started
}

// Update advances every running task
func (r *Runner) Update(dt float32) {
	live := r.tasks[:0]
	for _, t := range r.tasks {
		if !t.Update(dt) {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(r.tasks); i++ {
		r.tasks[i] = nil
	}
	r.tasks = live
}

// Active returns the number of running tasks
func (r *Runner) Active() int {
	return len(r.tasks)
}

// Bake samples every cue at fps and stores the keyframes on the cue, so
// clients without a tween library can replay them
func Bake(cues []Cue, fps int) []Cue {
	if fps <= 0 || len(cues) == 0 {
		return cues
	}
	dt := 1 / float32(fps)
	out := make([]Cue, len(cues))
	copy(out, cues)

	var r Runner
	tasks := r.Add(out...)
	for i, t := range tasks {
		out[i].Frames = []Frame{t.frame()}
	}
	// cap at ten seconds of frames
	for step := 0; r.Active() > 0 && step < fps*10; step++ {
		r.Update(dt)
		for i, t := range tasks {
			if len(out[i].Frames) > 0 && !finishedBefore(out[i].Frames, t) {
				out[i].Frames = append(out[i].Frames, t.frame())
			}
		}
	}
	return out
}

// finishedBefore reports whether the last stored frame already captured t's end
func finishedBefore(frames []Frame, t *Task) bool {
	last := frames[len(frames)-1]
	return t.Done && last.T == t.Elapsed
}

package geo

import "github.com/skyduel/dogfight/pkg/core"

// Sequence is an ordered, restartable run of poses consumed through a cursor.
type Sequence interface {
	Next() (core.Pose, bool)
	Remaining() int
	Len() int
	Last() core.Pose
	Reset()
}

// Sampler walks a PathSpec at a fixed arc-length step, computing each
// pose on demand.
type Sampler struct {
	path PathSpec
	step float64
	n    int
	i    int
}

// Next returns the next pose, or false once the path is exhausted.
func (s *Sampler) Next() (core.Pose, bool) {
	if s.i >= s.n {
		return core.Pose{}, false
	}
	s.i++
	if s.i == s.n {
		return s.path.End, true
	}
	return s.path.At(float64(s.i) * s.step), true
}

func (s *Sampler) Remaining() int  { return s.n - s.i }
func (s *Sampler) Len() int        { return s.n }
func (s *Sampler) Last() core.Pose { return s.path.End }
func (s *Sampler) Reset()          { s.i = 0 }

// Path returns the path being sampled.
func (s *Sampler) Path() PathSpec { return s.path }

// Pending returns the poses not yet consumed.
func Pending(s Sequence) []core.Pose {
	switch v := s.(type) {
	case *Sampler:
		out := make([]core.Pose, 0, v.Remaining())
		for i := v.i + 1; i <= v.n; i++ {
			if i == v.n {
				out = append(out, v.path.End)
			} else {
				out = append(out, v.path.At(float64(i)*v.step))
			}
		}
		return out
	}
	return nil
}

package integrators

import "github.com/san-kum/pyrosim/internal/dynamo"

// RK4 is the classic fixed-step fourth-order Runge-Kutta method. Stage
// buffers are kept between steps and resized when the species count
// changes, so an RK4 must not be shared between goroutines.
type RK4 struct {
	k1, k2, k3, k4 dynamo.State
	stage          dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) resize(n int) {
	if len(r.k1) == n {
		return
	}
	r.k1 = make(dynamo.State, n)
	r.k2 = make(dynamo.State, n)
	r.k3 = make(dynamo.State, n)
	r.k4 = make(dynamo.State, n)
	r.stage = make(dynamo.State, n)
}

// advance fills the stage buffer with x + h*k.
func (r *RK4) advance(x, k dynamo.State, h float64) dynamo.State {
	for i := range x {
		r.stage[i] = x[i] + h*k[i]
	}
	return r.stage
}

func (r *RK4) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	r.resize(len(x))
	half := dt / 2

	copy(r.k1, sys.Derive(x, t))
	copy(r.k2, sys.Derive(r.advance(x, r.k1, half), t+half))
	copy(r.k3, sys.Derive(r.advance(x, r.k2, half), t+half))
	copy(r.k4, sys.Derive(r.advance(x, r.k3, dt), t+dt))

	next := make(dynamo.State, len(x))
	w := dt / 6
	for i := range x {
		next[i] = x[i] + w*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
	return next
}

package schedule

// Schedule maps a step index to a value
type Schedule interface {
	At(step int64) float64
}

// Decay interpolates linearly from From to To over the first Over steps
// and stays at To afterwards.
type Decay struct {
	From float64
	To   float64
	Over int64
}

func (d Decay) At(step int64) float64 {
	if step >= d.Over {
		return d.To
	}
	if step <= 0 {
		return d.From
	}
	progress := float64(step) / float64(d.Over)
	return d.From + (d.To-d.From)*progress
}

// Constant always returns the same value
type Constant float64

func (c Constant) At(int64) float64 {
	return float64(c)
}
